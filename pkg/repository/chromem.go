package repository

import (
	"context"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/model"
	chromem "github.com/philippgille/chromem-go"
)

// Store wraps one chromem-go database holding all collections under a
// single data root. With an empty data directory everything stays in
// memory, which the tests rely on.
type Store struct {
	db        *chromem.DB
	dataDir   string
	dimension int
}

// New opens (or creates) the database. The dimension is fixed for every
// collection served by this store; it must match the embedding backend.
func New(dataDir string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, goerr.New("collection dimension must be positive",
			goerr.T(model.TagConfiguration), goerr.V("dimension", dimension))
	}

	if dataDir == "" {
		return &Store{db: chromem.NewDB(), dimension: dimension}, nil
	}

	db, err := chromem.NewPersistentDB(dataDir, false)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open vector database",
			goerr.T(model.TagConfiguration), goerr.V("data_dir", dataDir))
	}
	return &Store{db: db, dataDir: dataDir, dimension: dimension}, nil
}

// Collection opens or creates a named collection.
func (s *Store) Collection(name string) (Collection, error) {
	col, err := s.db.GetOrCreateCollection(name, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open collection", goerr.V("name", name))
	}

	path := "(memory)"
	if s.dataDir != "" {
		path = filepath.Join(s.dataDir, name)
	}

	return &chromemCollection{col: col, path: path, dimension: s.dimension}, nil
}

// All embeddings are computed by the pipeline before upsert; chromem must
// never fall back to its own embedding provider.
func rejectEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, goerr.New("collection does not compute embeddings")
}

type chromemCollection struct {
	col       *chromem.Collection
	path      string
	dimension int
}

func (c *chromemCollection) Upsert(ctx context.Context, records []Record) error {
	for _, rec := range records {
		if len(rec.Embedding) != c.dimension {
			return goerr.New("vector length disagrees with collection dimension; mixed embedding backends in one collection are unsupported",
				goerr.T(model.TagDimensionMismatch),
				goerr.V("id", rec.ID),
				goerr.V("vector", len(rec.Embedding)), goerr.V("dimension", c.dimension))
		}
	}

	for _, rec := range records {
		doc := chromem.Document{
			ID:        rec.ID,
			Content:   rec.Content,
			Embedding: rec.Embedding,
			Metadata:  rec.Payload,
		}
		if err := c.col.AddDocument(ctx, doc); err != nil {
			return goerr.Wrap(err, "failed to upsert record", goerr.V("id", rec.ID))
		}
	}
	return nil
}

func (c *chromemCollection) Query(ctx context.Context, embedding []float32, topk int, where map[string]string) ([]Hit, error) {
	if len(embedding) != c.dimension {
		return nil, goerr.New("query vector length disagrees with collection dimension; mixed embedding backends in one collection are unsupported",
			goerr.T(model.TagDimensionMismatch),
			goerr.V("vector", len(embedding)), goerr.V("dimension", c.dimension))
	}

	// chromem rejects nResults beyond the stored document count.
	if n := c.col.Count(); topk > n {
		topk = n
	}
	if topk == 0 {
		return nil, nil
	}

	results, err := c.col.QueryEmbedding(ctx, embedding, topk, where, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "vector query failed")
	}

	hits := make([]Hit, len(results))
	for i, res := range results {
		hits[i] = Hit{
			ID:      res.ID,
			Content: res.Content,
			Payload: res.Metadata,
			Score:   res.Similarity,
		}
	}
	return hits, nil
}

func (c *chromemCollection) Get(ctx context.Context, id string) (*Record, error) {
	doc, err := c.col.GetByID(ctx, id)
	if err != nil {
		// chromem reports absence as an error; absence is not a failure
		// for this contract.
		return nil, nil
	}
	return &Record{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Payload:   doc.Metadata,
	}, nil
}

func (c *chromemCollection) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := c.col.GetByID(ctx, id); err != nil {
		return false, nil
	}
	if err := c.col.Delete(ctx, nil, nil, id); err != nil {
		return false, goerr.Wrap(err, "failed to delete record", goerr.V("id", id))
	}
	return true, nil
}

func (c *chromemCollection) DeleteWhere(ctx context.Context, where map[string]string) (int, error) {
	before := c.col.Count()
	if before == 0 {
		return 0, nil
	}
	if err := c.col.Delete(ctx, where, nil); err != nil {
		return 0, goerr.Wrap(err, "failed to delete records by filter")
	}
	return before - c.col.Count(), nil
}

func (c *chromemCollection) Count() int {
	return c.col.Count()
}

func (c *chromemCollection) Dimension() int {
	return c.dimension
}

func (c *chromemCollection) Path() string {
	return c.path
}
