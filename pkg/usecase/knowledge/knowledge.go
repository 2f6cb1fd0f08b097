// Package knowledge orchestrates the RAG pipeline over the chunk
// collection: ingest (chunk, embed, upsert) and search (embed, query).
package knowledge

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/adapter"
	"github.com/m-mizutani/tamias/pkg/chunk"
	"github.com/m-mizutani/tamias/pkg/model"
	"github.com/m-mizutani/tamias/pkg/repository"
	"github.com/m-mizutani/tamias/pkg/utils/logging"
)

type UseCase struct {
	emb      adapter.Embedding
	col      repository.Collection
	splitter *chunk.Splitter
	now      func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

func New(emb adapter.Embedding, col repository.Collection, splitter *chunk.Splitter, opts ...Option) *UseCase {
	u := &UseCase{
		emb:      emb,
		col:      col,
		splitter: splitter,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Ingest chunks text, embeds every chunk in one batched call, and upserts
// the records. Prior chunks of the same source are removed first, so a
// document that shrank leaves no stale chunks behind. Returns the number
// of chunks stored.
func (u *UseCase) Ingest(ctx context.Context, text, source string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, goerr.Wrap(model.ErrEmptyInput, "nothing to ingest", goerr.V("source", source))
	}
	if source == "" {
		source = model.DefaultSource
	}

	chunks := u.splitter.Split(text)
	vecs, err := u.emb.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to embed chunks", goerr.V("source", source))
	}

	createdAt := strconv.FormatInt(u.now().Unix(), 10)
	records := make([]repository.Record, len(chunks))
	for i, c := range chunks {
		records[i] = repository.Record{
			ID:        string(model.NewChunkID(source, i)),
			Content:   c,
			Embedding: vecs[i],
			Payload: map[string]string{
				"source":     source,
				"chunk_idx":  strconv.Itoa(i),
				"created_at": createdAt,
			},
		}
	}

	// Embedding is complete before the first write; the delete and upsert
	// form one logical replace of the source.
	if _, err := u.col.DeleteWhere(ctx, map[string]string{"source": source}); err != nil {
		return 0, goerr.Wrap(err, "failed to drop prior chunks", goerr.V("source", source))
	}
	if err := u.col.Upsert(ctx, records); err != nil {
		return 0, goerr.Wrap(err, "failed to store chunks", goerr.V("source", source))
	}

	logging.From(ctx).Info("ingested document",
		"source", source, "chunks", len(records))
	return len(records), nil
}

// IngestFile reads a file as UTF-8 text and ingests it. The source label
// defaults to the path. File errors are passed through unmodified.
func (u *UseCase) IngestFile(ctx context.Context, path, source string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if source == "" {
		source = path
	}
	return u.Ingest(ctx, string(raw), source)
}

// Search embeds the query and returns the topk nearest chunks by cosine
// similarity, best first.
func (u *UseCase) Search(ctx context.Context, query string, topk int) ([]model.ChunkHit, error) {
	if topk <= 0 {
		return nil, goerr.New("topk must be a positive integer",
			goerr.T(model.TagInvalidArgument), goerr.V("topk", topk))
	}

	vec, err := u.emb.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	raw, err := u.col.Query(ctx, vec, topk, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]model.ChunkHit, len(raw))
	for i, h := range raw {
		idx, _ := strconv.Atoi(h.Payload["chunk_idx"])
		hits[i] = model.ChunkHit{
			ID:     model.ChunkID(h.ID),
			Source: h.Payload["source"],
			Index:  idx,
			Text:   h.Content,
			Score:  h.Score,
		}
	}
	return hits, nil
}

// DeleteSource removes every chunk ingested under the source label and
// returns how many were removed. An unknown source removes zero.
func (u *UseCase) DeleteSource(ctx context.Context, source string) (int, error) {
	n, err := u.col.DeleteWhere(ctx, map[string]string{"source": source})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete source", goerr.V("source", source))
	}
	if n > 0 {
		logging.From(ctx).Info("deleted source", "source", source, "chunks", n)
	}
	return n, nil
}

// Stats reports the collection's size, dimension, and location.
func (u *UseCase) Stats(ctx context.Context) *model.CollectionStats {
	return &model.CollectionStats{
		Count:     u.col.Count(),
		Dimension: u.col.Dimension(),
		Path:      u.col.Path(),
	}
}
