// Package memory orchestrates the long-lived fact store: remember
// (embed, upsert with exact-text dedup) and recall (embed, filtered
// similarity query).
package memory

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/adapter"
	"github.com/m-mizutani/tamias/pkg/model"
	"github.com/m-mizutani/tamias/pkg/repository"
	"github.com/m-mizutani/tamias/pkg/utils/logging"
)

type UseCase struct {
	emb adapter.Embedding
	col repository.Collection
	now func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

func New(emb adapter.Embedding, col repository.Collection, opts ...Option) *UseCase {
	u := &UseCase{
		emb: emb,
		col: col,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Remember stores a fact. Deduplication is exact-text through the
// content-addressed ID: remembering identical text again is a no-op that
// reports created=false and leaves the stored record untouched, timestamp
// included. Near-duplicate phrasing is stored as a separate memory.
func (u *UseCase) Remember(ctx context.Context, text, category string) (model.MemoryID, bool, error) {
	if strings.TrimSpace(text) == "" {
		return "", false, goerr.Wrap(model.ErrEmptyInput, "nothing to remember")
	}
	if category == "" {
		category = model.DefaultCategory
	}

	id := model.NewMemoryID(text)
	existing, err := u.col.Get(ctx, string(id))
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return id, false, nil
	}

	vec, err := u.emb.Embed(ctx, text)
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to embed memory")
	}

	rec := repository.Record{
		ID:        string(id),
		Content:   text,
		Embedding: vec,
		Payload: map[string]string{
			"category":   category,
			"created_at": strconv.FormatInt(u.now().Unix(), 10),
		},
	}
	if err := u.col.Upsert(ctx, []repository.Record{rec}); err != nil {
		return "", false, goerr.Wrap(err, "failed to store memory", goerr.V("id", id))
	}

	logging.From(ctx).Info("remembered", "id", id, "category", category)
	return id, true, nil
}

// Recall embeds the query and returns the topk nearest memories,
// optionally restricted to one category.
func (u *UseCase) Recall(ctx context.Context, query string, topk int, category string) ([]model.MemoryHit, error) {
	if topk <= 0 {
		return nil, goerr.New("topk must be a positive integer",
			goerr.T(model.TagInvalidArgument), goerr.V("topk", topk))
	}

	vec, err := u.emb.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	var where map[string]string
	if category != "" {
		where = map[string]string{"category": category}
	}

	raw, err := u.col.Query(ctx, vec, topk, where)
	if err != nil {
		return nil, err
	}

	hits := make([]model.MemoryHit, len(raw))
	for i, h := range raw {
		hits[i] = model.MemoryHit{
			ID:       model.MemoryID(h.ID),
			Text:     h.Content,
			Category: h.Payload["category"],
			Score:    h.Score,
		}
	}
	return hits, nil
}

// Forget deletes one memory by ID. A missing ID reports deleted=false,
// not an error.
func (u *UseCase) Forget(ctx context.Context, id model.MemoryID) (bool, error) {
	deleted, err := u.col.Delete(ctx, string(id))
	if err != nil {
		return false, goerr.Wrap(err, "failed to forget memory", goerr.V("id", id))
	}
	if deleted {
		logging.From(ctx).Info("forgot memory", "id", id)
	}
	return deleted, nil
}

// ForgetCategory deletes every memory in a category and returns how many
// were removed.
func (u *UseCase) ForgetCategory(ctx context.Context, category string) (int, error) {
	n, err := u.col.DeleteWhere(ctx, map[string]string{"category": category})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to forget category", goerr.V("category", category))
	}
	if n > 0 {
		logging.From(ctx).Info("forgot category", "category", category, "memories", n)
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
