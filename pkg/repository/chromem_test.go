package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tamias/pkg/adapter"
	"github.com/m-mizutani/tamias/pkg/model"
	"github.com/m-mizutani/tamias/pkg/repository"
)

const testDim = 16

func newCollection(t *testing.T) repository.Collection {
	store, err := repository.New("", testDim)
	gt.NoError(t, err)

	col, err := store.Collection("knowledge")
	gt.NoError(t, err)
	return col
}

func embedOf(t *testing.T, text string) []float32 {
	vec, err := adapter.NewMock(testDim).Embed(context.Background(), text)
	gt.NoError(t, err)
	return vec
}

func record(t *testing.T, id, text string, payload map[string]string) repository.Record {
	return repository.Record{
		ID:        id,
		Content:   text,
		Embedding: embedOf(t, text),
		Payload:   payload,
	}
}

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "alpha", map[string]string{"source": "a"}),
		record(t, "r2", "beta", map[string]string{"source": "a"}),
		record(t, "r3", "gamma", map[string]string{"source": "b"}),
	}))
	gt.V(t, col.Count()).Equal(3)

	hits, err := col.Query(ctx, embedOf(t, "alpha"), 3, nil)
	gt.NoError(t, err)
	gt.V(t, len(hits)).Equal(3)
	// The identical vector must rank first with the best score.
	gt.V(t, hits[0].ID).Equal("r1")
	gt.V(t, hits[0].Content).Equal("alpha")
	for i := 1; i < len(hits); i++ {
		gt.True(t, hits[i-1].Score >= hits[i].Score)
	}
}

func TestUpsertOverwritesSameID(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "first version", nil),
	}))
	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "second version", nil),
	}))

	gt.V(t, col.Count()).Equal(1)
	rec, err := col.Get(ctx, "r1")
	gt.NoError(t, err)
	gt.NotNil(t, rec)
	gt.V(t, rec.Content).Equal("second version")
}

func TestQueryFilter(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "alpha", map[string]string{"category": "work"}),
		record(t, "r2", "beta", map[string]string{"category": "home"}),
		record(t, "r3", "gamma", map[string]string{"category": "work"}),
	}))

	hits, err := col.Query(ctx, embedOf(t, "alpha"), 10, map[string]string{"category": "work"})
	gt.NoError(t, err)
	gt.V(t, len(hits)).Equal(2)
	for _, hit := range hits {
		gt.V(t, hit.Payload["category"]).Equal("work")
	}
}

func TestQueryTopkBeyondCorpus(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "alpha", nil),
	}))

	hits, err := col.Query(ctx, embedOf(t, "alpha"), 100, nil)
	gt.NoError(t, err)
	gt.V(t, len(hits)).Equal(1)
}

func TestQueryEmptyCollection(t *testing.T) {
	col := newCollection(t)

	hits, err := col.Query(context.Background(), embedOf(t, "anything"), 5, nil)
	gt.NoError(t, err)
	gt.V(t, len(hits)).Equal(0)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "alpha", nil),
	}))

	deleted, err := col.Delete(ctx, "r1")
	gt.NoError(t, err)
	gt.True(t, deleted)
	gt.V(t, col.Count()).Equal(0)

	deleted, err = col.Delete(ctx, "r1")
	gt.NoError(t, err)
	gt.False(t, deleted)
}

func TestDeleteWhere(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "alpha", map[string]string{"source": "a"}),
		record(t, "r2", "beta", map[string]string{"source": "a"}),
		record(t, "r3", "gamma", map[string]string{"source": "b"}),
	}))

	n, err := col.DeleteWhere(ctx, map[string]string{"source": "a"})
	gt.NoError(t, err)
	gt.V(t, n).Equal(2)
	gt.V(t, col.Count()).Equal(1)

	n, err = col.DeleteWhere(ctx, map[string]string{"source": "missing"})
	gt.NoError(t, err)
	gt.V(t, n).Equal(0)
}

func TestDimensionGuard(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	err := col.Upsert(ctx, []repository.Record{{
		ID:        "bad",
		Content:   "short vector",
		Embedding: make([]float32, testDim/2),
	}})
	gt.Error(t, err)
	gt.True(t, model.IsDimensionMismatch(err))

	_, err = col.Query(ctx, make([]float32, testDim*2), 5, nil)
	gt.Error(t, err)
	gt.True(t, model.IsDimensionMismatch(err))
}

func TestGetAbsent(t *testing.T) {
	col := newCollection(t)

	rec, err := col.Get(context.Background(), "missing")
	gt.NoError(t, err)
	gt.Nil(t, rec)
}

func TestSeparateCollections(t *testing.T) {
	ctx := context.Background()
	store, err := repository.New("", testDim)
	gt.NoError(t, err)

	knowledge, err := store.Collection("knowledge")
	gt.NoError(t, err)
	memory, err := store.Collection("memory")
	gt.NoError(t, err)

	gt.NoError(t, knowledge.Upsert(ctx, []repository.Record{
		record(t, "r1", "alpha", nil),
	}))
	gt.V(t, knowledge.Count()).Equal(1)
	gt.V(t, memory.Count()).Equal(0)
}

func TestPersistentStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := repository.New(dir, testDim)
	gt.NoError(t, err)
	col, err := store.Collection("knowledge")
	gt.NoError(t, err)

	gt.NoError(t, col.Upsert(ctx, []repository.Record{
		record(t, "r1", "alpha", map[string]string{"source": "a"}),
	}))

	// Reopen from disk.
	reopened, err := repository.New(dir, testDim)
	gt.NoError(t, err)
	col2, err := reopened.Collection("knowledge")
	gt.NoError(t, err)
	gt.V(t, col2.Count()).Equal(1)

	rec, err := col2.Get(ctx, "r1")
	gt.NoError(t, err)
	gt.NotNil(t, rec)
	gt.V(t, rec.Payload["source"]).Equal("a")
}
