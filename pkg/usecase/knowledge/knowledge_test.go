package knowledge_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tamias/pkg/adapter"
	"github.com/m-mizutani/tamias/pkg/chunk"
	"github.com/m-mizutani/tamias/pkg/model"
	"github.com/m-mizutani/tamias/pkg/repository"
	"github.com/m-mizutani/tamias/pkg/usecase/knowledge"
)

func newUseCase(t *testing.T) (*knowledge.UseCase, repository.Collection) {
	t.Helper()
	store, err := repository.New("", 16)
	gt.NoError(t, err)
	col, err := store.Collection("knowledge")
	gt.NoError(t, err)
	splitter, err := chunk.New(64, 8)
	gt.NoError(t, err)
	return knowledge.New(adapter.NewMock(16), col, splitter), col
}

func TestIngestAndSearch(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	n, err := uc.Ingest(ctx, "Chipmunks cache seeds for winter. Squirrels bury acorns in the ground.", "rodents")
	gt.NoError(t, err)
	gt.True(t, n > 0)

	hits, err := uc.Search(ctx, "Chipmunks cache seeds for winter.", 3)
	gt.NoError(t, err)
	gt.True(t, len(hits) > 0)
	gt.S(t, hits[0].Text).Contains("Chipmunks")
	gt.V(t, hits[0].Source).Equal("rodents")
	gt.V(t, hits[0].Index).Equal(0)
	gt.V(t, hits[0].ID).Equal(model.NewChunkID("rodents", 0))
	for i := 1; i < len(hits); i++ {
		gt.True(t, hits[i-1].Score >= hits[i].Score)
	}
}

func TestIngestEmptyText(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	_, err := uc.Ingest(ctx, "   \n\t ", "blank")
	gt.Error(t, err)
	gt.True(t, model.IsInvalidArgument(err))
}

func TestIngestDefaultSource(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	_, err := uc.Ingest(ctx, "Some note without a source.", "")
	gt.NoError(t, err)

	hits, err := uc.Search(ctx, "note", 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.V(t, hits[0].Source).Equal(model.DefaultSource)
}

func TestReingestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	uc, col := newUseCase(t)

	text := "First sentence of the doc. Second sentence of the doc. Third sentence of the doc."
	n1, err := uc.Ingest(ctx, text, "doc")
	gt.NoError(t, err)
	n2, err := uc.Ingest(ctx, text, "doc")
	gt.NoError(t, err)

	gt.V(t, n1).Equal(n2)
	gt.V(t, col.Count()).Equal(n1)
}

func TestReingestShrunkDocumentLeavesNoOrphans(t *testing.T) {
	ctx := context.Background()
	uc, col := newUseCase(t)

	long := strings.Repeat("A sentence that fills up one chunk nicely. ", 8)
	nLong, err := uc.Ingest(ctx, long, "doc")
	gt.NoError(t, err)
	gt.True(t, nLong > 1)

	nShort, err := uc.Ingest(ctx, "Just one sentence now.", "doc")
	gt.NoError(t, err)
	gt.V(t, nShort).Equal(1)
	gt.V(t, col.Count()).Equal(1)
}

func TestReingestDoesNotTouchOtherSources(t *testing.T) {
	ctx := context.Background()
	uc, col := newUseCase(t)

	nA, err := uc.Ingest(ctx, "Alpha content stays put.", "a")
	gt.NoError(t, err)
	_, err = uc.Ingest(ctx, "Beta content, first version.", "b")
	gt.NoError(t, err)
	nB, err := uc.Ingest(ctx, "Beta content, second version.", "b")
	gt.NoError(t, err)

	gt.V(t, col.Count()).Equal(nA + nB)
}

func TestSearchTopkValidation(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	for _, topk := range []int{0, -1} {
		_, err := uc.Search(ctx, "anything", topk)
		gt.Error(t, err)
		gt.True(t, model.IsInvalidArgument(err))
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	hits, err := uc.Search(ctx, "anything", 5)
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)
}

func TestDeleteSource(t *testing.T) {
	ctx := context.Background()
	uc, col := newUseCase(t)

	n, err := uc.Ingest(ctx, "Doomed document content. It will be deleted.", "doomed")
	gt.NoError(t, err)
	_, err = uc.Ingest(ctx, "Survivor document content.", "keeper")
	gt.NoError(t, err)

	deleted, err := uc.DeleteSource(ctx, "doomed")
	gt.NoError(t, err)
	gt.V(t, deleted).Equal(n)

	again, err := uc.DeleteSource(ctx, "doomed")
	gt.NoError(t, err)
	gt.V(t, again).Equal(0)

	hits, err := uc.Search(ctx, "document", 10)
	gt.NoError(t, err)
	for _, h := range hits {
		gt.V(t, h.Source).Equal("keeper")
	}
	gt.True(t, col.Count() > 0)
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	path := filepath.Join(t.TempDir(), "note.txt")
	gt.NoError(t, os.WriteFile(path, []byte("Ingested from a file on disk."), 0600))

	n, err := uc.IngestFile(ctx, path, "")
	gt.NoError(t, err)
	gt.True(t, n > 0)

	hits, err := uc.Search(ctx, "file on disk", 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.V(t, hits[0].Source).Equal(path)
}

func TestIngestFileMissing(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	_, err := uc.IngestFile(ctx, filepath.Join(t.TempDir(), "no-such-file.txt"), "")
	gt.Error(t, err)
	gt.True(t, os.IsNotExist(err))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	uc, col := newUseCase(t)

	_, err := uc.Ingest(ctx, "One small document.", "doc")
	gt.NoError(t, err)

	stats := uc.Stats(ctx)
	gt.V(t, stats.Count).Equal(col.Count())
	gt.V(t, stats.Dimension).Equal(16)
	gt.V(t, stats.Path).Equal(col.Path())
}
