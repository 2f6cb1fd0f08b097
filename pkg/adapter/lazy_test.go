package adapter_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tamias/pkg/adapter"
	"github.com/m-mizutani/tamias/pkg/model"
)

func TestLazyConstructsOnce(t *testing.T) {
	built := 0
	lazy := adapter.NewLazy(8, func(ctx context.Context) (adapter.Embedding, error) {
		built++
		return adapter.NewMock(8), nil
	})

	// No construction before first use.
	gt.V(t, lazy.Dimension()).Equal(8)
	gt.V(t, built).Equal(0)

	ctx := context.Background()
	_, err := lazy.Embed(ctx, "a")
	gt.NoError(t, err)
	_, err = lazy.EmbedBatch(ctx, []string{"b", "c"})
	gt.NoError(t, err)
	gt.V(t, built).Equal(1)
}

func TestLazyConstructionFailureSticks(t *testing.T) {
	built := 0
	lazy := adapter.NewLazy(8, func(ctx context.Context) (adapter.Embedding, error) {
		built++
		return nil, goerr.New("bad backend", goerr.T(model.TagConfiguration))
	})

	ctx := context.Background()
	_, err := lazy.Embed(ctx, "a")
	gt.Error(t, err)
	gt.True(t, model.IsConfiguration(err))

	// The failed constructor is not retried.
	_, err = lazy.Embed(ctx, "a")
	gt.Error(t, err)
	gt.V(t, built).Equal(1)
}

func TestUnknownBackend(t *testing.T) {
	_, err := adapter.New(context.Background(), adapter.Config{Backend: "carrier-pigeon"})
	gt.Error(t, err)
	gt.True(t, model.IsConfiguration(err))
}

func TestMockDeterminism(t *testing.T) {
	mock := adapter.NewMock(16)
	ctx := context.Background()

	a, err := mock.Embed(ctx, "same text")
	gt.NoError(t, err)
	b, err := mock.Embed(ctx, "same text")
	gt.NoError(t, err)
	gt.V(t, a).Equal(b)

	c, err := mock.Embed(ctx, "different text")
	gt.NoError(t, err)
	gt.NotEqual(t, a, c)
	gt.V(t, len(c)).Equal(16)
}
