package adapter

import (
	"context"
	"sync"
)

// Lazy defers backend construction to the first embedding call, so a
// misconfigured but unused backend never blocks process startup. It is
// injected once and shared by both managers; construction runs at most
// once and a construction failure is returned on every subsequent call.
type Lazy struct {
	build     func(context.Context) (Embedding, error)
	dimension int

	once  sync.Once
	inner Embedding
	err   error
}

// NewLazy wraps a backend constructor. The dimension is declared up front
// so collections can be sized before the backend exists.
func NewLazy(dimension int, build func(context.Context) (Embedding, error)) *Lazy {
	return &Lazy{build: build, dimension: dimension}
}

func (l *Lazy) get(ctx context.Context) (Embedding, error) {
	l.once.Do(func() {
		l.inner, l.err = l.build(ctx)
	})
	return l.inner, l.err
}

func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return emb.Embed(ctx, text)
}

func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	emb, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return emb.EmbedBatch(ctx, texts)
}

func (l *Lazy) Dimension() int {
	return l.dimension
}
