package adapter

import (
	"context"
	"hash/fnv"
	"math"
)

// Mock is a deterministic embedding backend for tests: the vector is a
// pure function of the text, so identical texts always land at the same
// point and similarity queries behave repeatably without any model.
type Mock struct {
	dimension int
}

func NewMock(dimension int) *Mock {
	return &Mock{dimension: dimension}
}

func (m *Mock) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimension)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalizeMock(vec), nil
}

func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (m *Mock) Dimension() int {
	return m.dimension
}

func normalizeMock(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
