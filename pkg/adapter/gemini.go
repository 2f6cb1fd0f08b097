package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/model"
	"google.golang.org/genai"
)

type geminiEmbedding struct {
	client    *genai.Client
	model     string
	dimension int
	verified  bool
}

// NewGemini creates an embedding backend calling the Gemini API. The
// declared dimension is requested via OutputDimensionality and verified
// against the first response.
func NewGemini(ctx context.Context, apiKey, modelName string, dimension int) (Embedding, error) {
	if apiKey == "" {
		return nil, goerr.New("gemini api key is required", goerr.T(model.TagConfiguration))
	}
	if dimension <= 0 {
		return nil, goerr.New("gemini embedding dimension must be positive",
			goerr.T(model.TagConfiguration), goerr.V("dimension", dimension))
	}
	if modelName == "" {
		modelName = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client", goerr.T(model.TagConfiguration))
	}

	return &geminiEmbedding{
		client:    client,
		model:     modelName,
		dimension: dimension,
	}, nil
}

func (g *geminiEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *geminiEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(g.dimension)),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content",
			goerr.T(model.TagUnavailable), goerr.V("model", g.model))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, goerr.New("embedding count does not match input count",
			goerr.T(model.TagUnavailable),
			goerr.V("want", len(texts)), goerr.V("got", len(resp.Embeddings)))
	}

	vecs := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if !g.verified {
			if len(emb.Values) != g.dimension {
				return nil, goerr.New("declared dimension does not match gemini response",
					goerr.T(model.TagConfiguration),
					goerr.V("declared", g.dimension), goerr.V("actual", len(emb.Values)))
			}
			g.verified = true
		}
		vecs[i] = emb.Values
	}

	return vecs, nil
}

func (g *geminiEmbedding) Dimension() int {
	return g.dimension
}
