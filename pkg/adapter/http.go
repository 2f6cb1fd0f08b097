package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/model"
)

type httpEmbedding struct {
	endpoint  string
	model     string
	apiKey    string
	dimension int
	client    *http.Client
	verified  bool
}

// NewHTTP creates an embedding backend posting to an OpenAI-compatible
// /v1/embeddings endpoint (LM Studio, Ollama, vLLM, and similar). The
// declared dimension is verified against the first response; a mismatch is
// a configuration error, not a truncation.
func NewHTTP(endpoint, modelName, apiKey string, dimension int) (Embedding, error) {
	if endpoint == "" {
		return nil, goerr.New("embedding endpoint url is required", goerr.T(model.TagConfiguration))
	}
	if dimension <= 0 {
		return nil, goerr.New("http embedding dimension must be positive",
			goerr.T(model.TagConfiguration), goerr.V("dimension", dimension))
	}

	return &httpEmbedding{
		endpoint:  endpoint,
		model:     modelName,
		apiKey:    apiKey,
		dimension: dimension,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *httpEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (h *httpEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: h.model, Input: texts})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode embeddings request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build embeddings request", goerr.T(model.TagConfiguration))
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "embedding endpoint unreachable",
			goerr.T(model.TagUnavailable), goerr.V("url", h.endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, goerr.New("embedding endpoint returned an error",
			goerr.T(model.TagUnavailable),
			goerr.V("status", resp.StatusCode), goerr.V("body", string(raw)))
	}

	var decoded embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, goerr.Wrap(err, "failed to decode embeddings response", goerr.T(model.TagUnavailable))
	}
	if len(decoded.Data) != len(texts) {
		return nil, goerr.New("embedding count does not match input count",
			goerr.T(model.TagUnavailable),
			goerr.V("want", len(texts)), goerr.V("got", len(decoded.Data)))
	}

	vecs := make([][]float32, len(texts))
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= len(vecs) {
			return nil, goerr.New("embedding index out of range",
				goerr.T(model.TagUnavailable), goerr.V("index", item.Index))
		}
		if !h.verified {
			if len(item.Embedding) != h.dimension {
				return nil, goerr.New("declared dimension does not match endpoint response",
					goerr.T(model.TagConfiguration),
					goerr.V("declared", h.dimension), goerr.V("actual", len(item.Embedding)))
			}
			h.verified = true
		}
		vecs[item.Index] = item.Embedding
	}

	return vecs, nil
}

func (h *httpEmbedding) Dimension() int {
	return h.dimension
}
