package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/model"
)

// Embedding produces a fixed-length vector for a text string. All pipeline
// calls within one process share a single instance; collections assume
// every vector they hold came from the same backend.
type Embedding interface {
	// Embed converts a single text into a vector of Dimension() components.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts in order; the result has the same length
	// and ordering as the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector length this backend produces.
	Dimension() int
}

// Backend identifies one of the supported embedding implementations.
type Backend string

const (
	// BackendGemini calls the Gemini embeddings API with an API key.
	BackendGemini Backend = "gemini"

	// BackendHTTP posts to any OpenAI-compatible /v1/embeddings endpoint
	// (LM Studio, Ollama, vLLM, and similar).
	BackendHTTP Backend = "http"

	// BackendLocal runs a sentence-embedding model in-process via ONNX
	// Runtime. Requires building with -tags onnx.
	BackendLocal Backend = "local"
)

// Config selects and parameterizes the embedding backend. For the HTTP and
// Gemini backends the dimension is operator-declared and verified against
// the first actual response.
type Config struct {
	Backend Backend

	HTTPURL       string
	HTTPModel     string
	HTTPAPIKey    string
	HTTPDimension int

	GeminiAPIKey    string
	GeminiModel     string
	GeminiDimension int

	ONNXModelPath     string
	ONNXTokenizerPath string
	ONNXLibraryPath   string
}

// LocalDimension is fixed by the bundled all-MiniLM-L6-v2 style model.
const LocalDimension = 384

// Dimension returns the vector length the configured backend will produce,
// without constructing it.
func (c Config) Dimension() int {
	switch c.Backend {
	case BackendGemini:
		return c.GeminiDimension
	case BackendHTTP:
		return c.HTTPDimension
	default:
		return LocalDimension
	}
}

// New constructs the configured backend. Selection happens exactly once
// here; an unknown backend kind is a configuration error.
func New(ctx context.Context, cfg Config) (Embedding, error) {
	switch cfg.Backend {
	case BackendGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiDimension)
	case BackendHTTP:
		return NewHTTP(cfg.HTTPURL, cfg.HTTPModel, cfg.HTTPAPIKey, cfg.HTTPDimension)
	case BackendLocal:
		return NewLocal(cfg.ONNXModelPath, cfg.ONNXTokenizerPath, cfg.ONNXLibraryPath)
	default:
		return nil, goerr.New("unknown embedding backend",
			goerr.T(model.TagConfiguration), goerr.V("backend", cfg.Backend))
	}
}
