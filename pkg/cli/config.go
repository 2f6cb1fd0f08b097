package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/tamias/pkg/adapter"
	"github.com/m-mizutani/tamias/pkg/chunk"
	"github.com/m-mizutani/tamias/pkg/model"
	"github.com/m-mizutani/tamias/pkg/repository"
	"github.com/m-mizutani/tamias/pkg/server"
	"github.com/m-mizutani/tamias/pkg/usecase/knowledge"
	"github.com/m-mizutani/tamias/pkg/usecase/memory"
	"github.com/m-mizutani/tamias/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	dataDir      string
	logLevel     string
	backend      string
	chunkSize    int64
	chunkOverlap int64

	httpURL    string
	httpModel  string
	httpAPIKey string
	httpDim    int64

	geminiAPIKey string
	geminiModel  string
	geminiDim    int64

	onnxModel     string
	onnxTokenizer string
	onnxLibrary   string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "data-dir",
			Aliases:     []string{"d"},
			Usage:       "Directory holding the vector collections (default: ~/.tamias)",
			Sources:     cli.EnvVars("TAMIAS_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("TAMIAS_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "embedding",
			Aliases:     []string{"e"},
			Usage:       "Embedding backend (local, http, gemini)",
			Value:       string(adapter.BackendLocal),
			Sources:     cli.EnvVars("TAMIAS_EMBEDDING"),
			Destination: &cfg.backend,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Maximum chunk size in bytes",
			Value:       512,
			Sources:     cli.EnvVars("TAMIAS_CHUNK_SIZE"),
			Destination: &cfg.chunkSize,
		},
		&cli.IntFlag{
			Name:        "chunk-overlap",
			Usage:       "Overlap between adjacent chunks in bytes",
			Value:       64,
			Sources:     cli.EnvVars("TAMIAS_CHUNK_OVERLAP"),
			Destination: &cfg.chunkOverlap,
		},
	}
}

// embeddingFlags returns flags for the embedding backends with destination config
func embeddingFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "http-url",
			Usage:       "OpenAI-compatible embeddings endpoint URL",
			Sources:     cli.EnvVars("TAMIAS_HTTP_URL"),
			Destination: &cfg.httpURL,
		},
		&cli.StringFlag{
			Name:        "http-model",
			Usage:       "Model name sent to the HTTP embeddings endpoint",
			Sources:     cli.EnvVars("TAMIAS_HTTP_MODEL"),
			Destination: &cfg.httpModel,
		},
		&cli.StringFlag{
			Name:        "http-api-key",
			Usage:       "Bearer token for the HTTP embeddings endpoint",
			Sources:     cli.EnvVars("TAMIAS_HTTP_API_KEY"),
			Destination: &cfg.httpAPIKey,
		},
		&cli.IntFlag{
			Name:        "http-dim",
			Usage:       "Vector dimension of the HTTP embeddings endpoint",
			Value:       768,
			Sources:     cli.EnvVars("TAMIAS_HTTP_DIM"),
			Destination: &cfg.httpDim,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini embedding model name",
			Sources:     cli.EnvVars("TAMIAS_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.IntFlag{
			Name:        "gemini-dim",
			Usage:       "Requested Gemini output dimensionality",
			Value:       768,
			Sources:     cli.EnvVars("TAMIAS_GEMINI_DIM"),
			Destination: &cfg.geminiDim,
		},
		&cli.StringFlag{
			Name:        "onnx-model",
			Usage:       "Path to the local ONNX embedding model",
			Sources:     cli.EnvVars("TAMIAS_ONNX_MODEL"),
			Destination: &cfg.onnxModel,
		},
		&cli.StringFlag{
			Name:        "onnx-tokenizer",
			Usage:       "Path to the tokenizer.json for the local model",
			Sources:     cli.EnvVars("TAMIAS_ONNX_TOKENIZER"),
			Destination: &cfg.onnxTokenizer,
		},
		&cli.StringFlag{
			Name:        "onnx-library",
			Usage:       "Path to the ONNX Runtime shared library",
			Sources:     cli.EnvVars("TAMIAS_ONNX_LIBRARY"),
			Destination: &cfg.onnxLibrary,
		},
	}
}

func (cfg *config) adapterConfig() adapter.Config {
	return adapter.Config{
		Backend:           adapter.Backend(cfg.backend),
		HTTPURL:           cfg.httpURL,
		HTTPModel:         cfg.httpModel,
		HTTPAPIKey:        cfg.httpAPIKey,
		HTTPDimension:     int(cfg.httpDim),
		GeminiAPIKey:      cfg.geminiAPIKey,
		GeminiModel:       cfg.geminiModel,
		GeminiDimension:   int(cfg.geminiDim),
		ONNXModelPath:     cfg.onnxModel,
		ONNXTokenizerPath: cfg.onnxTokenizer,
		ONNXLibraryPath:   cfg.onnxLibrary,
	}
}

func (cfg *config) resolveDataDir() (string, error) {
	if cfg.dataDir != "" {
		return cfg.dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve home directory",
			goerr.T(model.TagConfiguration))
	}
	return filepath.Join(home, ".tamias"), nil
}

// pipeline bundles the fully wired use cases behind one config.
type pipeline struct {
	knowledge *knowledge.UseCase
	memory    *memory.UseCase
	info      server.Info
}

// newPipeline wires the embedding backend, vector store, and both use
// cases. The backend itself is constructed lazily on first embed, so
// purely local operations never touch a model or the network.
func (cfg *config) newPipeline(ctx context.Context) (*pipeline, error) {
	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr))

	acfg := cfg.adapterConfig()
	dim := acfg.Dimension()
	if dim <= 0 {
		return nil, goerr.New("embedding dimension must be positive",
			goerr.T(model.TagConfiguration), goerr.V("dimension", dim))
	}

	emb := adapter.NewLazy(dim, func(ctx context.Context) (adapter.Embedding, error) {
		return adapter.New(ctx, acfg)
	})

	dataDir, err := cfg.resolveDataDir()
	if err != nil {
		return nil, err
	}

	store, err := repository.New(dataDir, dim)
	if err != nil {
		return nil, err
	}
	knCol, err := store.Collection("knowledge")
	if err != nil {
		return nil, err
	}
	memCol, err := store.Collection("memory")
	if err != nil {
		return nil, err
	}

	splitter, err := chunk.New(int(cfg.chunkSize), int(cfg.chunkOverlap))
	if err != nil {
		return nil, err
	}

	return &pipeline{
		knowledge: knowledge.New(emb, knCol, splitter),
		memory:    memory.New(emb, memCol),
		info: server.Info{
			DataDir:      dataDir,
			Backend:      cfg.backend,
			Dimension:    dim,
			ChunkSize:    int(cfg.chunkSize),
			ChunkOverlap: int(cfg.chunkOverlap),
		},
	}, nil
}
