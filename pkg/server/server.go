// Package server exposes the knowledge and memory pipelines as MCP tools
// over a stdio transport. Every tool result is a single JSON text block.
package server

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/m-mizutani/tamias/pkg/model"
	"github.com/m-mizutani/tamias/pkg/usecase/knowledge"
	"github.com/m-mizutani/tamias/pkg/usecase/memory"
	"github.com/m-mizutani/tamias/pkg/utils/logging"
)

// DefaultTopK is used when a search tool is called without top_k.
const DefaultTopK = 5

// Info is the static runtime configuration reported by the status tool.
// The live collection stats are filled in per call.
type Info struct {
	DataDir      string
	Backend      string
	Dimension    int
	ChunkSize    int
	ChunkOverlap int
}

type Server struct {
	knowledge *knowledge.UseCase
	memory    *memory.UseCase
	info      Info
}

func New(kn *knowledge.UseCase, mem *memory.UseCase, info Info) *Server {
	return &Server{
		knowledge: kn,
		memory:    mem,
		info:      info,
	}
}

// Run serves MCP over stdin/stdout until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context, version string) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "tamias",
		Version: version,
	}, nil)
	s.register(srv)

	logging.From(ctx).Info("serving MCP on stdio",
		"backend", s.info.Backend, "dimension", s.info.Dimension)

	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server failed")
	}
	return nil
}

func (s *Server) register(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "knowledge_ingest",
		Description: "Chunk a document, embed the chunks, and store them in the knowledge base. Re-ingesting the same source replaces its previous chunks.",
	}, s.knowledgeIngest)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "knowledge_ingest_file",
		Description: "Read a UTF-8 text file from the local filesystem and ingest it into the knowledge base.",
	}, s.knowledgeIngestFile)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "knowledge_search",
		Description: "Search the knowledge base by semantic similarity and return the best matching chunks.",
	}, s.knowledgeSearch)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "knowledge_delete_source",
		Description: "Delete every knowledge chunk that was ingested under a source label.",
	}, s.knowledgeDeleteSource)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "knowledge_stats",
		Description: "Report the number of stored chunks, the embedding dimension, and the storage path of the knowledge base.",
	}, s.knowledgeStats)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "memory_remember",
		Description: "Store a fact in long-lived memory. Storing the exact same text again is a no-op.",
	}, s.memoryRemember)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "memory_recall",
		Description: "Recall memories by semantic similarity, optionally restricted to one category.",
	}, s.memoryRecall)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "memory_forget",
		Description: "Delete one memory by its ID.",
	}, s.memoryForget)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "memory_forget_category",
		Description: "Delete every memory in a category.",
	}, s.memoryForgetCategory)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Report the number of stored memories, the embedding dimension, and the storage path of the memory store.",
	}, s.memoryStats)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "status",
		Description: "Report the runtime configuration and the state of both collections.",
	}, s.status)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to encode tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

type ingestParams struct {
	Text   string `json:"text" jsonschema:"Document text to ingest"`
	Source string `json:"source,omitempty" jsonschema:"Source label for the document (default: manual)"`
}

type ingestResult struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

func (s *Server) knowledgeIngest(ctx context.Context, req *mcp.CallToolRequest, params *ingestParams) (*mcp.CallToolResult, any, error) {
	n, err := s.knowledge.Ingest(ctx, params.Text, params.Source)
	if err != nil {
		return nil, nil, err
	}
	source := params.Source
	if source == "" {
		source = model.DefaultSource
	}
	return jsonResult(ingestResult{Source: source, Chunks: n})
}

type ingestFileParams struct {
	Path   string `json:"path" jsonschema:"Path to a UTF-8 text file on the local filesystem"`
	Source string `json:"source,omitempty" jsonschema:"Source label for the document (default: the file path)"`
}

func (s *Server) knowledgeIngestFile(ctx context.Context, req *mcp.CallToolRequest, params *ingestFileParams) (*mcp.CallToolResult, any, error) {
	n, err := s.knowledge.IngestFile(ctx, params.Path, params.Source)
	if err != nil {
		return nil, nil, err
	}
	source := params.Source
	if source == "" {
		source = params.Path
	}
	return jsonResult(ingestResult{Source: source, Chunks: n})
}

type searchParams struct {
	Query string `json:"query" jsonschema:"Search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Maximum number of results (default: 5)"`
}

type searchResult struct {
	Hits []model.ChunkHit `json:"hits"`
}

func (s *Server) knowledgeSearch(ctx context.Context, req *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	topk := params.TopK
	if topk == 0 {
		topk = DefaultTopK
	}
	hits, err := s.knowledge.Search(ctx, params.Query, topk)
	if err != nil {
		return nil, nil, err
	}
	if hits == nil {
		hits = []model.ChunkHit{}
	}
	return jsonResult(searchResult{Hits: hits})
}

type deleteSourceParams struct {
	Source string `json:"source" jsonschema:"Source label whose chunks are removed"`
}

type deleteSourceResult struct {
	Source  string `json:"source"`
	Deleted int    `json:"deleted"`
}

func (s *Server) knowledgeDeleteSource(ctx context.Context, req *mcp.CallToolRequest, params *deleteSourceParams) (*mcp.CallToolResult, any, error) {
	n, err := s.knowledge.DeleteSource(ctx, params.Source)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(deleteSourceResult{Source: params.Source, Deleted: n})
}

type emptyParams struct{}

func (s *Server) knowledgeStats(ctx context.Context, req *mcp.CallToolRequest, params *emptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.knowledge.Stats(ctx))
}

type rememberParams struct {
	Text     string `json:"text" jsonschema:"Fact to remember"`
	Category string `json:"category,omitempty" jsonschema:"Category label (default: general)"`
}

type rememberResult struct {
	ID      model.MemoryID `json:"id"`
	Created bool           `json:"created"`
}

func (s *Server) memoryRemember(ctx context.Context, req *mcp.CallToolRequest, params *rememberParams) (*mcp.CallToolResult, any, error) {
	id, created, err := s.memory.Remember(ctx, params.Text, params.Category)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(rememberResult{ID: id, Created: created})
}

type recallParams struct {
	Query    string `json:"query" jsonschema:"Recall query"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"Maximum number of results (default: 5)"`
	Category string `json:"category,omitempty" jsonschema:"Restrict results to one category"`
}

type recallResult struct {
	Hits []model.MemoryHit `json:"hits"`
}

func (s *Server) memoryRecall(ctx context.Context, req *mcp.CallToolRequest, params *recallParams) (*mcp.CallToolResult, any, error) {
	topk := params.TopK
	if topk == 0 {
		topk = DefaultTopK
	}
	hits, err := s.memory.Recall(ctx, params.Query, topk, params.Category)
	if err != nil {
		return nil, nil, err
	}
	if hits == nil {
		hits = []model.MemoryHit{}
	}
	return jsonResult(recallResult{Hits: hits})
}

type forgetParams struct {
	ID string `json:"id" jsonschema:"Memory ID to delete"`
}

type forgetResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (s *Server) memoryForget(ctx context.Context, req *mcp.CallToolRequest, params *forgetParams) (*mcp.CallToolResult, any, error) {
	deleted, err := s.memory.Forget(ctx, model.MemoryID(params.ID))
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(forgetResult{ID: params.ID, Deleted: deleted})
}

type forgetCategoryParams struct {
	Category string `json:"category" jsonschema:"Category whose memories are removed"`
}

type forgetCategoryResult struct {
	Category string `json:"category"`
	Deleted  int    `json:"deleted"`
}

func (s *Server) memoryForgetCategory(ctx context.Context, req *mcp.CallToolRequest, params *forgetCategoryParams) (*mcp.CallToolResult, any, error) {
	n, err := s.memory.ForgetCategory(ctx, params.Category)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(forgetCategoryResult{Category: params.Category, Deleted: n})
}

func (s *Server) memoryStats(ctx context.Context, req *mcp.CallToolRequest, params *emptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.memory.Stats(ctx))
}

func (s *Server) status(ctx context.Context, req *mcp.CallToolRequest, params *emptyParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(&model.Status{
		DataDir:      s.info.DataDir,
		Backend:      s.info.Backend,
		Dimension:    s.info.Dimension,
		ChunkSize:    s.info.ChunkSize,
		ChunkOverlap: s.info.ChunkOverlap,
		Knowledge:    s.knowledge.Stats(ctx),
		Memory:       s.memory.Stats(ctx),
	})
}
