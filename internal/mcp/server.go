package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/config"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	storage  storage.Storage
	embedder embedder.Embedder
	chunker  *chunker.Chunker
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	logger   *slog.Logger
}

// NewServer opens the configured store and embedder and registers the tools
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := storage.NewSQLiteStorage(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return newServer(cfg, store, emb, logger), nil
}

// newServer wires the components around an open store and embedder.
// The indexer and searcher share one embedder, and so one embedding cache.
func newServer(cfg *config.Config, store storage.Storage, emb embedder.Embedder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	ch := chunker.New(cfg.ChunkerConfig())

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		cfg:      cfg,
		storage:  store,
		embedder: emb,
		chunker:  ch,
		indexer:  indexer.New(store, emb, ch, logger),
		searcher: searcher.NewSearcher(store, emb),
		logger:   logger,
	}

	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("MCP server listening on stdio",
		"collection", s.cfg.Store.Collection,
		"store", s.cfg.StorePath())

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the store and the embedder
func (s *Server) Close() error {
	var errs []error
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}
	errs = append(errs, s.storage.Close())
	return errors.Join(errs...)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestCorpusTool(), s.handleIngestCorpus)
	s.mcp.AddTool(searchDocsTool(), s.handleSearchDocs)
	s.mcp.AddTool(chunkDocumentTool(), s.handleChunkDocument)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
