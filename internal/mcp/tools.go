package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/corpus"
	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeCorpusNotFound    = -32001 // Corpus directory missing or without documents
	ErrorCodeIngestInProgress  = -32002 // Another ingestion is already running
	ErrorCodeNotIngested       = -32003 // Collection has not been ingested yet
	ErrorCodeEmptyQuery        = -32004 // Query parameter is empty
	ErrorCodeEmbeddingsMissing = -32005 // Embedder unavailable for a vector search
)

const maxReportedErrors = 5

// handleIngestCorpus handles the ingest_corpus tool invocation
func (s *Server) handleIngestCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	cfg := s.cfg.IngestConfig()

	if dir := getStringDefault(args, "corpus_dir", ""); dir != "" {
		if err := validateDir(dir); err != nil {
			return nil, newMCPError(ErrorCodeCorpusNotFound, "invalid corpus_dir", map[string]interface{}{
				"param":  "corpus_dir",
				"reason": err.Error(),
			})
		}
		cfg.Source.Root = dir
	} else {
		c := s.cfg.Corpus
		if err := corpus.EnsureCloned(ctx, c.Dir, c.Repo, c.Tag, s.logger); err != nil {
			return nil, newMCPError(ErrorCodeCorpusNotFound, "corpus unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	stats, err := s.indexer.Ingest(ctx, cfg)
	switch {
	case errors.Is(err, indexer.ErrIngestInProgress):
		return nil, newMCPError(ErrorCodeIngestInProgress, "ingestion already in progress", nil)
	case errors.Is(err, indexer.ErrNoDocuments), errors.Is(err, indexer.ErrNoChunks):
		return nil, newMCPError(ErrorCodeCorpusNotFound, "nothing to ingest", map[string]interface{}{
			"corpus_dir": cfg.Source.Root,
			"error":      err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"ingested":             true,
		"run_id":               stats.RunID,
		"collection":           stats.Collection,
		"documents_loaded":     stats.DocumentsLoaded,
		"documents_skipped":    stats.DocumentsSkipped,
		"chunks_created":       stats.ChunksCreated,
		"embeddings_generated": stats.EmbeddingsGenerated,
		"duration_ms":          stats.Duration.Milliseconds(),
	}

	if n := len(stats.ErrorMessages); n > 0 {
		if n > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = n
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocs handles the search_docs tool invocation
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := getStringDefault(args, "query", "")
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.cfg.Query.Results)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode, err := searcher.ParseMode(getStringDefault(args, "search_mode", s.cfg.Query.Mode))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   args["search_mode"],
			"allowed": []string{"vector", "keyword", "hybrid"},
		})
	}

	filters, err := parseFilters(args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid filters", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	collection, err := s.storage.GetCollection(ctx, s.cfg.Store.Collection)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIngested, "collection not ingested", map[string]interface{}{
			"collection": s.cfg.Store.Collection,
			"hint":       "run the ingest_corpus tool first",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load collection", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:        query,
		Limit:        limit,
		Mode:         mode,
		Filters:      filters,
		CollectionID: collection.ID,
		UseCache:     true,
	})
	if errors.Is(err, searcher.ErrNoEmbedder) {
		return nil, newMCPError(ErrorCodeEmbeddingsMissing, "no embedder configured for this search mode", map[string]interface{}{
			"search_mode": string(mode),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := resp.Results
	if results == nil {
		results = []types.SearchResult{}
	}

	response := map[string]interface{}{
		"query":         query,
		"search_mode":   string(resp.SearchMode),
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	}
	if w := s.modelMismatch(collection); w != "" {
		response["warning"] = w
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleChunkDocument handles the chunk_document tool invocation
func (s *Server) handleChunkDocument(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}

	source := getStringDefault(args, "source", "")
	if source == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source parameter is required", map[string]interface{}{
			"param":  "source",
			"reason": "missing or empty",
		})
	}

	cfg := s.chunker.Config()
	cfg.MinChars = getIntDefault(args, "min_chars", cfg.MinChars)
	cfg.MaxChars = getIntDefault(args, "max_chars", cfg.MaxChars)
	if err := cfg.Validate(); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunk bounds", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	// Zero bounds fall back to defaults; report and check what is actually used
	ch := chunker.New(cfg)
	effective := ch.Config()
	if err := effective.Validate(); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunk bounds", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	chunks := ch.ChunkDocument(types.Document{Source: source, Text: corpus.DecodeText([]byte(text))})
	if chunks == nil {
		chunks = []types.Chunk{}
	}

	response := map[string]interface{}{
		"source":    source,
		"min_chars": effective.MinChars,
		"max_chars": effective.MaxChars,
		"count":     len(chunks),
		"chunks":    chunks,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection, err := s.storage.GetCollection(ctx, s.cfg.Store.Collection)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"ingested":   false,
			"collection": s.cfg.Store.Collection,
			"message":    "Collection not ingested. Use the ingest_corpus tool to build it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get collection", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, collection.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"ingested":      !collection.LastIngestedAt.IsZero(),
		"ingest_active": s.indexer.Running(),
		"collection": map[string]interface{}{
			"name":                collection.Name,
			"description":         collection.Description,
			"embedding_provider":  collection.EmbeddingProvider,
			"embedding_model":     collection.EmbeddingModel,
			"embedding_dimension": collection.EmbeddingDimension,
			"index_version":       collection.IndexVersion,
			"last_ingested_at":    formatTime(collection.LastIngestedAt),
		},
		"statistics": map[string]interface{}{
			"documents_count":  status.DocumentsCount,
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
	}

	if run := status.LastRun; run != nil {
		last := map[string]interface{}{
			"id":          run.ID,
			"status":      run.Status,
			"documents":   run.Documents,
			"chunks":      run.Chunks,
			"skipped":     run.Skipped,
			"started_at":  formatTime(run.StartedAt),
			"duration_ms": run.Duration().Milliseconds(),
		}
		if run.Error != "" {
			last["error"] = run.Error
		}
		response["last_run"] = last
	}

	if w := s.modelMismatch(collection); w != "" {
		response["warning"] = w
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// modelMismatch describes a difference between the model that embedded the
// collection and the one answering queries, or returns ""
func (s *Server) modelMismatch(c *storage.Collection) string {
	if c.EmbeddingModel == "" || s.embedder == nil {
		return ""
	}
	if c.EmbeddingProvider == s.embedder.Provider() && c.EmbeddingModel == s.embedder.Model() {
		return ""
	}
	return fmt.Sprintf("collection was embedded with %s/%s but queries use %s/%s; re-ingest for accurate vector results",
		c.EmbeddingProvider, c.EmbeddingModel, s.embedder.Provider(), s.embedder.Model())
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

var (
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)

// validateDir checks that a corpus directory exists and can be listed
func validateDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// parseFilters builds search filters from the optional tool arguments
func parseFilters(args map[string]interface{}) (*storage.SearchFilters, error) {
	filters := &storage.SearchFilters{
		SourcePattern: getStringDefault(args, "source_pattern", ""),
	}

	switch raw := args["headings"].(type) {
	case nil:
	case []interface{}:
		for _, h := range raw {
			heading, ok := h.(string)
			if !ok {
				return nil, fmt.Errorf("headings must be strings, got %T", h)
			}
			filters.Headings = append(filters.Headings, heading)
		}
	case []string:
		filters.Headings = raw
	default:
		return nil, fmt.Errorf("headings must be an array, got %T", raw)
	}

	if v, ok := args["min_relevance"].(float64); ok {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("min_relevance must be within [0, 1], got %g", v)
		}
		filters.MinRelevance = v
	}

	if filters.SourcePattern == "" && len(filters.Headings) == 0 && filters.MinRelevance == 0 {
		return nil, nil
	}
	return filters, nil
}

// arguments returns the tool arguments; a call without any is an empty map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
