package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeVector  SearchMode = "vector"  // Vector similarity only
	SearchModeKeyword SearchMode = "keyword" // BM25 text search only
	SearchModeHybrid  SearchMode = "hybrid"  // Vector + BM25 with RRF
)

const (
	// DefaultLimit is the number of results returned when none is requested
	DefaultLimit = 5
	// MaxLimit caps the number of results of one search
	MaxLimit = 100
	// DefaultRRFConstant is the k of Reciprocal Rank Fusion
	DefaultRRFConstant = 60
	// DefaultCacheSize is the number of cached responses
	DefaultCacheSize = 1000
	// DefaultCacheTTL is how long a cached response stays valid
	DefaultCacheTTL = time.Hour
)

var (
	// ErrEmptyQuery is returned for a blank query
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrNoEmbedder is returned for vector searches without an embedder
	ErrNoEmbedder = errors.New("embedder not initialized")
	// ErrInvalidMode is returned for an unknown search mode
	ErrInvalidMode = errors.New("unsupported search mode")
)

// ParseMode converts a mode name, accepting "" as the default vector mode
func ParseMode(s string) (SearchMode, error) {
	switch mode := SearchMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return SearchModeVector, nil
	case SearchModeVector, SearchModeKeyword, SearchModeHybrid:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query        string
	Limit        int
	Mode         SearchMode
	Filters      *storage.SearchFilters
	CollectionID int64
	UseCache     bool
	RRFConstant  float64 // k value for Reciprocal Rank Fusion (default 60)
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results       []types.SearchResult
	TotalResults  int
	SearchMode    SearchMode
	Duration      time.Duration
	CacheHit      bool
	VectorResults int
	TextResults   int
}

// Searcher answers queries against a stored collection
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	cache    *expirable.LRU[[32]byte, *SearchResponse]
}

// Option configures a Searcher
type Option func(*options)

type options struct {
	cacheSize int
	cacheTTL  time.Duration
}

// WithCache sets the response cache size and entry lifetime
func WithCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheSize = size
		o.cacheTTL = ttl
	}
}

// NewSearcher creates a Searcher. emb may be nil when only keyword search is used.
func NewSearcher(store storage.Storage, emb embedder.Embedder, opts ...Option) *Searcher {
	o := options{cacheSize: DefaultCacheSize, cacheTTL: DefaultCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultCacheSize
	}
	if o.cacheTTL <= 0 {
		o.cacheTTL = DefaultCacheTTL
	}

	return &Searcher{
		storage:  store,
		embedder: emb,
		cache:    expirable.NewLRU[[32]byte, *SearchResponse](o.cacheSize, nil, o.cacheTTL),
	}
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.Mode != SearchModeKeyword && s.embedder == nil {
		return nil, ErrNoEmbedder
	}

	var hash [32]byte
	if req.UseCache {
		hash = computeQueryHash(req)
		if cached, ok := s.cache.Get(hash); ok {
			response := copySearchResponse(cached)
			response.CacheHit = true
			response.Duration = time.Since(startTime)
			return response, nil
		}
	}

	var response *SearchResponse
	var err error

	switch req.Mode {
	case SearchModeHybrid:
		response, err = s.hybridSearch(ctx, req)
	case SearchModeVector:
		response, err = s.vectorSearch(ctx, req)
	case SearchModeKeyword:
		response, err = s.keywordSearch(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.SearchMode = req.Mode

	if req.UseCache && len(response.Results) > 0 {
		s.cache.Add(hash, copySearchResponse(response))
	}

	return response, nil
}

// searchResult holds results from concurrent search operations
type searchResult struct {
	vectorResults []storage.VectorResult
	textResults   []storage.TextResult
	err           error
}

// queryVector embeds the query text
func (s *Searcher) queryVector(ctx context.Context, query string) ([]float32, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return embedding.Vector, nil
}

// runVectorSearch executes vector search in a goroutine
func (s *Searcher) runVectorSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchResult) {
	var res searchResult
	vector, err := s.queryVector(ctx, req.Query)
	if err != nil {
		res.err = err
	} else {
		res.vectorResults, res.err = s.storage.SearchVector(ctx, req.CollectionID, vector, req.Limit*2, req.Filters)
	}
	resultChan <- res
}

// runTextSearch executes text search in a goroutine
func (s *Searcher) runTextSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchResult) {
	var res searchResult
	res.textResults, res.err = s.storage.SearchText(ctx, req.CollectionID, req.Query, req.Limit*2, req.Filters)
	resultChan <- res
}

// hybridSearch combines vector and BM25 search using Reciprocal Rank Fusion
func (s *Searcher) hybridSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	vectorChan := make(chan searchResult, 1)
	textChan := make(chan searchResult, 1)

	go s.runVectorSearch(ctx, req, vectorChan)
	go s.runTextSearch(ctx, req, textChan)

	var vectorRes, textRes searchResult
	var vectorDone, textDone bool
	for !vectorDone || !textDone {
		select {
		case vectorRes = <-vectorChan:
			vectorDone = true
		case textRes = <-textChan:
			textDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// One side may fail; the other still answers
	if vectorRes.err != nil && textRes.err != nil {
		return nil, fmt.Errorf("both searches failed: vector=%w, text=%v", vectorRes.err, textRes.err)
	}

	rrf := applyRRF(vectorRes.vectorResults, textRes.textResults, req.RRFConstant)
	results, err := s.fetchResults(ctx, rrf, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:       results,
		TotalResults:  len(results),
		VectorResults: len(vectorRes.vectorResults),
		TextResults:   len(textRes.textResults),
	}, nil
}

// vectorSearch performs only vector similarity search
func (s *Searcher) vectorSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	vector, err := s.queryVector(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	vectorResults, err := s.storage.SearchVector(ctx, req.CollectionID, vector, req.Limit, req.Filters)
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(vectorResults))
	for i, vr := range vectorResults {
		// Cosine similarity can be negative; relevance is reported in [0, 1]
		ranked[i] = rankedResult{chunkID: vr.ChunkID, score: max(vr.SimilarityScore, 0)}
	}

	results, err := s.fetchResults(ctx, ranked, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:       results,
		TotalResults:  len(results),
		VectorResults: len(vectorResults),
	}, nil
}

// keywordSearch performs only BM25 text search
func (s *Searcher) keywordSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	textResults, err := s.storage.SearchText(ctx, req.CollectionID, req.Query, req.Limit, req.Filters)
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(textResults))
	for i, tr := range textResults {
		ranked[i] = rankedResult{chunkID: tr.ChunkID, score: tr.BM25Score}
	}

	results, err := s.fetchResults(ctx, ranked, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		TextResults:  len(textResults),
	}, nil
}

// rankedResult represents a chunk with its relevance score
type rankedResult struct {
	chunkID int64
	score   float64
}

// applyRRF combines vector and text rankings: RRF(d) = Σ 1/(k + rank(d))
func applyRRF(vectorResults []storage.VectorResult, textResults []storage.TextResult, k float64) []rankedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[int64]float64)
	for rank, vr := range vectorResults {
		scores[vr.ChunkID] += 1.0 / (k + float64(rank+1))
	}
	for rank, tr := range textResults {
		scores[tr.ChunkID] += 1.0 / (k + float64(rank+1))
	}

	results := make([]rankedResult, 0, len(scores))
	for chunkID, score := range scores {
		results = append(results, rankedResult{chunkID: chunkID, score: score})
	}

	sortRankedResults(results)
	return results
}

// fetchResults loads chunk data for ranked results. Ranks are 1-based and
// stay contiguous when a chunk cannot be loaded.
func (s *Searcher) fetchResults(ctx context.Context, ranked []rankedResult, limit int) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, min(limit, len(ranked)))

	for _, rr := range ranked {
		if len(results) == limit {
			break
		}

		chunk, err := s.storage.GetChunk(ctx, rr.chunkID)
		if errors.Is(err, storage.ErrNotFound) {
			continue // Removed by a concurrent ingest
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load chunk %d: %w", rr.chunkID, err)
		}

		results = append(results, types.SearchResult{
			ID:             chunk.Key,
			Rank:           len(results) + 1,
			RelevanceScore: rr.score,
			Text:           chunk.Text,
			Source:         chunk.Source,
			Heading:        chunk.Heading,
		})
	}

	return results, nil
}

// validateRequest fills defaults and rejects unusable requests
func validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return err
	}
	req.Mode = mode

	if req.RRFConstant <= 0 {
		req.RRFConstant = DefaultRRFConstant
	}

	return nil
}

// copySearchResponse creates a copy that shares nothing mutable with src
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = append([]types.SearchResult(nil), src.Results...)
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	fmt.Fprintf(&data, "%s|%s|%d|%d|%g", req.Query, req.Mode, req.CollectionID, req.Limit, req.RRFConstant)

	if req.Filters != nil {
		fmt.Fprintf(&data, "|filters:%s|%s|%.2f",
			req.Filters.SourcePattern,
			strings.Join(req.Filters.Headings, ","),
			req.Filters.MinRelevance)
	}

	return sha256.Sum256([]byte(data.String()))
}

// sortRankedResults sorts by score descending. Equal scores keep corpus order.
func sortRankedResults(results []rankedResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})
}

// InvalidateCache drops every cached response. Called after each ingest.
func (s *Searcher) InvalidateCache() {
	s.cache.Purge()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	return s.cache.Len()
}
