package storage

import (
	"context"
	"fmt"
	"time"
)

// Storage persists chunked corpora and answers similarity and keyword queries
type Storage interface {
	// Collection operations
	CreateCollection(ctx context.Context, collection *Collection) error
	GetCollection(ctx context.Context, name string) (*Collection, error)
	UpdateCollection(ctx context.Context, collection *Collection) error
	ResetCollection(ctx context.Context, collectionID int64) error

	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, collectionID int64, source string) (*Document, error)
	ListDocuments(ctx context.Context, collectionID int64) ([]*Document, error)

	// Chunk operations
	InsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*Chunk, error)
	GetChunkByKey(ctx context.Context, collectionID int64, key string) (*Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error)
	CountChunks(ctx context.Context, collectionID int64) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Ingest run operations
	CreateIngestRun(ctx context.Context, run *IngestRun) error
	FinishIngestRun(ctx context.Context, run *IngestRun) error
	ListIngestRuns(ctx context.Context, collectionID int64, limit int) ([]*IngestRun, error)

	// Status operations
	GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// Collection is a named set of chunks embedded with one model
type Collection struct {
	ID                 int64
	Name               string
	Description        string
	TotalDocuments     int
	TotalChunks        int
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int
	IndexVersion       string
	LastIngestedAt     time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Document is a corpus file that contributed chunks
type Document struct {
	ID           int64
	CollectionID int64
	Source       string // Relative to corpus root, forward slashes
	ContentHash  [32]byte
	SizeBytes    int64
	ChunkCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chunk is a stored passage with its metadata
type Chunk struct {
	ID           int64
	CollectionID int64
	DocumentID   int64
	Key          string // chunk_<n>, unique within the collection
	Position     int    // n of the key
	Text         string
	Source       string
	Heading      string
	ContentHash  [32]byte
	CharCount    int
	CreatedAt    time.Time
}

// Embedding is the vector of one chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Ingest run states
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// IngestRun records one ingestion of a collection
type IngestRun struct {
	ID           string // UUID
	CollectionID int64
	Status       string
	Documents    int
	Chunks       int
	Skipped      int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the run took, or zero while it is running
func (r *IngestRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SearchFilters narrows search results
type SearchFilters struct {
	SourcePattern string   // SQLite GLOB over chunk source paths
	Headings      []string // Exact heading matches
	MinRelevance  float64  // Minimum relevance score
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         int64
	SimilarityScore float64
}

// TextResult represents a result from full-text search
type TextResult struct {
	ChunkID   int64
	BM25Score float64 // Normalised to (0, 1], higher is better
}

// CollectionStatus contains statistics about a collection
type CollectionStatus struct {
	Collection      *Collection
	DocumentsCount  int
	ChunksCount     int
	EmbeddingsCount int
	IndexSizeMB     float64
	LastIngestedAt  time.Time
	LastRun         *IngestRun
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}

// ChunkKey returns the identifier of the chunk at position n
func ChunkKey(n int) string {
	return fmt.Sprintf("chunk_%d", n)
}
