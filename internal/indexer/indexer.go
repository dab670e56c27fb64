package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/corpus"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

var (
	// ErrNoDocuments is returned when the corpus contains no readable document
	ErrNoDocuments = errors.New("no documents found")
	// ErrNoChunks is returned when every document chunked to nothing
	ErrNoChunks = errors.New("no chunks produced")
	// ErrIngestInProgress is returned when another ingestion is running
	ErrIngestInProgress = errors.New("ingestion already in progress")
)

const (
	// DefaultCollection is the collection name used when none is configured
	DefaultCollection = "cangjie_corpus"
	// DefaultStoreBatchSize is the number of chunks written between progress lines
	DefaultStoreBatchSize = 4000
)

// Indexer coordinates the ingest pipeline: load -> chunk -> embed -> store
type Indexer struct {
	chunker  *chunker.Chunker
	storage  storage.Storage
	embedder embedder.Embedder
	logger   *slog.Logger
	lock     IndexLock
}

// Config contains the settings of one ingestion
type Config struct {
	Source         corpus.Source
	Collection     string // Default: DefaultCollection
	Description    string
	Workers        int // Concurrent chunking workers (default: runtime.NumCPU())
	EmbedBatchSize int // Texts per embedding request (default: embedder.DefaultBatchSize)
	StoreBatchSize int // Chunks per progress line (default: DefaultStoreBatchSize)
}

// Statistics contains statistics about one ingestion
type Statistics struct {
	RunID               string
	Collection          string
	DocumentsLoaded     int
	DocumentsSkipped    int
	ChunksCreated       int
	EmbeddingsGenerated int
	Duration            time.Duration
	ErrorMessages       []string // One entry per skipped document
}

// New creates an Indexer. emb may be nil, in which case chunks are stored
// without vectors and only keyword search can find them.
func New(store storage.Storage, emb embedder.Embedder, ch *chunker.Chunker, logger *slog.Logger) *Indexer {
	if ch == nil {
		ch = chunker.New(chunker.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		chunker:  ch,
		storage:  store,
		embedder: emb,
		logger:   logger,
	}
}

// Running reports whether an ingestion is in progress
func (idx *Indexer) Running() bool {
	return idx.lock.Held()
}

// withDefaults returns a copy of cfg with zero values replaced
func (cfg *Config) withDefaults() Config {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = embedder.DefaultBatchSize
	}
	if c.EmbedBatchSize > embedder.MaxBatchSize {
		c.EmbedBatchSize = embedder.MaxBatchSize
	}
	if c.StoreBatchSize <= 0 {
		c.StoreBatchSize = DefaultStoreBatchSize
	}
	return c
}

// Ingest rebuilds a collection from the corpus. The collection is replaced as
// a whole: chunk keys run from chunk_0 in corpus order on every run.
func (idx *Indexer) Ingest(ctx context.Context, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIngestInProgress
	}
	defer idx.lock.Release()

	cfg := config.withDefaults()
	startTime := time.Now()

	collection, err := idx.getOrCreateCollection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}

	run := &storage.IngestRun{
		ID:           uuid.NewString(),
		CollectionID: collection.ID,
		Status:       storage.RunRunning,
		StartedAt:    startTime,
	}
	if err := idx.storage.CreateIngestRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record ingest run: %w", err)
	}

	stats := &Statistics{
		RunID:         run.ID,
		Collection:    collection.Name,
		ErrorMessages: make([]string, 0),
	}

	ingestErr := idx.ingest(ctx, cfg, collection, stats)
	stats.Duration = time.Since(startTime)

	run.Documents = stats.DocumentsLoaded
	run.Chunks = stats.ChunksCreated
	run.Skipped = stats.DocumentsSkipped
	run.Status = storage.RunCompleted
	if ingestErr != nil {
		run.Status = storage.RunFailed
		run.Error = ingestErr.Error()
	}

	// A cancelled run is still recorded as failed
	if err := idx.storage.FinishIngestRun(context.WithoutCancel(ctx), run); err != nil {
		idx.logger.Warn("Failed to record ingest run", "run", run.ID, "error", err)
	}

	if ingestErr != nil {
		return stats, ingestErr
	}
	return stats, nil
}

// getOrCreateCollection retrieves the named collection or creates it
func (idx *Indexer) getOrCreateCollection(ctx context.Context, cfg Config) (*storage.Collection, error) {
	collection, err := idx.storage.GetCollection(ctx, cfg.Collection)
	if err == nil {
		return collection, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	collection = &storage.Collection{
		Name:        cfg.Collection,
		Description: cfg.Description,
	}
	if err := idx.storage.CreateCollection(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// pendingChunk is a chunk with its key and the index of its document
type pendingChunk struct {
	types.Chunk
	key      string
	position int
	docIndex int
}

func (idx *Indexer) ingest(ctx context.Context, cfg Config, collection *storage.Collection, stats *Statistics) error {
	docs, skipped, err := cfg.Source.Load(ctx, idx.logger)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	stats.DocumentsLoaded = len(docs)
	stats.DocumentsSkipped = len(skipped)
	for _, s := range skipped {
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", s.Source, s.Err))
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w under %s", ErrNoDocuments, cfg.Source.Root)
	}

	chunks, err := idx.chunkDocuments(ctx, docs, cfg.Workers)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	stats.ChunksCreated = len(chunks)
	idx.logger.Info(fmt.Sprintf("Collected %d chunks from %d files.", len(chunks), len(docs)))

	vectors, err := idx.embedChunks(ctx, chunks, cfg.EmbedBatchSize)
	if err != nil {
		return err
	}
	stats.EmbeddingsGenerated = len(vectors)

	if err := idx.storeChunks(ctx, collection, cfg.Description, docs, chunks, vectors, cfg.StoreBatchSize); err != nil {
		return err
	}

	idx.logger.Info(fmt.Sprintf("Stored %d chunks in collection %s", len(chunks), collection.Name))
	return nil
}

// chunkDocuments chunks every document concurrently and flattens the result
// in document order, assigning keys chunk_0..chunk_{n-1}
func (idx *Indexer) chunkDocuments(ctx context.Context, docs []types.Document, workers int) ([]pendingChunk, error) {
	perDoc := make([][]types.Chunk, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDoc[i] = idx.chunker.ChunkDocument(docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunks := range perDoc {
		total += len(chunks)
	}

	flat := make([]pendingChunk, 0, total)
	for docIndex, chunks := range perDoc {
		for _, c := range chunks {
			n := len(flat)
			flat = append(flat, pendingChunk{
				Chunk:    c,
				key:      storage.ChunkKey(n),
				position: n,
				docIndex: docIndex,
			})
		}
	}
	return flat, nil
}

// embedChunks embeds chunk texts in batches. Returns nil without an embedder.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []pendingChunk, batchSize int) ([]*embedder.Embedding, error) {
	if idx.embedder == nil {
		idx.logger.Warn("No embedder configured, storing chunks without vectors")
		return nil, nil
	}

	vectors := make([]*embedder.Embedding, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(resp.Embeddings), len(texts))
		}
		vectors = append(vectors, resp.Embeddings...)
		idx.logger.Debug("Embedded chunks", "from", start, "to", end-1, "total", len(chunks))
	}
	return vectors, nil
}

// storeChunks replaces the collection contents and statistics in one
// transaction, so a failure at any point leaves the previous contents intact.
// batchSize only sets how often progress is logged.
func (idx *Indexer) storeChunks(ctx context.Context, collection *storage.Collection, description string,
	docs []types.Document, chunks []pendingChunk, vectors []*embedder.Embedding, batchSize int) error {

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ResetCollection(ctx, collection.ID); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}

	chunkCounts := make(map[int]int)
	for _, c := range chunks {
		chunkCounts[c.docIndex]++
	}
	documentIDs := make(map[int]int64, len(chunkCounts))

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))

		for i := start; i < end; i++ {
			if err := idx.storeChunk(ctx, tx, collection.ID, docs, chunks[i], vectors, i, chunkCounts, documentIDs); err != nil {
				return fmt.Errorf("failed to store chunks %d-%d: %w", start+1, end, err)
			}
		}

		idx.logger.Info(fmt.Sprintf("Added chunks %d-%d / %d", start+1, end, len(chunks)))
	}

	updated := *collection
	updated.Description = description
	updated.TotalDocuments = len(documentIDs)
	updated.TotalChunks = len(chunks)
	updated.LastIngestedAt = time.Now()
	updated.EmbeddingProvider, updated.EmbeddingModel, updated.EmbeddingDimension = "", "", 0
	if idx.embedder != nil {
		updated.EmbeddingProvider = idx.embedder.Provider()
		updated.EmbeddingModel = idx.embedder.Model()
		updated.EmbeddingDimension = idx.embedder.Dimension()
	}
	if err := tx.UpdateCollection(ctx, &updated); err != nil {
		return fmt.Errorf("failed to update collection stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	*collection = updated
	return nil
}

// storeChunk writes chunk i, its document on first use, and its embedding
func (idx *Indexer) storeChunk(ctx context.Context, tx storage.Tx, collectionID int64, docs []types.Document,
	c pendingChunk, vectors []*embedder.Embedding, i int, chunkCounts map[int]int, documentIDs map[int]int64) error {

	docID, ok := documentIDs[c.docIndex]
	if !ok {
		doc := docs[c.docIndex]
		record := &storage.Document{
			CollectionID: collectionID,
			Source:       doc.Source,
			ContentHash:  sha256.Sum256([]byte(doc.Text)),
			SizeBytes:    int64(len(doc.Text)),
			ChunkCount:   chunkCounts[c.docIndex],
		}
		if err := tx.UpsertDocument(ctx, record); err != nil {
			return err
		}
		docID = record.ID
		documentIDs[c.docIndex] = docID
	}

	record := &storage.Chunk{
		CollectionID: collectionID,
		DocumentID:   docID,
		Key:          c.key,
		Position:     c.position,
		Text:         c.Text,
		Source:       c.Metadata.Source,
		Heading:      c.Metadata.Heading,
		ContentHash:  c.ContentHash(),
		CharCount:    c.CharCount(),
	}
	if err := tx.InsertChunk(ctx, record); err != nil {
		return err
	}

	if vectors == nil {
		return nil
	}
	v := vectors[i]
	return tx.UpsertEmbedding(ctx, &storage.Embedding{
		ChunkID:   record.ID,
		Vector:    storage.SerializeVector(v.Vector),
		Dimension: v.Dimension,
		Provider:  v.Provider,
		Model:     v.Model,
	})
}
