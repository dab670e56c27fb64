package indexer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/corpus"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

// mockEmbedder implements embedder.Embedder for testing
type mockEmbedder struct {
	dimension        int
	generateBatchErr error
	batchSizes       []int
	mu               sync.Mutex
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimension: 4}
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dimension)
	v[0] = 1
	v[1] = float32(len(text))
	return v
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return &embedder.Embedding{
		Vector:    m.vector(req.Text),
		Dimension: m.dimension,
		Provider:  "mock",
		Model:     "test-v1",
	}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generateBatchErr != nil {
		return nil, m.generateBatchErr
	}
	m.batchSizes = append(m.batchSizes, len(req.Texts))

	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		embeddings[i] = &embedder.Embedding{
			Vector:    m.vector(text),
			Dimension: m.dimension,
			Provider:  "mock",
			Model:     "test-v1",
		}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: embeddings, Provider: "mock", Model: "test-v1"}, nil
}

func (m *mockEmbedder) Dimension() int   { return m.dimension }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "test-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func (m *mockEmbedder) getBatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batchSizes...)
}

func setupTestStorage(t testing.TB) storage.Storage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// writeCorpus creates files (slash paths relative to the returned root)
func writeCorpus(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// section returns a heading followed by a body long enough to stand alone
func section(heading, word string) string {
	return heading + "\n\n" + strings.TrimSpace(strings.Repeat(word+" ", 20)) + "\n\n"
}

func testCorpus(t testing.TB) string {
	return writeCorpus(t, map[string]string{
		"manual/basics.md":    section("# Basics", "alpha") + section("## Types", "beta"),
		"manual/advanced.md":  section("# Advanced", "gamma"),
		"libs/std/core.md":    section("# Core", "delta"),
		"libs/std/notes.txt":  section("# Ignored", "epsilon"),
		"unlisted/skipped.md": section("# Unlisted", "zeta"),
	})
}

func testConfig(root string) *Config {
	return &Config{
		Source: corpus.Source{
			Root:    root,
			Subdirs: []string{"manual", "libs"},
		},
		Collection:  "docs",
		Description: "test corpus",
	}
}

func TestNew(t *testing.T) {
	store := setupTestStorage(t)

	idx := New(store, nil, nil, nil)
	require.NotNil(t, idx)
	assert.NotNil(t, idx.chunker)
	assert.NotNil(t, idx.logger)
	assert.Equal(t, chunker.DefaultConfig(), idx.chunker.Config())
	assert.False(t, idx.Running())
}

func TestConfigWithDefaults(t *testing.T) {
	var nilConfig *Config
	cfg := nilConfig.withDefaults()
	assert.Equal(t, DefaultCollection, cfg.Collection)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, embedder.DefaultBatchSize, cfg.EmbedBatchSize)
	assert.Equal(t, DefaultStoreBatchSize, cfg.StoreBatchSize)

	cfg = (&Config{EmbedBatchSize: embedder.MaxBatchSize + 1, Workers: 2, Collection: "x"}).withDefaults()
	assert.Equal(t, embedder.MaxBatchSize, cfg.EmbedBatchSize)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "x", cfg.Collection)
}

func TestIngest_Success(t *testing.T) {
	store := setupTestStorage(t)
	emb := newMockEmbedder()
	idx := New(store, emb, nil, nil)
	ctx := context.Background()

	stats, err := idx.Ingest(ctx, testConfig(testCorpus(t)))
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, "docs", stats.Collection)
	assert.Equal(t, 3, stats.DocumentsLoaded)
	assert.Zero(t, stats.DocumentsSkipped)
	assert.Equal(t, 4, stats.ChunksCreated)
	assert.Equal(t, 4, stats.EmbeddingsGenerated)
	assert.Empty(t, stats.ErrorMessages)
	assert.Greater(t, stats.Duration.Nanoseconds(), int64(0))

	collection, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, "test corpus", collection.Description)
	assert.Equal(t, 3, collection.TotalDocuments)
	assert.Equal(t, 4, collection.TotalChunks)
	assert.Equal(t, "mock", collection.EmbeddingProvider)
	assert.Equal(t, "test-v1", collection.EmbeddingModel)
	assert.Equal(t, 4, collection.EmbeddingDimension)
	assert.False(t, collection.LastIngestedAt.IsZero())

	// Keys follow path order across all subdirs
	expected := []struct {
		source  string
		heading string
	}{
		{"libs/std/core.md", "Core"},
		{"manual/advanced.md", "Advanced"},
		{"manual/basics.md", "Basics"},
		{"manual/basics.md", "Types"},
	}
	for i, want := range expected {
		c, err := store.GetChunkByKey(ctx, collection.ID, storage.ChunkKey(i))
		require.NoError(t, err, "chunk %d", i)
		assert.Equal(t, want.source, c.Source, "chunk %d", i)
		assert.Equal(t, want.heading, c.Heading, "chunk %d", i)
		assert.Equal(t, i, c.Position)
		assert.Equal(t, len([]rune(c.Text)), c.CharCount)

		embedding, err := store.GetEmbedding(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "mock", embedding.Provider)
		assert.Equal(t, float32(len(c.Text)), storage.DeserializeVector(embedding.Vector)[1])
	}

	doc, err := store.GetDocument(ctx, collection.ID, "manual/basics.md")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ChunkCount)

	runs, err := store.ListIngestRuns(ctx, collection.ID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, stats.RunID, runs[0].ID)
	assert.Equal(t, storage.RunCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].Documents)
	assert.Equal(t, 4, runs[0].Chunks)
}

func TestIngest_ReplacesCollection(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, newMockEmbedder(), nil, nil)
	ctx := context.Background()

	root := testCorpus(t)
	_, err := idx.Ingest(ctx, testConfig(root))
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "manual", "basics.md")))

	stats, err := idx.Ingest(ctx, testConfig(root))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunksCreated)

	collection, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	n, err := store.CountChunks(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c, err := store.GetChunkByKey(ctx, collection.ID, "chunk_1")
	require.NoError(t, err)
	assert.Equal(t, "manual/advanced.md", c.Source)

	_, err = store.GetChunkByKey(ctx, collection.ID, "chunk_2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetDocument(ctx, collection.ID, "manual/basics.md")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	runs, err := store.ListIngestRuns(ctx, collection.ID, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestIngest_NoDocuments(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, newMockEmbedder(), nil, nil)
	ctx := context.Background()

	root := writeCorpus(t, map[string]string{"readme.txt": "not markdown"})
	stats, err := idx.Ingest(ctx, testConfig(root))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDocuments)
	require.NotNil(t, stats)

	collection, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	runs, err := store.ListIngestRuns(ctx, collection.ID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "no documents found")
}

func TestIngest_NoChunks(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, newMockEmbedder(), nil, nil)

	root := writeCorpus(t, map[string]string{
		"manual/empty.md":  "",
		"manual/blank.md":  "  \n\n \t\n",
		"manual/header.md": "# Only a heading\n",
	})
	_, err := idx.Ingest(context.Background(), testConfig(root))
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestIngest_EmbeddingErrorKeepsPreviousContents(t *testing.T) {
	store := setupTestStorage(t)
	emb := newMockEmbedder()
	idx := New(store, emb, nil, nil)
	ctx := context.Background()

	root := testCorpus(t)
	_, err := idx.Ingest(ctx, testConfig(root))
	require.NoError(t, err)

	emb.generateBatchErr = errors.New("provider down")
	_, err = idx.Ingest(ctx, testConfig(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")

	collection, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	n, err := store.CountChunks(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	runs, err := store.ListIngestRuns(ctx, collection.ID, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFailed, runs[0].Status)
}

func TestIngest_InProgress(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, newMockEmbedder(), nil, nil)

	require.True(t, idx.lock.TryAcquire())
	assert.True(t, idx.Running())

	_, err := idx.Ingest(context.Background(), testConfig(testCorpus(t)))
	assert.ErrorIs(t, err, ErrIngestInProgress)

	idx.lock.Release()
	_, err = idx.Ingest(context.Background(), testConfig(testCorpus(t)))
	assert.NoError(t, err)
	assert.False(t, idx.Running())
}

func TestIngest_ConcurrentCalls(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, newMockEmbedder(), nil, nil)
	root := testCorpus(t)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = idx.Ingest(context.Background(), testConfig(root))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrIngestInProgress)
	}
	assert.GreaterOrEqual(t, succeeded, 1)
}

func TestIngest_Batching(t *testing.T) {
	store := setupTestStorage(t)
	emb := newMockEmbedder()
	idx := New(store, emb, nil, nil)
	ctx := context.Background()

	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		files["manual/"+name+".md"] = section("# "+name, name+name+name)
	}
	root := writeCorpus(t, files)

	cfg := testConfig(root)
	cfg.EmbedBatchSize = 2
	cfg.StoreBatchSize = 3
	cfg.Workers = 2

	stats, err := idx.Ingest(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.ChunksCreated)
	assert.Equal(t, []int{2, 2, 2, 1}, emb.getBatchSizes())

	collection, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	status, err := store.GetStatus(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, status.ChunksCount)
	assert.Equal(t, 7, status.EmbeddingsCount)
	assert.Equal(t, 7, status.DocumentsCount)

	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		c, err := store.GetChunkByKey(ctx, collection.ID, storage.ChunkKey(i))
		require.NoError(t, err)
		assert.Equal(t, "manual/"+name+".md", c.Source)
	}
}

func TestIngest_WithoutEmbedder(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, nil, nil, nil)
	ctx := context.Background()

	stats, err := idx.Ingest(ctx, testConfig(testCorpus(t)))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.ChunksCreated)
	assert.Zero(t, stats.EmbeddingsGenerated)

	collection, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	assert.Empty(t, collection.EmbeddingProvider)

	status, err := store.GetStatus(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, status.ChunksCount)
	assert.Zero(t, status.EmbeddingsCount)

	results, err := store.SearchText(ctx, collection.ID, "gamma", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestIngest_CustomChunker(t *testing.T) {
	store := setupTestStorage(t)
	ch := chunker.New(chunker.Config{MinChars: 10, MaxChars: 60})
	idx := New(store, newMockEmbedder(), ch, nil)

	root := writeCorpus(t, map[string]string{
		"manual/long.md": section("# Long", "word"),
	})
	stats, err := idx.Ingest(context.Background(), testConfig(root))
	require.NoError(t, err)
	// A 99 character body with no paragraph breaks stays one oversized chunk
	assert.Equal(t, 1, stats.ChunksCreated)
}

func TestIngest_ContextCancelled(t *testing.T) {
	store := setupTestStorage(t)
	idx := New(store, newMockEmbedder(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Ingest(ctx, testConfig(testCorpus(t)))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, idx.Running())
}

// failingStore makes InsertChunk fail after a number of successful inserts
type failingStore struct {
	storage.Storage
	inserts   *int
	failAfter int
}

type failingTx struct {
	storage.Tx
	store failingStore
}

func (f failingStore) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := f.Storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return failingTx{Tx: tx, store: f}, nil
}

func (f failingTx) InsertChunk(ctx context.Context, chunk *storage.Chunk) error {
	if *f.store.inserts >= f.store.failAfter {
		return errors.New("disk full")
	}
	*f.store.inserts++
	return f.Tx.InsertChunk(ctx, chunk)
}

func TestIngest_StoreErrorKeepsPreviousContents(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()
	root := testCorpus(t)

	_, err := New(store, newMockEmbedder(), nil, nil).Ingest(ctx, testConfig(root))
	require.NoError(t, err)
	before, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "manual", "extra.md"), []byte(section("# Extra", "omega")), 0o644))

	inserts := 0
	broken := failingStore{Storage: store, inserts: &inserts, failAfter: 3}
	cfg := testConfig(root)
	cfg.StoreBatchSize = 2

	_, err = New(broken, newMockEmbedder(), nil, nil).Ingest(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "chunks 3-4")

	after, err := store.GetCollection(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, before.TotalChunks, after.TotalChunks)
	assert.Equal(t, before.LastIngestedAt, after.LastIngestedAt)

	n, err := store.CountChunks(ctx, after.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = store.GetChunkByKey(ctx, after.ID, storage.ChunkKey(3))
	assert.NoError(t, err)
	_, err = store.GetChunkByKey(ctx, after.ID, storage.ChunkKey(4))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngest_ProgressLines(t *testing.T) {
	store := setupTestStorage(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := testConfig(testCorpus(t))
	cfg.StoreBatchSize = 3
	cfg.Workers = 1

	_, err := New(store, newMockEmbedder(), nil, logger).Ingest(context.Background(), cfg)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Collected 4 chunks from 3 files.")
	assert.Contains(t, out, "Added chunks 1-3 / 4")
	assert.Contains(t, out, "Added chunks 4-4 / 4")
	assert.Contains(t, out, "Stored 4 chunks in collection docs")
}
