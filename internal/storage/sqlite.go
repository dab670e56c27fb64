package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// applies pending migrations. Use ":memory:" for a throwaway database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Collection operations

const collectionColumns = `
	id, name, COALESCE(description, ''), total_documents, total_chunks,
	COALESCE(embedding_provider, ''), COALESCE(embedding_model, ''), embedding_dimension,
	index_version, last_ingested_at, created_at, updated_at`

func scanCollection(row scanner) (*Collection, error) {
	var c Collection
	var lastIngestedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.TotalDocuments, &c.TotalChunks,
		&c.EmbeddingProvider, &c.EmbeddingModel, &c.EmbeddingDimension,
		&c.IndexVersion, &lastIngestedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIngestedAt.Valid {
		c.LastIngestedAt = lastIngestedAt.Time
	}
	return &c, nil
}

func (s *SQLiteStorage) createCollectionWithQuerier(ctx context.Context, q querier, c *Collection) error {
	query := `
		INSERT INTO collections (name, description, embedding_provider, embedding_model,
		                         embedding_dimension, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if c.IndexVersion == "" {
		c.IndexVersion = CurrentSchemaVersion
	}
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		c.Name, c.Description, c.EmbeddingProvider, c.EmbeddingModel,
		c.EmbeddingDimension, c.IndexVersion, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("collection %q: %w", c.Name, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateCollection(ctx context.Context, c *Collection) error {
	return s.createCollectionWithQuerier(ctx, s.querier(), c)
}

func (s *SQLiteStorage) getCollectionWithQuerier(ctx context.Context, q querier, name string) (*Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE name = ?`
	return scanCollection(q.QueryRowContext(ctx, query, name))
}

func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return s.getCollectionWithQuerier(ctx, s.querier(), name)
}

func (s *SQLiteStorage) getCollectionByIDWithQuerier(ctx context.Context, q querier, id int64) (*Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = ?`
	return scanCollection(q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) updateCollectionWithQuerier(ctx context.Context, q querier, c *Collection) error {
	query := `
		UPDATE collections
		SET description = ?, total_documents = ?, total_chunks = ?,
		    embedding_provider = ?, embedding_model = ?, embedding_dimension = ?,
		    last_ingested_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		c.Description, c.TotalDocuments, c.TotalChunks,
		c.EmbeddingProvider, c.EmbeddingModel, c.EmbeddingDimension,
		nullTime(c.LastIngestedAt), now, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateCollection(ctx context.Context, c *Collection) error {
	return s.updateCollectionWithQuerier(ctx, s.querier(), c)
}

// resetCollectionWithQuerier removes every document, chunk and embedding of
// the collection but keeps the collection row and its run history
func (s *SQLiteStorage) resetCollectionWithQuerier(ctx context.Context, q querier, collectionID int64) error {
	statements := []string{
		`DELETE FROM embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE collection_id = ?)`,
		`DELETE FROM chunks WHERE collection_id = ?`,
		`DELETE FROM documents WHERE collection_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := q.ExecContext(ctx, stmt, collectionID); err != nil {
			return fmt.Errorf("failed to reset collection: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ResetCollection(ctx context.Context, collectionID int64) error {
	return s.resetCollectionWithQuerier(ctx, s.querier(), collectionID)
}

// Document operations

func (s *SQLiteStorage) upsertDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	query := `
		INSERT INTO documents (collection_id, source, content_hash, size_bytes, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, source) DO UPDATE SET
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		doc.CollectionID, doc.Source, doc.ContentHash[:], doc.SizeBytes, doc.ChunkCount, now, now,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *Document) error {
	return s.upsertDocumentWithQuerier(ctx, s.querier(), doc)
}

const documentColumns = `id, collection_id, source, content_hash, size_bytes, chunk_count, created_at, updated_at`

func scanDocument(row scanner) (*Document, error) {
	var doc Document
	var hash []byte
	err := row.Scan(&doc.ID, &doc.CollectionID, &doc.Source, &hash, &doc.SizeBytes,
		&doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(doc.ContentHash[:], hash)
	return &doc, nil
}

func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, collectionID int64, source string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection_id = ? AND source = ?`
	return scanDocument(q.QueryRowContext(ctx, query, collectionID, source))
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, collectionID int64, source string) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), collectionID, source)
}

func (s *SQLiteStorage) listDocumentsWithQuerier(ctx context.Context, q querier, collectionID int64) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE collection_id = ? ORDER BY id`
	rows, err := q.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context, collectionID int64) ([]*Document, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier(), collectionID)
}

// Chunk operations

const chunkColumns = `
	id, collection_id, document_id, chunk_key, position, text, source, heading,
	content_hash, char_count, created_at`

func scanChunk(row scanner) (*Chunk, error) {
	var c Chunk
	var hash []byte
	err := row.Scan(&c.ID, &c.CollectionID, &c.DocumentID, &c.Key, &c.Position,
		&c.Text, &c.Source, &c.Heading, &hash, &c.CharCount, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(c.ContentHash[:], hash)
	return &c, nil
}

func (s *SQLiteStorage) insertChunkWithQuerier(ctx context.Context, q querier, c *Chunk) error {
	query := `
		INSERT INTO chunks (collection_id, document_id, chunk_key, position, text, source,
		                    heading, content_hash, char_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		c.CollectionID, c.DocumentID, c.Key, c.Position, c.Text, c.Source,
		c.Heading, c.ContentHash[:], c.CharCount, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("chunk %s: %w", c.Key, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) InsertChunk(ctx context.Context, c *Chunk) error {
	return s.insertChunkWithQuerier(ctx, s.querier(), c)
}

func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, chunkID int64) (*Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id = ?`
	return scanChunk(q.QueryRowContext(ctx, query, chunkID))
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), chunkID)
}

func (s *SQLiteStorage) getChunkByKeyWithQuerier(ctx context.Context, q querier, collectionID int64, key string) (*Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE collection_id = ? AND chunk_key = ?`
	return scanChunk(q.QueryRowContext(ctx, query, collectionID, key))
}

func (s *SQLiteStorage) GetChunkByKey(ctx context.Context, collectionID int64, key string) (*Chunk, error) {
	return s.getChunkByKeyWithQuerier(ctx, s.querier(), collectionID, key)
}

func (s *SQLiteStorage) listChunksByDocumentWithQuerier(ctx context.Context, q querier, documentID int64) ([]*Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE document_id = ? ORDER BY position`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error) {
	return s.listChunksByDocumentWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStorage) countChunksWithQuerier(ctx context.Context, q querier, collectionID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection_id = ?", collectionID).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountChunks(ctx context.Context, collectionID int64) (int, error) {
	return s.countChunksWithQuerier(ctx, s.querier(), collectionID)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	if embedding.ID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			embedding.ID = id
		}
	}

	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) (*Embedding, error) {
	query := `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&embedding.ID, &embedding.ChunkID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), collectionID, queryVector, limit, filters)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.querier(), collectionID, query, limit, filters)
}

// Ingest run operations

func (s *SQLiteStorage) createIngestRunWithQuerier(ctx context.Context, q querier, run *IngestRun) error {
	if run.ID == "" {
		return fmt.Errorf("ingest run id is required")
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	query := `
		INSERT INTO ingest_runs (id, collection_id, status, started_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, run.ID, run.CollectionID, run.Status, run.StartedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("ingest run %s: %w", run.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create ingest run: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateIngestRun(ctx context.Context, run *IngestRun) error {
	return s.createIngestRunWithQuerier(ctx, s.querier(), run)
}

func (s *SQLiteStorage) finishIngestRunWithQuerier(ctx context.Context, q querier, run *IngestRun) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	query := `
		UPDATE ingest_runs
		SET status = ?, documents = ?, chunks = ?, skipped = ?, error = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		run.Status, run.Documents, run.Chunks, run.Skipped, run.Error, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish ingest run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) FinishIngestRun(ctx context.Context, run *IngestRun) error {
	return s.finishIngestRunWithQuerier(ctx, s.querier(), run)
}

func (s *SQLiteStorage) listIngestRunsWithQuerier(ctx context.Context, q querier, collectionID int64, limit int) ([]*IngestRun, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, collection_id, status, documents, chunks, skipped,
		       COALESCE(error, ''), started_at, finished_at
		FROM ingest_runs
		WHERE collection_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, collectionID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*IngestRun, 0)
	for rows.Next() {
		var run IngestRun
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.CollectionID, &run.Status, &run.Documents,
			&run.Chunks, &run.Skipped, &run.Error, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) ListIngestRuns(ctx context.Context, collectionID int64, limit int) ([]*IngestRun, error) {
	return s.listIngestRunsWithQuerier(ctx, s.querier(), collectionID, limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, collectionID int64) (*CollectionStatus, error) {
	collection, err := s.getCollectionByIDWithQuerier(ctx, q, collectionID)
	if err != nil {
		return nil, err
	}

	status := &CollectionStatus{
		Collection:     collection,
		LastIngestedAt: collection.LastIngestedAt,
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection_id = ?", collectionID).
		Scan(&status.DocumentsCount)
	if err != nil {
		return nil, err
	}

	status.ChunksCount, err = s.countChunksWithQuerier(ctx, q, collectionID)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e
		JOIN chunks c ON e.chunk_id = c.id
		WHERE c.collection_id = ?
	`, collectionID).Scan(&status.EmbeddingsCount)
	if err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	runs, err := s.listIngestRunsWithQuerier(ctx, q, collectionID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		status.LastRun = runs[0]
	}

	var ftsRows int
	ftsErr := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts").Scan(&ftsRows)

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexesBuilt:     ftsErr == nil,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), collectionID)
}

// Transaction implementations delegate to the storage helpers with the tx querier

func (t *sqliteTx) CreateCollection(ctx context.Context, c *Collection) error {
	return t.storage.createCollectionWithQuerier(ctx, t.querier(), c)
}

func (t *sqliteTx) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return t.storage.getCollectionWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) UpdateCollection(ctx context.Context, c *Collection) error {
	return t.storage.updateCollectionWithQuerier(ctx, t.querier(), c)
}

func (t *sqliteTx) ResetCollection(ctx context.Context, collectionID int64) error {
	return t.storage.resetCollectionWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) UpsertDocument(ctx context.Context, doc *Document) error {
	return t.storage.upsertDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, collectionID int64, source string) (*Document, error) {
	return t.storage.getDocumentWithQuerier(ctx, t.querier(), collectionID, source)
}

func (t *sqliteTx) ListDocuments(ctx context.Context, collectionID int64) ([]*Document, error) {
	return t.storage.listDocumentsWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) InsertChunk(ctx context.Context, c *Chunk) error {
	return t.storage.insertChunkWithQuerier(ctx, t.querier(), c)
}

func (t *sqliteTx) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) GetChunkByKey(ctx context.Context, collectionID int64, key string) (*Chunk, error) {
	return t.storage.getChunkByKeyWithQuerier(ctx, t.querier(), collectionID, key)
}

func (t *sqliteTx) ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error) {
	return t.storage.listChunksByDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) CountChunks(ctx context.Context, collectionID int64) (int, error) {
	return t.storage.countChunksWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), collectionID, vector, limit, filters)
}

func (t *sqliteTx) SearchText(ctx context.Context, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, t.querier(), collectionID, query, limit, filters)
}

func (t *sqliteTx) CreateIngestRun(ctx context.Context, run *IngestRun) error {
	return t.storage.createIngestRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) FinishIngestRun(ctx context.Context, run *IngestRun) error {
	return t.storage.finishIngestRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) ListIngestRuns(ctx context.Context, collectionID int64, limit int) ([]*IngestRun, error) {
	return t.storage.listIngestRunsWithQuerier(ctx, t.querier(), collectionID, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite has no true nested transactions
	return nil, errors.New("nested transactions not supported")
}
