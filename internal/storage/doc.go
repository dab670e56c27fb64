// Package storage persists chunked documentation in SQLite and answers
// similarity and keyword queries over it.
//
// # Database Schema
//
// Tables:
//   - collections: named chunk sets and the embedding model they were built with
//   - documents: corpus files and their SHA-256 content hashes
//   - chunks: chunk text, source, heading and the chunk_<n> key
//   - chunks_fts: FTS5 index over chunk text and heading (trigram tokenizer)
//   - embeddings: one float32 vector per chunk
//   - ingest_runs: history of ingestion runs
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(cfg.StorePath())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	collection, err := store.GetCollection(ctx, "cangjie_docs")
//
// # Transactions
//
// Ingestion writes each batch in one transaction so a failed batch leaves
// nothing half stored:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if err := tx.InsertChunk(ctx, chunk); err != nil {
//	    return err
//	}
//	if err := tx.UpsertEmbedding(ctx, embedding); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Search
//
// SearchVector ranks chunks by cosine similarity. SearchText ranks them by
// BM25 and normalises the score into (0, 1]. Terms shorter than three
// characters cannot be matched by the trigram index; a query made only of
// such terms is answered with a substring scan instead.
//
// # Build Tags
//
// The default build uses modernc.org/sqlite and needs no C compiler.
// Building with -tags "sqlite_vec,sqlite_fts5" switches to
// github.com/mattn/go-sqlite3.
package storage
