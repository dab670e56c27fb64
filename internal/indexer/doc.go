// Package indexer runs the ingest pipeline that turns a documentation corpus
// into a searchable collection.
//
// # Pipeline
//
//  1. Load: discover and read every document of the corpus.Source
//  2. Chunk: split documents concurrently, keeping document order
//  3. Key: number the chunks chunk_0 .. chunk_{n-1}
//  4. Embed: request vectors in batches
//  5. Store: clear the collection, then write documents, chunks, vectors and
//     collection statistics in a single transaction
//
// Every run rebuilds the collection. Nothing is written before all vectors
// exist, and the store step commits once, so a run that fails at any stage
// leaves the old collection untouched.
//
// # Basic Usage
//
//	idx := indexer.New(store, emb, chunker.New(chunker.DefaultConfig()), logger)
//	stats, err := idx.Ingest(ctx, &indexer.Config{
//	    Source: corpus.Source{
//	        Root:    "data/CangjieCorpus",
//	        Subdirs: []string{"manual/source_zh_cn", "libs/std"},
//	    },
//	    Collection: "cangjie_corpus",
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Stored %d chunks from %d documents\n",
//	    stats.ChunksCreated, stats.DocumentsLoaded)
//
// # Concurrency
//
// Only one ingestion runs at a time per Indexer. A second call while one is
// running returns ErrIngestInProgress immediately.
//
// # Errors
//
// Unreadable documents are skipped and listed in Statistics.ErrorMessages.
// A corpus with no documents fails with ErrNoDocuments and one whose
// documents produce no chunks fails with ErrNoChunks. Every run, failed or
// not, is recorded as a storage.IngestRun.
package indexer
