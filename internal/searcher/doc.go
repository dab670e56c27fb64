// Package searcher answers natural language and keyword queries against a
// stored collection.
//
// # Search Modes
//
//   - vector (default): embed the query and rank chunks by cosine similarity
//   - keyword: BM25 over the FTS5 index
//   - hybrid: run both concurrently and merge with Reciprocal Rank Fusion
//
// Reciprocal Rank Fusion scores each chunk as
//
//	RRF(d) = Σ 1/(k + rank(d))
//
// over the lists it appears in, with k = 60 unless the request sets another
// constant. In hybrid mode a failing side is tolerated as long as the other
// side answers.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb)
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:        "如何定义泛型函数",
//	    Limit:        5,
//	    CollectionID: collection.ID,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, r := range resp.Results {
//	    fmt.Printf("%d. [%s] %s (%.3f)\n", r.Rank, r.Source, r.Heading, r.RelevanceScore)
//	}
//
// # Caching
//
// Requests with UseCache set are answered from an expiring LRU cache keyed
// by query, mode, limit, collection and filters. Call InvalidateCache after
// an ingest replaces the collection.
package searcher
