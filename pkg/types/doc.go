// Package types provides shared type definitions for the docsearch pipeline.
//
// These types cross package boundaries: the corpus reader produces Documents,
// the chunker turns them into Sections and then Chunks, and the searcher
// returns SearchResults.
//
// # Core Types
//
// Document is one file of the corpus, identified by its path relative to the
// corpus root (always with forward slashes):
//
//	doc := types.Document{
//	    Source: "manual/source_zh_cn/basic_programming_concepts/identifier.md",
//	    Text:   string(content),
//	}
//
// Chunk is a bounded-size passage handed to embedding, tagged with the file it
// came from and the nearest heading above it:
//
//	chunk := types.Chunk{
//	    Text: "Identifiers are ...",
//	    Metadata: types.ChunkMetadata{
//	        Source:  doc.Source,
//	        Heading: "Identifiers",
//	    },
//	}
//
// Section is transient: it only exists while a single document is chunked.
package types
