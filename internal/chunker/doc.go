// Package chunker divides Markdown documents into bounded-size chunks for
// embedding and search.
//
// Chunks are cut at heading boundaries and tagged with the source file and the
// nearest heading above them.
//
// # Basic Usage
//
//	c := chunker.New(chunker.DefaultConfig())
//	chunks := c.ChunkDocument(types.Document{
//	    Source: "manual/basics.md",
//	    Text:   text,
//	})
//
//	for _, chunk := range chunks {
//	    fmt.Printf("[%s] %s: %d chars\n",
//	        chunk.Metadata.Source, chunk.Metadata.Heading, chunk.CharCount())
//	}
//
// # Chunking Strategy
//
// The document is first split into sections at heading lines (1-6 '#'
// markers followed by whitespace). Then, per section:
//   - Empty body: no chunk, but the heading becomes the current heading
//   - Body up to MaxChars: one chunk, or merged into the previous chunk
//     when shorter than MinChars (the first chunk is always kept)
//   - Body over MaxChars: split on blank lines and packed greedily; packed
//     blocks shorter than MinChars are dropped
//
// # Chunk Sizing
//
// Sizes are counted in characters after trimming:
//   - MinChars: 80 (merge threshold)
//   - MaxChars: 800 (split threshold)
//
// A single paragraph longer than MaxChars is emitted as one oversized chunk;
// the chunker never splits inside a paragraph.
//
// # Determinism
//
// The same text and bounds always produce the same chunks. A Chunker keeps no
// state between documents, so documents can be chunked concurrently.
package chunker
