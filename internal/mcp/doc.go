// Package mcp implements the Model Context Protocol (MCP) server for the
// documentation search index.
//
// The server exposes four tools to AI coding assistants:
//   - ingest_corpus: chunk, embed and store the corpus, replacing the collection
//   - search_docs: query the collection by meaning, keywords, or both
//   - chunk_document: split a Markdown text without storing it
//   - get_status: report collection statistics and the last ingestion run
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. The server reads requests from stdin and
// writes responses to stdout; logs go to stderr so they never corrupt the
// protocol stream.
//
//	docsearch serve
//
// # Tool: search_docs
//
//	Request:
//	{
//	  "name": "search_docs",
//	  "arguments": {
//	    "query": "如何声明可变变量",
//	    "limit": 5,
//	    "search_mode": "hybrid",
//	    "source_pattern": "manual/*"
//	  }
//	}
//
//	Response:
//	{
//	  "query": "如何声明可变变量",
//	  "search_mode": "hybrid",
//	  "total_results": 5,
//	  "results": [
//	    {"id": "chunk_12", "rank": 1, "score": 0.031, "text": "...",
//	     "source": "manual/source_zh_cn/basic/variable.md", "heading": "变量"}
//	  ]
//	}
//
// # Error Codes
//
// Standard JSON-RPC codes are used for malformed calls (-32602) and
// internal failures (-32603). Domain errors use the -32001..-32005 range:
// corpus not found, ingestion in progress, collection not ingested, empty
// query and missing embedder.
//
// # Concurrency
//
// Ingestion holds a process-wide lock; a second ingest_corpus call fails
// fast with ErrorCodeIngestInProgress instead of queueing. Searches run
// concurrently with each other and with ingestion, and a finished
// ingestion clears the search cache.
package mcp
