//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// This file is the default build: a pure Go SQLite with FTS5 compiled in.
// Vector similarity is computed in Go, which is fast enough for a
// documentation corpus of a few thousand chunks.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
