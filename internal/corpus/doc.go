// Package corpus locates and reads the Markdown documents fed to the chunker.
//
// A Source names a corpus root, the subdirectories to scan and a doublestar
// glob pattern. Discover returns matching files as root-relative slash paths
// in a stable order; Load reads them into types.Document values, skipping
// (and reporting) files that cannot be read.
//
// EnsureCloned fetches the upstream corpus repository with git when the
// local copy is missing, and Watcher reports changes to the scanned tree so a
// caller can re-ingest.
package corpus
