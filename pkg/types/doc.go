// Package types defines the core domain types shared across the
// codescout indexing and retrieval pipeline: chunks, embedding records,
// search results, and the error taxonomy.
//
// Chunks are content-addressed: the ID is a SHA-256 over
// (path, start_line, end_line, content), so identical chunks across
// reindexing collapse to the same identifier. Token estimates use the
// chars/4 heuristic throughout.
package types
