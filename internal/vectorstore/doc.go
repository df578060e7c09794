// Package vectorstore persists chunks and their embeddings as a single
// JSON payload and serves linear-scan cosine similarity search over
// the in-memory copy.
//
// Writes are atomic: the payload is serialized to a temp file and
// renamed over the target, and a failed persist rolls the in-memory
// state back so memory and disk never diverge. The store locks its
// embedding dimension on the first record added and rejects mismatches.
package vectorstore
