// Package embedder generates dense vector embeddings for code chunks
// and search queries.
//
// Two providers are available: an OpenAI-compatible HTTP provider with
// exponential-backoff retry, and a deterministic local provider that
// derives vectors from content hashes for offline use and tests. Both
// share an LRU cache keyed by content hash so repeated indexing runs
// do not re-embed unchanged chunks.
//
// Vectors from Matryoshka-trained models can be truncated to 256 or
// 512 dimensions with Truncate; a prefix slice of such a vector is a
// valid lower-resolution embedding.
package embedder
