// Package indexer coordinates the indexing pipeline: walk the project
// tree, chunk changed files, embed their contents, and land the
// results in the vector store.
//
// File processing fans out to a bounded worker pool. Workers never
// write shared state; each sends a per-file result message to a single
// aggregator goroutine that owns all store and state mutation. The
// incremental ledger (state.json) pins the chunker fingerprint and
// embedding identity so configuration drift triggers a full rebuild
// instead of serving mixed vectors.
package indexer
