// Package chunker splits source files into retrievable chunks.
//
// Four strategies are supported: fixed character-budget blocks,
// semantic chunking at top-level declaration boundaries (tree-sitter),
// adaptive (semantic with fixed fallback for oversized declarations),
// and sliding windows with configurable line overlap. Chunk IDs are
// content-addressed so unchanged code keeps a stable identity across
// reindexing runs.
package chunker
