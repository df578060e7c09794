// Package provider is the top-level context facade. It gates on the
// caller's intent confidence, delegates to retrieval and ranking, and
// formats the selected chunks into a markdown bundle with its token
// usage. Bundles are cached per (query, budget) so repeated identical
// requests skip even the formatting work.
package provider
