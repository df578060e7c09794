// Package languages registers tree-sitter grammars and extraction
// queries for the languages the chunker can parse semantically.
package languages

import "github.com/dshills/codescout/internal/chunker"

// RegisterAll installs every built-in language into the registry.
func RegisterAll(r *chunker.Registry) {
	RegisterGo(r)
	RegisterPython(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterRust(r)
}

// DefaultRegistry returns a registry with all built-in languages installed.
func DefaultRegistry() *chunker.Registry {
	r := chunker.NewRegistry()
	RegisterAll(r)
	return r
}
