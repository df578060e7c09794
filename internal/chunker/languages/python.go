package languages

import (
	"github.com/smacker/go-tree-sitter/python"

	"github.com/dshills/codescout/internal/chunker"
)

func RegisterPython(r *chunker.Registry) {
	r.Register("python", &chunker.LanguageSpec{
		Language: python.GetLanguage(),
		Query: `
			(function_definition name: (identifier) @name) @chunk
			(class_definition name: (identifier) @name) @chunk
			(decorated_definition definition: (function_definition name: (identifier) @name)) @chunk
			(decorated_definition definition: (class_definition name: (identifier) @name)) @chunk
		`,
		ImportQuery: `
			(import_statement) @import
			(import_from_statement) @import
		`,
		CommentPrefix: "#",
		Extensions:    []string{"py", "pyi"},
	})
}
