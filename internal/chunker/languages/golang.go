package languages

import (
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/dshills/codescout/internal/chunker"
)

func RegisterGo(r *chunker.Registry) {
	r.Register("go", &chunker.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @chunk
			(method_declaration name: (field_identifier) @name) @chunk
			(type_declaration (type_spec name: (type_identifier) @name)) @chunk
		`,
		ImportQuery:   `(import_spec path: (interpreted_string_literal) @import)`,
		CommentPrefix: "//",
		Extensions:    []string{"go"},
	})
}
