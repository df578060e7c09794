package languages

import (
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/dshills/codescout/internal/chunker"
)

func RegisterRust(r *chunker.Registry) {
	r.Register("rust", &chunker.LanguageSpec{
		Language: rust.GetLanguage(),
		Query: `
			(function_item name: (identifier) @name) @chunk
			(struct_item name: (type_identifier) @name) @chunk
			(enum_item name: (type_identifier) @name) @chunk
			(trait_item name: (type_identifier) @name) @chunk
			(impl_item) @chunk
			(mod_item name: (identifier) @name) @chunk
		`,
		ImportQuery:   `(use_declaration) @import`,
		CommentPrefix: "//",
		Extensions:    []string{"rs"},
	})
}
