package chunker

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec defines the tree-sitter grammar and queries for one
// language. Query must capture top-level declarations with @chunk for
// the outer node and @name for the identifier (optional). ImportQuery
// captures import nodes with @import.
type LanguageSpec struct {
	Language      *sitter.Language
	Query         string
	ImportQuery   string
	CommentPrefix string
	Extensions    []string
}

// Declaration is a top-level declaration boundary found by the parse.
type Declaration struct {
	Name      string
	Kind      string
	StartLine int // 1-based
	EndLine   int // 1-based, inclusive
}

// Registry maps file extensions to language specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec // extension (without dot) -> spec
	names map[*LanguageSpec]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]*LanguageSpec),
		names: make(map[*LanguageSpec]string),
	}
}

// Register adds a language spec under the given name.
func (r *Registry) Register(name string, spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[spec] = name
	for _, ext := range spec.Extensions {
		r.specs[ext] = spec
	}
}

// Lookup returns the spec and language name for a file path, or nil.
func (r *Registry) Lookup(path string) (*LanguageSpec, string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[ext]
	if !ok {
		return nil, ""
	}
	return spec, r.names[spec]
}

// LanguageName returns the language name for a file path, or "".
func (r *Registry) LanguageName(path string) string {
	_, name := r.Lookup(path)
	return name
}

// Parse extracts top-level declaration boundaries from src. Returns
// (nil, nil) when no grammar is registered for the path, which callers
// treat as the fixed-strategy fallback.
func (r *Registry) Parse(path string, src []byte) ([]Declaration, error) {
	spec, lang := r.Lookup(path)
	if spec == nil {
		return nil, nil
	}

	captures, err := runQuery(spec.Language, spec.Query, src, lang)
	if err != nil {
		return nil, err
	}

	decls := dedupContained(captures)
	sort.Slice(decls, func(i, j int) bool { return decls[i].StartLine < decls[j].StartLine })
	return decls, nil
}

// Imports returns the import statements of src as trimmed strings.
func (r *Registry) Imports(path string, src []byte) []string {
	spec, lang := r.Lookup(path)
	if spec == nil || spec.ImportQuery == "" {
		return nil
	}
	captures, err := runQuery(spec.Language, spec.ImportQuery, src, lang)
	if err != nil {
		return nil
	}
	imports := make([]string, 0, len(captures))
	for _, c := range captures {
		imports = append(imports, strings.TrimSpace(c.content))
	}
	return imports
}

// CommentPrefix returns the line-comment prefix for the path's
// language, or "".
func (r *Registry) CommentPrefix(path string) string {
	spec, _ := r.Lookup(path)
	if spec == nil {
		return ""
	}
	return spec.CommentPrefix
}

type capturedNode struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
	content   string
}

func runQuery(language *sitter.Language, query string, src []byte, lang string) ([]capturedNode, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(query), language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", lang, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var captures []capturedNode
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var node *sitter.Node
		var nameStr string
		for _, cap := range m.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "chunk", "import":
				node = cap.Node
			case "name":
				nameStr = cap.Node.Content(src)
			}
		}
		if node == nil {
			continue
		}
		captures = append(captures, capturedNode{
			name:      nameStr,
			kind:      node.Type(),
			startLine: int(node.StartPoint().Row) + 1,
			endLine:   int(node.EndPoint().Row) + 1,
			startByte: node.StartByte(),
			endByte:   node.EndByte(),
			content:   node.Content(src),
		})
	}
	return captures, nil
}

// dedupContained drops captures fully contained within a larger
// capture, keeping the outer node.
func dedupContained(caps []capturedNode) []Declaration {
	if len(caps) == 0 {
		return nil
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return caps[i].endByte > caps[j].endByte
	})

	var decls []Declaration
	var lastEnd uint32
	for _, c := range caps {
		if len(decls) > 0 && c.endByte <= lastEnd {
			continue
		}
		decls = append(decls, Declaration{
			Name:      c.name,
			Kind:      c.kind,
			StartLine: c.startLine,
			EndLine:   c.endLine,
		})
		lastEnd = c.endByte
	}
	return decls
}
