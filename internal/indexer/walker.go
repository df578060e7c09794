package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnorePatterns are always excluded from indexing.
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"target/",
	"dist/",
	"build/",
	"__pycache__/",
	"*.min.js",
	"*.map",
}

// sourceExtensions limits the walk to file types worth indexing.
var sourceExtensions = map[string]bool{
	"go": true, "py": true, "pyi": true,
	"js": true, "jsx": true, "mjs": true, "cjs": true,
	"ts": true, "tsx": true,
	"rs": true,
	"java": true, "kt": true,
	"c": true, "h": true, "cc": true, "cpp": true, "hpp": true,
	"rb": true, "php": true, "cs": true, "swift": true,
	"md": true, "txt": true,
	"json": true, "yaml": true, "yml": true, "toml": true,
}

// walker discovers indexable files under a root, honoring the root's
// .gitignore plus built-in and configured ignore patterns.
type walker struct {
	root    string
	matcher *ignore.GitIgnore
}

// newWalker builds a walker for root. extraPatterns come from the
// project configuration and stack on top of the defaults and the
// root's .gitignore.
func newWalker(root string, extraPatterns []string) (*walker, error) {
	patterns := append([]string{}, defaultIgnorePatterns...)

	gitignorePath := filepath.Join(root, ".gitignore")
	if data, err := os.ReadFile(gitignorePath); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	}
	patterns = append(patterns, extraPatterns...)

	return &walker{
		root:    root,
		matcher: ignore.CompileIgnoreLines(patterns...),
	}, nil
}

// walk returns the project-relative paths of all indexable files,
// sorted for deterministic processing order.
func (w *walker) walk() ([]string, error) {
	var files []string

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if w.matcher.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(rel), "."))
		if !sourceExtensions[ext] {
			return nil
		}
		if w.matcher.MatchesPath(rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", w.root, err)
	}

	sort.Strings(files)
	return files, nil
}
