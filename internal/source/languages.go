package source

import (
	"path/filepath"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Registry resolves file extensions to language names and language names to
// tree-sitter grammars. Extension lookup is case-sensitive: "main.RS" has no
// language.
type Registry struct {
	extensions map[string]string
	loaders    map[string]func() *sitter.Language

	mu       sync.Mutex
	grammars map[string]*sitter.Language
}

// NewRegistry returns the registry of every language vex can parse.
func NewRegistry() *Registry {
	return &Registry{
		extensions: map[string]string{
			".go":   "go",
			".ts":   "typescript",
			".tsx":  "tsx",
			".js":   "javascript",
			".jsx":  "javascript",
			".mjs":  "javascript",
			".py":   "python",
			".rs":   "rust",
			".c":    "c",
			".h":    "c",
			".cpp":  "cpp",
			".cc":   "cpp",
			".cxx":  "cpp",
			".hpp":  "cpp",
			".java": "java",
			".php":  "php",
			".rb":   "ruby",
		},
		loaders: map[string]func() *sitter.Language{
			"go":         golang.GetLanguage,
			"typescript": ts.GetLanguage,
			"tsx":        tsx.GetLanguage,
			"javascript": javascript.GetLanguage,
			"python":     python.GetLanguage,
			"rust":       rust.GetLanguage,
			"c":          c.GetLanguage,
			"cpp":        cpp.GetLanguage,
			"java":       java.GetLanguage,
			"php":        php.GetLanguage,
			"ruby":       ruby.GetLanguage,
		},
		grammars: make(map[string]*sitter.Language),
	}
}

// LanguageForFile returns the language name for a path based on its
// extension. Returns ("", false) if the extension is not recognized.
func (r *Registry) LanguageForFile(path string) (string, bool) {
	lang, ok := r.extensions[filepath.Ext(path)]
	return lang, ok
}

// Supports reports whether lang names a registered language.
func (r *Registry) Supports(lang string) bool {
	_, ok := r.loaders[lang]
	return ok
}

// Grammar returns the tree-sitter grammar for a language, loading it on first
// use.
func (r *Registry) Grammar(lang string) (*sitter.Language, error) {
	load, ok := r.loaders[lang]
	if !ok {
		return nil, &LanguageError{Language: lang}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.grammars[lang]; ok {
		return g, nil
	}
	g := load()
	if g == nil {
		return nil, &LanguageError{Language: lang}
	}
	r.grammars[lang] = g
	return g, nil
}

// Languages returns the registered language names in sorted order.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.loaders))
	for lang := range r.loaders {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Extensions returns the extensions mapped to lang, sorted.
func (r *Registry) Extensions(lang string) []string {
	var exts []string
	for ext, l := range r.extensions {
		if l == lang {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}
