// Package source models the files vex discovers: their paths, detected
// languages and, on demand, their parsed syntax trees.
package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// Path pairs an absolute file path with its project-relative form. Pretty
// always uses forward slashes and is the only form shown to rule scripts
// and in diagnostics.
type Path struct {
	Abs    string
	Pretty string
}

// NewPath builds a Path for abs relative to the project root.
func NewPath(abs, root string) Path {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = abs
	}
	return Path{Abs: abs, Pretty: filepath.ToSlash(rel)}
}

// NewPathIn builds a Path for a user-supplied path resolved against dir.
// The pretty form keeps the path as the user wrote it.
func NewPathIn(path, dir string) Path {
	abs := path
	if !filepath.IsAbs(path) {
		abs = filepath.Join(dir, path)
	}
	return Path{Abs: abs, Pretty: filepath.ToSlash(path)}
}

func (p Path) String() string { return p.Pretty }

// File is a discovered source file. Construction does no I/O.
type File struct {
	path     Path
	language string
	registry *Registry
}

// NewFile associates path with the language its extension maps to in reg.
func NewFile(path Path, reg *Registry) File {
	lang, _ := reg.LanguageForFile(path.Abs)
	return File{path: path, language: lang, registry: reg}
}

// Path returns the file's path.
func (f File) Path() Path { return f.path }

// Language returns the detected language, if any.
func (f File) Language() (string, bool) {
	return f.language, f.language != ""
}

// Parseable reports whether the file has a known language.
func (f File) Parseable() bool { return f.language != "" }

// Parse reads and parses the file. A tree containing any error node is
// rejected with UnparseableAsLanguageError.
func (f File) Parse(ctx context.Context) (*ParsedFile, error) {
	content, err := os.ReadFile(f.path.Abs)
	if err != nil {
		return nil, &IOError{Path: f.path.Pretty, Action: ActionRead, Err: err}
	}
	if !utf8.Valid(content) {
		return nil, &IOError{Path: f.path.Pretty, Action: ActionRead, Err: fmt.Errorf("invalid UTF-8")}
	}
	if !f.Parseable() {
		return nil, &UnparseableError{Path: f.path.Pretty}
	}

	grammar, err := f.registry.Grammar(f.language)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("source: parse %s: %w", f.path.Pretty, err)
	}
	if tree.RootNode().HasError() {
		return nil, &UnparseableAsLanguageError{Path: f.path.Pretty, Language: f.language}
	}

	return &ParsedFile{
		Path:     f.path,
		Content:  content,
		Language: f.language,
		Tree:     tree,
		Grammar:  grammar,
	}, nil
}

// ParsedFile is a source file together with its syntax tree. Nodes taken
// from Tree keep a reference to the ParsedFile, so it stays alive for as
// long as any of them is reachable.
type ParsedFile struct {
	Path     Path
	Content  []byte
	Language string
	Tree     *sitter.Tree
	Grammar  *sitter.Language
}

// Root returns the root node of the syntax tree.
func (p *ParsedFile) Root() *sitter.Node {
	return p.Tree.RootNode()
}

// Text returns the source text spanned by n.
func (p *ParsedFile) Text(n *sitter.Node) string {
	return n.Content(p.Content)
}

// Equal reports whether two parsed files have the same path, content and
// language.
func (p *ParsedFile) Equal(other *ParsedFile) bool {
	return p.Path == other.Path &&
		p.Language == other.Language &&
		bytes.Equal(p.Content, other.Content)
}

// Line returns the text of the given 0-indexed row without its line
// terminator, or "" when the row is out of range.
func (p *ParsedFile) Line(row int) string {
	if row < 0 {
		return ""
	}
	rest := p.Content
	for ; row > 0; row-- {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			return ""
		}
		rest = rest[i+1:]
	}
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSuffix(string(rest), "\r")
}
