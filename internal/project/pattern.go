package project

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a compiled ignore or allow entry from the manifest.
//
// A leading "/" anchors the pattern at the project root; otherwise it may
// match at any depth. A trailing "/" is accepted for readability. Either
// way a pattern matches the named path and everything beneath it.
type Pattern struct {
	raw   string
	globs []string
}

// CompilePattern validates raw and converts it to doublestar globs.
func CompilePattern(raw string) (Pattern, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return Pattern{}, &ManifestError{Err: fmt.Errorf("empty path pattern")}
	}

	anchored := strings.HasPrefix(body, "/")
	body = strings.Trim(body, "/")
	if body == "" {
		return Pattern{}, &ManifestError{Err: fmt.Errorf("path pattern %q matches the whole project", raw)}
	}

	base := body
	if !anchored {
		base = "**/" + body
	}
	globs := []string{base, path.Join(base, "**")}
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return Pattern{}, &ManifestError{Err: fmt.Errorf("invalid path pattern %q", raw)}
		}
	}
	return Pattern{raw: raw, globs: globs}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Matches reports whether the project-relative, slash-separated path rel
// matches the pattern.
func (p Pattern) Matches(rel string) bool {
	rel = strings.TrimPrefix(rel, "/")
	for _, g := range p.globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (p Pattern) String() string { return p.raw }

// Filter decides which entries of a project tree are visited.
type Filter struct {
	Root    string
	Ignores []Pattern
	Allows  []Pattern
}

// NewFilter compiles the ignore and allow lists against root.
func NewFilter(root string, ignores, allows []string) (Filter, error) {
	f := Filter{Root: root}
	for _, raw := range ignores {
		p, err := CompilePattern(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Ignores = append(f.Ignores, p)
	}
	for _, raw := range allows {
		p, err := CompilePattern(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Allows = append(f.Allows, p)
	}
	return f, nil
}

// Verdict is the outcome of filtering one path.
type Verdict int

const (
	Visit Verdict = iota
	Allowed
	Hidden
	Ignored
)

func (v Verdict) String() string {
	switch v {
	case Visit:
		return "visit"
	case Allowed:
		return "allowed"
	case Hidden:
		return "hidden"
	case Ignored:
		return "ignored"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Skip reports whether the verdict excludes the path.
func (v Verdict) Skip() bool { return v == Hidden || v == Ignored }

// Classify filters a project-relative path. Allow patterns win over both
// the hidden-file convention and ignore patterns.
func (f Filter) Classify(rel string) Verdict {
	for _, p := range f.Allows {
		if p.Matches(rel) {
			return Allowed
		}
	}
	if strings.HasPrefix(path.Base(rel), ".") {
		return Hidden
	}
	for _, p := range f.Ignores {
		if p.Matches(rel) {
			return Ignored
		}
	}
	return Visit
}
