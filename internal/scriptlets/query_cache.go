package scriptlets

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/vex/internal/source"
)

// Query is a compiled tree-sitter query for one language.
type Query struct {
	Language string
	Text     string
	q        *sitter.Query
}

// CaptureName returns the name of capture id.
func (q *Query) CaptureName(id uint32) string {
	return q.q.CaptureNameForId(id)
}

// Raw returns the underlying tree-sitter query.
func (q *Query) Raw() *sitter.Query { return q.q }

type queryKey struct {
	language string
	text     string
}

// QueryCache compiles each distinct (language, text) pair once per run.
// Entries are never evicted. It is not safe for concurrent use.
type QueryCache struct {
	registry *source.Registry
	queries  map[queryKey]*Query
}

// NewQueryCache returns a cache presized for capacity distinct queries.
func NewQueryCache(reg *source.Registry, capacity int) *QueryCache {
	return &QueryCache{
		registry: reg,
		queries:  make(map[queryKey]*Query, capacity),
	}
}

// Get returns the compiled query for text in language, compiling it on
// first use.
func (c *QueryCache) Get(language, text string) (*Query, error) {
	key := queryKey{language: language, text: text}
	if q, ok := c.queries[key]; ok {
		return q, nil
	}

	if !c.registry.Supports(language) {
		return nil, fmt.Errorf("unknown language %q", language)
	}
	grammar, err := c.registry.Grammar(language)
	if err != nil {
		return nil, err
	}
	raw, err := sitter.NewQuery([]byte(text), grammar)
	if err != nil {
		return nil, fmt.Errorf("invalid %s query: %w", language, err)
	}

	q := &Query{Language: language, Text: text, q: raw}
	c.queries[key] = q
	return q, nil
}

// Len returns the number of distinct queries held.
func (c *QueryCache) Len() int { return len(c.queries) }
