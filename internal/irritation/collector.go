package irritation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MaxProblems caps how many irritations a run reports. The zero value is
// unlimited.
type MaxProblems struct {
	limit int
}

// Unlimited reports every irritation.
func Unlimited() MaxProblems { return MaxProblems{} }

// Limited reports at most n irritations. n must be positive.
func Limited(n int) MaxProblems { return MaxProblems{limit: n} }

// ParseMaxProblems accepts "unlimited" or a positive integer.
func ParseMaxProblems(s string) (MaxProblems, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unlimited") {
		return Unlimited(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return MaxProblems{}, fmt.Errorf("invalid max-problems %q: must be \"unlimited\" or a positive integer", s)
	}
	return Limited(n), nil
}

// Limit returns the cap and whether one is set.
func (m MaxProblems) Limit() (int, bool) {
	return m.limit, m.limit > 0
}

func (m MaxProblems) String() string {
	if m.limit <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(m.limit)
}

// Collector accumulates irritations over a whole run. It is not safe for
// concurrent use.
type Collector struct {
	items []Irritation
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends irritations in the order they were raised.
func (c *Collector) Add(irrs ...Irritation) {
	c.items = append(c.items, irrs...)
}

// Len returns the number of irritations collected so far.
func (c *Collector) Len() int { return len(c.items) }

// Finish sorts the collected irritations and applies the cap. The cap keeps
// the smallest entries in sort order, not the first ones raised.
func (c *Collector) Finish(maxProblems MaxProblems) []Irritation {
	out := slices.Clone(c.items)
	slices.SortStableFunc(out, Irritation.Compare)
	if limit, ok := maxProblems.Limit(); ok && limit < len(out) {
		out = out[:limit]
	}
	return out
}
