// Package irritation holds the diagnostics rule scripts emit and the
// collector that orders and caps them.
package irritation

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/jward/vex/internal/source"
)

// Irritation is a single diagnostic. At is nil for warnings raised outside
// of any file, such as those emitted while a rule module initializes.
type Irritation struct {
	Message string  `json:"message" yaml:"message"`
	At      *Source `json:"at,omitempty" yaml:"at,omitempty"`
}

// Source attaches an irritation to a span of a file.
type Source struct {
	Path     string          `json:"path" yaml:"path"`
	Location source.Location `json:"location" yaml:"location"`
	Label    string          `json:"label,omitempty" yaml:"label,omitempty"`

	// Line is the text of the first line of the span, kept for rendering.
	Line string `json:"-" yaml:"-"`
}

// New returns an irritation that is not attached to any file.
func New(message string) Irritation {
	return Irritation{Message: message}
}

// NewAt returns an irritation attached to a location in a file.
func NewAt(message, path string, loc source.Location, label, line string) Irritation {
	return Irritation{
		Message: message,
		At: &Source{
			Path:     path,
			Location: loc,
			Label:    label,
			Line:     line,
		},
	}
}

// Compare orders irritations by file path, then location, then message.
// Irritations without a location come first.
func (i Irritation) Compare(other Irritation) int {
	switch {
	case i.At == nil && other.At != nil:
		return -1
	case i.At != nil && other.At == nil:
		return 1
	case i.At != nil && other.At != nil:
		if c := cmp.Compare(i.At.Path, other.At.Path); c != 0 {
			return c
		}
		if c := i.At.Location.Compare(other.At.Location); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(i.Message, other.Message); c != 0 {
		return c
	}
	if i.At != nil && other.At != nil {
		return cmp.Compare(i.At.Label, other.At.Label)
	}
	return 0
}

// String renders the irritation on one line using 1-indexed positions.
func (i Irritation) String() string {
	if i.At == nil {
		return i.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s",
		i.At.Path, i.At.Location.StartRow+1, i.At.Location.StartColumn+1, i.Message)
}

// Render returns the multi-line form with the offending source line and
// the label underneath the span.
func (i Irritation) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "warning: %s\n", i.Message)
	if i.At == nil {
		return b.String()
	}

	loc := i.At.Location
	row := fmt.Sprint(loc.StartRow + 1)
	gutter := strings.Repeat(" ", len(row))
	fmt.Fprintf(&b, "%s--> %s:%d:%d\n", gutter, i.At.Path, loc.StartRow+1, loc.StartColumn+1)
	if i.At.Line == "" {
		return b.String()
	}

	width := loc.EndColumn - loc.StartColumn
	if loc.EndRow != loc.StartRow || width < 1 {
		width = max(1, len(i.At.Line)-loc.StartColumn)
	}
	fmt.Fprintf(&b, "%s |\n", gutter)
	fmt.Fprintf(&b, "%s | %s\n", row, i.At.Line)
	fmt.Fprintf(&b, "%s | %s%s", gutter, strings.Repeat(" ", loc.StartColumn), strings.Repeat("^", width))
	if i.At.Label != "" {
		fmt.Fprintf(&b, " %s", i.At.Label)
	}
	b.WriteString("\n")
	return b.String()
}
