package source

import (
	"cmp"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Location is a 0-indexed span in a file. End points one past the last
// covered character.
type Location struct {
	StartRow    int `json:"start_row" yaml:"start_row"`
	StartColumn int `json:"start_column" yaml:"start_column"`
	EndRow      int `json:"end_row" yaml:"end_row"`
	EndColumn   int `json:"end_column" yaml:"end_column"`
}

// LocationOf returns the span covered by a tree-sitter node.
func LocationOf(n *sitter.Node) Location {
	start, end := n.StartPoint(), n.EndPoint()
	return Location{
		StartRow:    int(start.Row),
		StartColumn: int(start.Column),
		EndRow:      int(end.Row),
		EndColumn:   int(end.Column),
	}
}

// Compare orders locations by start position, then by end position.
func (l Location) Compare(other Location) int {
	if c := cmp.Compare(l.StartRow, other.StartRow); c != 0 {
		return c
	}
	if c := cmp.Compare(l.StartColumn, other.StartColumn); c != 0 {
		return c
	}
	if c := cmp.Compare(l.EndRow, other.EndRow); c != 0 {
		return c
	}
	return cmp.Compare(l.EndColumn, other.EndColumn)
}

func (l Location) String() string {
	return fmt.Sprintf("[%d, %d] - [%d, %d]", l.StartRow, l.StartColumn, l.EndRow, l.EndColumn)
}
