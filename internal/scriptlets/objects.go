package scriptlets

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/op"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/source"
)

// Script-visible type names.
const (
	NodeType     object.Type = "node"
	LocationType object.Type = "location"
	WalkerType   object.Type = "tree_walker"
	EventType    object.Type = "event"
)

// Node is a captured syntax node. It keeps its parsed file alive for as
// long as the script holds it. Scripts see kind, location, text() and
// walk() and nothing else.
type Node struct {
	node *sitter.Node
	file *source.ParsedFile
}

// NewNode wraps n, which must belong to file's tree.
func NewNode(n *sitter.Node, file *source.ParsedFile) *Node {
	return &Node{node: n, file: file}
}

// Raw returns the underlying tree-sitter node.
func (n *Node) Raw() *sitter.Node { return n.node }

// File returns the parsed file the node belongs to.
func (n *Node) File() *source.ParsedFile { return n.file }

// Location returns the span the node covers.
func (n *Node) Location() source.Location { return source.LocationOf(n.node) }

// Text returns the source text the node covers.
func (n *Node) Text() string { return n.file.Text(n.node) }

// Same reports whether n and other are the same node of the same tree.
// Two nodes with identical text at different positions are different.
func (n *Node) Same(other *Node) bool {
	return n.file == other.file && n.node.Equal(other.node)
}

func (n *Node) irritation(message, label string) irritation.Irritation {
	loc := n.Location()
	return irritation.NewAt(message, n.file.Path.Pretty, loc, label, n.file.Line(loc.StartRow))
}

func (n *Node) Type() object.Type { return NodeType }

func (n *Node) Inspect() string { return n.node.String() }

func (n *Node) String() string { return n.node.String() }

func (n *Node) Interface() interface{} { return n.node }

func (n *Node) Equals(other object.Object) object.Object {
	o, ok := other.(*Node)
	return object.NewBool(ok && n.Same(o))
}

func (n *Node) GetAttr(name string) (object.Object, bool) {
	switch name {
	case "kind":
		return object.NewString(n.node.Type()), true
	case "location":
		return newLocationObject(n.Location()), true
	case "text":
		return object.NewBuiltin("node.text", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 0 {
				return object.NewArgsError("node.text", 0, len(args))
			}
			return object.NewString(n.Text())
		}), true
	case "walk":
		return object.NewBuiltin("node.walk", func(ctx context.Context, args ...object.Object) object.Object {
			if len(args) != 0 {
				return object.NewArgsError("node.walk", 0, len(args))
			}
			return newTreeWalker(n)
		}), true
	}
	return nil, false
}

func (n *Node) SetAttr(name string, value object.Object) error {
	return fmt.Errorf("attribute error: node has no settable attribute %q", name)
}

// HashKey lets nodes be set members and map keys. Like Equals it is based
// on identity, so nodes with equal text at different spans differ.
func (n *Node) HashKey() object.HashKey {
	return object.HashKey{
		Type:     NodeType,
		StrValue: fmt.Sprintf("%p:%x", n.file, n.node.ID()),
	}
}

func (n *Node) IsTruthy() bool { return true }

func (n *Node) RunOperation(opType op.BinaryOpType, right object.Object) object.Object {
	return object.Errorf("type error: unsupported operation for node: %v", opType)
}

func (n *Node) Cost() int { return 0 }

// locationObject exposes a source.Location to scripts.
type locationObject struct {
	loc source.Location
}

func newLocationObject(loc source.Location) *locationObject {
	return &locationObject{loc: loc}
}

func (l *locationObject) Type() object.Type { return LocationType }

func (l *locationObject) Inspect() string { return l.loc.String() }

func (l *locationObject) String() string { return l.loc.String() }

func (l *locationObject) Interface() interface{} { return l.loc }

func (l *locationObject) Equals(other object.Object) object.Object {
	o, ok := other.(*locationObject)
	return object.NewBool(ok && l.loc == o.loc)
}

func (l *locationObject) GetAttr(name string) (object.Object, bool) {
	switch name {
	case "start_row":
		return object.NewInt(int64(l.loc.StartRow)), true
	case "start_column":
		return object.NewInt(int64(l.loc.StartColumn)), true
	case "end_row":
		return object.NewInt(int64(l.loc.EndRow)), true
	case "end_column":
		return object.NewInt(int64(l.loc.EndColumn)), true
	}
	return nil, false
}

func (l *locationObject) SetAttr(name string, value object.Object) error {
	return fmt.Errorf("attribute error: location is immutable")
}

func (l *locationObject) IsTruthy() bool { return true }

func (l *locationObject) RunOperation(opType op.BinaryOpType, right object.Object) object.Object {
	return object.Errorf("type error: unsupported operation for location: %v", opType)
}

func (l *locationObject) Cost() int { return 0 }

// treeWalker yields a node and then its descendants in depth-first
// pre-order. Once exhausted it stays exhausted; call walk() again for a
// fresh traversal.
type treeWalker struct {
	start   *Node
	cursor  *sitter.TreeCursor
	depth   int
	started bool
	done    bool

	// pos and current back the object.Iterator view used by range loops.
	pos     int64
	current *Node
}

func newTreeWalker(start *Node) *treeWalker {
	return &treeWalker{start: start, pos: -1}
}

// next returns the following node, or nil when the walk is over.
func (w *treeWalker) next() *Node {
	if w.done {
		return nil
	}
	if !w.started {
		w.started = true
		w.cursor = sitter.NewTreeCursor(w.start.node)
		return w.start
	}

	if w.cursor.GoToFirstChild() {
		w.depth++
		return w.current()
	}
	for w.depth > 0 {
		if w.cursor.GoToNextSibling() {
			return w.current()
		}
		w.cursor.GoToParent()
		w.depth--
	}
	w.finish()
	return nil
}

func (w *treeWalker) current() *Node {
	return NewNode(w.cursor.CurrentNode(), w.start.file)
}

func (w *treeWalker) finish() {
	w.done = true
	w.cursor = nil
}

// Iter returns the walker itself, so ranging over a walker a second time
// yields nothing.
func (w *treeWalker) Iter() object.Iterator { return w }

func (w *treeWalker) Next(ctx context.Context) (object.Object, bool) {
	n := w.next()
	w.current = n
	if n == nil {
		return nil, false
	}
	w.pos++
	return n, true
}

func (w *treeWalker) Entry() (object.IteratorEntry, bool) {
	if w.current == nil {
		return nil, false
	}
	return object.NewEntry(object.NewInt(w.pos), w.current), true
}

func (w *treeWalker) Type() object.Type { return WalkerType }

func (w *treeWalker) Inspect() string { return fmt.Sprintf("tree_walker(%s)", w.start.node.Type()) }

func (w *treeWalker) Interface() interface{} { return w }

func (w *treeWalker) Equals(other object.Object) object.Object {
	return object.NewBool(w == other)
}

func (w *treeWalker) GetAttr(name string) (object.Object, bool) {
	if name != "next" {
		return nil, false
	}
	return object.NewBuiltin("tree_walker.next", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("tree_walker.next", 0, len(args))
		}
		if n, ok := w.Next(ctx); ok {
			return n
		}
		return object.Nil
	}), true
}

func (w *treeWalker) SetAttr(name string, value object.Object) error {
	return fmt.Errorf("attribute error: tree_walker has no settable attribute %q", name)
}

func (w *treeWalker) IsTruthy() bool { return !w.done }

func (w *treeWalker) RunOperation(opType op.BinaryOpType, right object.Object) object.Object {
	return object.Errorf("type error: unsupported operation for tree_walker: %v", opType)
}

func (w *treeWalker) Cost() int { return 0 }

// eventObject is the argument passed to every callback.
type eventObject struct {
	kind     EventKind
	path     string
	captures map[string]*Node
}

func newEventObject(kind EventKind, path string, captures map[string]*Node) *eventObject {
	return &eventObject{kind: kind, path: path, captures: captures}
}

func (e *eventObject) Type() object.Type { return EventType }

func (e *eventObject) Inspect() string { return fmt.Sprintf("event(%s, %s)", e.kind, e.path) }

func (e *eventObject) Interface() interface{} { return e }

func (e *eventObject) Equals(other object.Object) object.Object {
	return object.NewBool(e == other)
}

func (e *eventObject) GetAttr(name string) (object.Object, bool) {
	switch name {
	case "kind":
		return object.NewString(string(e.kind)), true
	case "path":
		return object.NewString(e.path), true
	case "captures":
		if e.kind != KindMatch {
			return nil, false
		}
		items := make(map[string]object.Object, len(e.captures))
		for name, n := range e.captures {
			items[name] = n
		}
		return object.NewMap(items), true
	}
	return nil, false
}

func (e *eventObject) SetAttr(name string, value object.Object) error {
	return fmt.Errorf("attribute error: event is immutable")
}

func (e *eventObject) IsTruthy() bool { return true }

func (e *eventObject) RunOperation(opType op.BinaryOpType, right object.Object) object.Object {
	return object.Errorf("type error: unsupported operation for event: %v", opType)
}

func (e *eventObject) Cost() int { return 0 }
