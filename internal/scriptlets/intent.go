package scriptlets

import (
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/source"
)

// EventKind names the events a module can observe.
type EventKind string

const (
	KindOpenProject EventKind = "open_project"
	KindOpenFile    EventKind = "open_file"
	KindMatch       EventKind = "match"
)

// ParseEventKind validates the kind passed to vex.observe. Match events
// are delivered to search callbacks and cannot be observed.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(s); k {
	case KindOpenProject, KindOpenFile:
		return k, nil
	}
	return "", fmt.Errorf("unknown event %q (expected %q or %q)", s, KindOpenProject, KindOpenFile)
}

// Phase tags each dispatch with the point of the run it belongs to and
// decides which intents a callback may produce there.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseOpenProject
	PhaseOpenFile
	PhaseMatch
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseOpenProject:
		return string(KindOpenProject)
	case PhaseOpenFile:
		return string(KindOpenFile)
	case PhaseMatch:
		return string(KindMatch)
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Allows reports whether intent is legal in phase p.
func (p Phase) Allows(intent Intent) bool {
	switch intent.(type) {
	case Warn:
		return true
	case Observe:
		return p == PhaseInit
	case Find:
		return p == PhaseOpenProject || p == PhaseOpenFile
	}
	return false
}

func phaseFor(kind EventKind) Phase {
	switch kind {
	case KindOpenProject:
		return PhaseOpenProject
	case KindOpenFile:
		return PhaseOpenFile
	case KindMatch:
		return PhaseMatch
	}
	panic(fmt.Sprintf("internal error: no phase for event %q", kind))
}

// Event is delivered to module callbacks. The set of events is closed:
// OpenProject, OpenFile and Match.
type Event interface {
	Kind() EventKind
	value() object.Object
}

// OpenProject is sent once per run before any file is opened.
type OpenProject struct {
	Root string
}

// OpenFile is sent for each discovered file with a known language.
type OpenFile struct {
	Path source.Path
}

// Match is sent to a search callback for every match of its query.
type Match struct {
	Path     source.Path
	Captures map[string]*Node
}

func (OpenProject) Kind() EventKind { return KindOpenProject }
func (OpenFile) Kind() EventKind    { return KindOpenFile }
func (Match) Kind() EventKind       { return KindMatch }

func (e OpenProject) value() object.Object {
	return newEventObject(KindOpenProject, e.Root, nil)
}

func (e OpenFile) value() object.Object {
	return newEventObject(KindOpenFile, e.Path.Pretty, nil)
}

func (e Match) value() object.Object {
	return newEventObject(KindMatch, e.Path.Pretty, e.Captures)
}

// Intent is what a callback asks the engine to do. The set of intents is
// closed: Find, Observe and Warn.
type Intent interface {
	intentName() string
}

// Find registers Query to run against every subsequently opened file of
// Language, calling Callback for each match.
type Find struct {
	Language string
	Query    *Query
	Callback Callback
}

// Observe registers Callback for every future event of Kind.
type Observe struct {
	Kind     EventKind
	Callback Callback
}

// Warn emits an irritation.
type Warn struct {
	Irritation irritation.Irritation
}

func (Find) intentName() string    { return "find" }
func (Observe) intentName() string { return "observe" }
func (Warn) intentName() string    { return "warn" }

// checkIntents panics on the first intent that is illegal in phase. An
// illegal intent means the engine dispatched a callback incorrectly; it
// is never reported as a user-facing problem.
func checkIntents(phase Phase, intents []Intent) {
	for _, intent := range intents {
		if !phase.Allows(intent) {
			panic(fmt.Sprintf("internal error: %s intended during %s", intent.intentName(), phase))
		}
	}
}
