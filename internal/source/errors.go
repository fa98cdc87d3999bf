package source

import "fmt"

// Action names what vex was doing when an I/O error occurred.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// IOError reports a failed file system operation on a path.
type IOError struct {
	Path   string
	Action Action
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot %s %s: %v", e.Action, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// UnparseableError is returned when a file has no known language.
type UnparseableError struct {
	Path string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("cannot parse %s", e.Path)
}

// UnparseableAsLanguageError is returned when the parser reports syntax
// errors for a file of a known language.
type UnparseableAsLanguageError struct {
	Path     string
	Language string
}

func (e *UnparseableAsLanguageError) Error() string {
	return fmt.Sprintf("cannot parse %s as %s", e.Path, e.Language)
}

// LanguageError is returned when a grammar cannot be loaded.
type LanguageError struct {
	Language string
}

func (e *LanguageError) Error() string {
	return fmt.Sprintf("cannot load %s grammar", e.Language)
}
