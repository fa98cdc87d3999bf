// Package vex runs user-written structural lint rules over a project.
//
// Rules are Risor modules in the project's rules directory (vexes/ by
// default). Each module defines an init function that registers callbacks
// with the host through the vex global:
//
//	func on_match(event) {
//		vex.warn("found a number", event.captures["num"], "here")
//	}
//
//	func on_project(event) {
//		vex.search("rust", "(integer_literal) @num", on_match)
//	}
//
//	func init() {
//		vex.observe("open_project", on_project)
//	}
//
// # Lifecycle
//
// Modules move through three stages before a scan:
//
//  1. Preinit: every module is compiled and its top level evaluated.
//  2. Init: every module's init runs once and may register observers for
//     open_project and open_file events.
//  3. Vexing: the observer registry is sealed in a frozen heap and no
//     observer can be added for the rest of the run. Module globals remain
//     writable from callbacks.
//
// # Scanning
//
// [Engine.Run] walks the project, honouring the manifest's ignore and allow
// patterns, and sends open_project once and open_file for every file with a
// known language. Observers answer with searches: tree-sitter queries bound
// to a language and a callback. A file is parsed only if some search
// targets its language. Every match calls the search's callback, which may
// only warn. Diagnostics are sorted by path, location and message, then
// capped to the requested maximum.
package vex
