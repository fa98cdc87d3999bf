package scriptlets

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
	"github.com/risor-io/risor/vm"

	"github.com/jward/vex/internal/source"
)

// ScriptExt is the extension of rule module files.
const ScriptExt = ".risor"

// ModuleError reports a rule module that failed to load, evaluate or run.
type ModuleError struct {
	Path string
	Err  error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("error in %s: %v", e.Path, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Module is one loaded rule module. Each module runs in its own VM with
// its own "vex" global.
type Module struct {
	// ID is the file stem, e.g. "no_numbers" for vexes/no_numbers.risor.
	ID string
	// Path is the project-relative path of the module file.
	Path string

	name   string
	cfg    *risor.Config
	code   *compiler.Code
	vm     *vm.VirtualMachine
	active *dispatch
}

func newModule(name string, dir source.Path, fsys fs.FS) *Module {
	m := &Module{
		ID:   strings.TrimSuffix(name, ScriptExt),
		Path: joinPretty(dir.Pretty, name),
		name: name,
	}

	globals := map[string]any{
		"vex": m.vexModule(),
	}
	var opts []risor.Option
	for k, val := range globals {
		opts = append(opts, risor.WithGlobal(k, val))
	}
	opts = append(opts, risor.WithImporter(buildImporter(fsys, globals)))
	m.cfg = risor.NewConfig(opts...)
	return m
}

// buildImporter resolves `import` statements against the rules directory
// so modules can share helpers.
func buildImporter(fsys fs.FS, globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}
	return importer.NewFSImporter(importer.FSImporterOptions{
		GlobalNames: globalNames,
		SourceFS:    fsys,
		Extensions:  []string{ScriptExt},
	})
}

// compile reads and compiles the module. It touches no shared state, so
// modules may be compiled concurrently.
func (m *Module) compile(ctx context.Context, fsys fs.FS) error {
	src, err := fs.ReadFile(fsys, m.name)
	if err != nil {
		return &source.IOError{Path: m.Path, Action: source.ActionRead, Err: err}
	}
	ast, err := parser.Parse(ctx, string(src))
	if err != nil {
		return &ModuleError{Path: m.Path, Err: err}
	}
	code, err := compiler.Compile(ast, m.cfg.CompilerOpts()...)
	if err != nil {
		return &ModuleError{Path: m.Path, Err: err}
	}
	m.code = code
	return nil
}

// eval runs the module's top-level code.
func (m *Module) eval(ctx context.Context) error {
	m.vm = vm.New(m.code, m.cfg.VMOpts()...)
	if err := m.vm.Run(ctx); err != nil {
		return &ModuleError{Path: m.Path, Err: err}
	}
	return nil
}

// initFunc looks up the module's init entry point.
func (m *Module) initFunc() (Callback, error) {
	v, err := m.vm.Get("init")
	if err != nil || v == nil {
		return Callback{}, &ModuleError{Path: m.Path, Err: fmt.Errorf("no init function")}
	}
	fn, ok := v.(*object.Function)
	if !ok {
		return Callback{}, &ModuleError{Path: m.Path, Err: fmt.Errorf("init is a %s, not a function", v.Type())}
	}
	return Callback{module: m, fn: fn}, nil
}

// Callback is a script function together with the module whose VM runs it.
type Callback struct {
	module *Module
	fn     *object.Function
}

// Module returns the module the callback belongs to.
func (c Callback) Module() *Module { return c.module }

// Handle calls the callback with ev and returns the intents it produced.
// An intent that is illegal for ev's kind panics.
func (c Callback) Handle(ctx context.Context, ev Event, cache *QueryCache) ([]Intent, error) {
	return c.invoke(ctx, phaseFor(ev.Kind()), cache, ev.value())
}

func (c Callback) invoke(ctx context.Context, phase Phase, cache *QueryCache, args ...object.Object) ([]Intent, error) {
	d := &dispatch{phase: phase, cache: cache}
	prev := c.module.active
	c.module.active = d
	defer func() { c.module.active = prev }()

	if _, err := c.module.vm.Call(ctx, c.fn, args); err != nil {
		return nil, &ModuleError{Path: c.module.Path, Err: err}
	}
	checkIntents(phase, d.intents)
	return d.intents, nil
}

func joinPretty(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
