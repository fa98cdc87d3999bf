// Package scriptlets loads Risor rule modules and drives them through
// their lifecycle: preinit evaluates each module, init collects the
// observers each module registers, and the resulting VexingStore dispatches
// events to that sealed observer registry for the rest of the run. Module
// globals stay mutable and callbacks may update them.
package scriptlets

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"

	"github.com/risor-io/risor/object"
	"golang.org/x/sync/errgroup"

	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/source"
)

// StoreOption configures a PreinitingStore.
type StoreOption func(*PreinitingStore)

// WithFS loads modules from fsys instead of from the rules directory on
// disk. The directory path is then only used for display.
func WithFS(fsys fs.FS) StoreOption {
	return func(s *PreinitingStore) {
		s.fsys = fsys
	}
}

// WithLogger sets the logger used while loading modules.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *PreinitingStore) {
		s.logger = logger
	}
}

// PreinitingStore knows where the rule modules live but has loaded none.
type PreinitingStore struct {
	dir    source.Path
	fsys   fs.FS
	logger *slog.Logger
}

// NewPreinitingStore returns a store that will load every module in dir.
func NewPreinitingStore(dir source.Path, opts ...StoreOption) *PreinitingStore {
	s := &PreinitingStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	if s.fsys == nil {
		s.fsys = os.DirFS(dir.Abs)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Preinit compiles every module in the rules directory concurrently, then
// evaluates each module's top level in name order. init is not called.
func (s *PreinitingStore) Preinit(ctx context.Context) (*PreinitedStore, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, &source.IOError{Path: s.dir.Pretty, Action: source.ActionRead, Err: err}
	}

	var modules []*Module
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ScriptExt {
			continue
		}
		modules = append(modules, newModule(entry.Name(), s.dir, s.fsys))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range modules {
		g.Go(func() error {
			return m.compile(gctx, s.fsys)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range modules {
		s.logger.Debug("preiniting", "module", m.Path)
		if err := m.eval(ctx); err != nil {
			return nil, err
		}
	}
	return &PreinitedStore{modules: modules, logger: s.logger}, nil
}

// PreinitedStore holds evaluated modules whose init has not run.
type PreinitedStore struct {
	modules []*Module
	logger  *slog.Logger
}

// Init calls every module's init exactly once, records the observers they
// register and freezes the heap holding them.
func (s *PreinitedStore) Init(ctx context.Context) (*VexingStore, error) {
	heap := NewHeap()
	observers := newObserverData()
	var warns []irritation.Irritation

	for _, m := range s.modules {
		s.logger.Debug("initing", "module", m.Path)
		initFn, err := m.initFunc()
		if err != nil {
			return nil, err
		}
		intents, err := initFn.invoke(ctx, PhaseInit, nil)
		if err != nil {
			return nil, err
		}
		for _, intent := range intents {
			switch intent := intent.(type) {
			case Observe:
				observers.add(intent.Kind, observer{
					module: intent.Callback.module,
					handle: heap.Alloc(intent.Callback.fn),
				})
			case Warn:
				warns = append(warns, intent.Irritation)
			}
		}
	}

	return &VexingStore{
		modules:   s.modules,
		observers: observers,
		frozen:    heap.Freeze(),
		warns:     warns,
	}, nil
}

// Load runs the whole lifecycle for the modules in dir.
func Load(ctx context.Context, dir source.Path, opts ...StoreOption) (*VexingStore, error) {
	preinited, err := NewPreinitingStore(dir, opts...).Preinit(ctx)
	if err != nil {
		return nil, err
	}
	return preinited.Init(ctx)
}

// VexingStore holds the loaded modules and their sealed observer registry
// for a whole scan. No observer can be added once it exists.
type VexingStore struct {
	modules   []*Module
	observers *ObserverData
	frozen    *FrozenHeap
	warns     []irritation.Irritation
}

// ObserverData returns the observer registry built during init.
func (s *VexingStore) ObserverData() *ObserverData { return s.observers }

// FrozenHeap returns the sealed heap the observers live in.
func (s *VexingStore) FrozenHeap() *FrozenHeap { return s.frozen }

// ProjectQueriesHint estimates how many searches open_project will register.
func (s *VexingStore) ProjectQueriesHint() int {
	return len(s.observers.byKind[KindOpenProject])
}

// FileQueriesHint estimates how many searches each open_file will register.
func (s *VexingStore) FileQueriesHint() int {
	return len(s.observers.byKind[KindOpenFile])
}

// Modules returns the loaded modules in load order.
func (s *VexingStore) Modules() []*Module { return s.modules }

// InitIrritations returns the warnings modules emitted from init.
func (s *VexingStore) InitIrritations() []irritation.Irritation { return s.warns }

type observer struct {
	module *Module
	handle Handle
}

// ObserverData maps event kinds to the callbacks observing them, in
// registration order.
type ObserverData struct {
	byKind map[EventKind][]observer
}

func newObserverData() *ObserverData {
	return &ObserverData{byKind: make(map[EventKind][]observer)}
}

func (d *ObserverData) add(kind EventKind, obs observer) {
	d.byKind[kind] = append(d.byKind[kind], obs)
}

// Len returns the number of observers registered for kind.
func (d *ObserverData) Len(kind EventKind) int { return len(d.byKind[kind]) }

// Handle dispatches ev to every observer of its kind and returns the
// intents they produced, in order.
func (d *ObserverData) Handle(ctx context.Context, ev Event, cache *QueryCache, frozen *FrozenHeap) ([]Intent, error) {
	var intents []Intent
	for _, obs := range d.byKind[ev.Kind()] {
		fn, ok := frozen.Get(obs.handle).(*object.Function)
		if !ok {
			panic("internal error: observer is not a function")
		}
		got, err := Callback{module: obs.module, fn: fn}.Handle(ctx, ev, cache)
		if err != nil {
			return nil, err
		}
		intents = append(intents, got...)
	}
	return intents, nil
}
