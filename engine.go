package vex

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/project"
	"github.com/jward/vex/internal/scriptlets"
	"github.com/jward/vex/internal/source"
	"github.com/jward/vex/internal/store"
)

// Engine checks one project against the rule modules it was loaded with.
type Engine struct {
	project  *project.Context
	registry *source.Registry
	logger   *slog.Logger
	rulesFS  fs.FS
	rules    *scriptlets.VexingStore
	history  *store.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for loading and scanning.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRegistry overrides the language registry.
func WithRegistry(reg *source.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithRulesFS loads rule modules from fsys instead of the project's rules
// directory on disk.
func WithRulesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.rulesFS = fsys
	}
}

// WithHistory records every run in s. The caller keeps ownership of s.
func WithHistory(s *store.Store) Option {
	return func(e *Engine) {
		e.history = s
	}
}

// New loads, evaluates and initializes every rule module of pc.
func New(ctx context.Context, pc *project.Context, opts ...Option) (*Engine, error) {
	e := &Engine{project: pc}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = source.NewRegistry()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.rulesFS == nil {
		e.rulesFS = os.DirFS(pc.RulesDir())
	}

	dir := source.NewPath(pc.RulesDir(), pc.Root)
	rules, err := scriptlets.Load(ctx, dir,
		scriptlets.WithFS(e.rulesFS),
		scriptlets.WithLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}
	e.rules = rules
	return e, nil
}

// Rules returns the initialized rule set.
func (e *Engine) Rules() *scriptlets.VexingStore { return e.rules }

// Project returns the project the engine checks.
func (e *Engine) Project() *project.Context { return e.project }

// Result summarizes a run.
type Result struct {
	// RunID is the history row of the run, or 0 when history is off.
	RunID        int64
	Irritations  []irritation.Irritation
	FilesScanned int
	FilesParsed  int
	StartedAt    time.Time
	Duration     time.Duration
}

// Run scans the project once and returns the sorted irritations, capped
// to maxProblems. Any unreadable or unparseable file aborts the run.
func (e *Engine) Run(ctx context.Context, maxProblems irritation.MaxProblems) (*Result, error) {
	start := time.Now()

	filter, err := e.project.Filter()
	if err != nil {
		return nil, err
	}
	paths, err := project.Walk(ctx, filter, e.logger)
	if err != nil {
		return nil, fmt.Errorf("vex: walk %s: %w", e.project.Root, err)
	}

	cache := scriptlets.NewQueryCache(e.registry, e.rules.ProjectQueriesHint()+e.rules.FileQueriesHint())
	collector := irritation.NewCollector()
	collector.Add(e.rules.InitIrritations()...)

	s := &scan{engine: e, cache: cache, collector: collector}
	projectFinds, err := s.dispatch(ctx, scriptlets.OpenProject{Root: e.project.Root})
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.checkFile(ctx, path, projectFinds); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Irritations:  collector.Finish(maxProblems),
		FilesScanned: len(paths),
		FilesParsed:  s.parsed,
		StartedAt:    start,
		Duration:     time.Since(start),
	}
	e.logger.Debug("run complete",
		"files", res.FilesScanned,
		"parsed", res.FilesParsed,
		"queries", cache.Len(),
		"problems", len(res.Irritations),
		"duration", res.Duration.Round(time.Millisecond),
	)

	if e.history != nil {
		id, err := e.record(res, maxProblems)
		if err != nil {
			return nil, err
		}
		res.RunID = id
	}
	return res, nil
}

// scan holds the state of one Run.
type scan struct {
	engine    *Engine
	cache     *scriptlets.QueryCache
	collector *irritation.Collector
	parsed    int
}

// dispatch sends ev to its observers, keeps their warnings and returns
// their searches.
func (s *scan) dispatch(ctx context.Context, ev scriptlets.Event) ([]scriptlets.Find, error) {
	rules := s.engine.rules
	intents, err := rules.ObserverData().Handle(ctx, ev, s.cache, rules.FrozenHeap())
	if err != nil {
		return nil, err
	}
	var finds []scriptlets.Find
	for _, intent := range intents {
		switch intent := intent.(type) {
		case scriptlets.Find:
			finds = append(finds, intent)
		case scriptlets.Warn:
			s.collector.Add(intent.Irritation)
		}
	}
	return finds, nil
}

func (s *scan) checkFile(ctx context.Context, path source.Path, projectFinds []scriptlets.Find) error {
	logger := s.engine.logger
	file := source.NewFile(path, s.engine.registry)
	lang, ok := file.Language()
	if !ok {
		logger.Info("skipping", "path", path.Pretty, "reason", "unknown language")
		return nil
	}

	fileFinds, err := s.dispatch(ctx, scriptlets.OpenFile{Path: path})
	if err != nil {
		return err
	}

	var finds []scriptlets.Find
	for _, group := range [][]scriptlets.Find{projectFinds, fileFinds} {
		for _, f := range group {
			if f.Language == lang {
				finds = append(finds, f)
			}
		}
	}
	if len(finds) == 0 {
		logger.Debug("no queries", "path", path.Pretty, "language", lang)
		return nil
	}

	logger.Info("parsing", "path", path.Pretty, "language", lang)
	parsed, err := file.Parse(ctx)
	if err != nil {
		return err
	}
	s.parsed++

	for _, find := range finds {
		if err := s.runQuery(ctx, parsed, find); err != nil {
			return err
		}
	}
	return nil
}

// runQuery calls find's callback once for every match of its query in
// parsed. Matches rejected by the query's predicates are dropped; patterns
// without captures still match, with an empty captures map.
func (s *scan) runQuery(ctx context.Context, parsed *source.ParsedFile, find scriptlets.Find) error {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(find.Query.Raw(), parsed.Root())

	for {
		m, ok := cursor.NextMatch()
		if !ok {
			return nil
		}
		filtered := cursor.FilterPredicates(m, parsed.Content)
		if len(filtered.Captures) == 0 && len(m.Captures) > 0 {
			continue
		}

		captures := make(map[string]*scriptlets.Node, len(filtered.Captures))
		for _, c := range filtered.Captures {
			captures[find.Query.CaptureName(c.Index)] = scriptlets.NewNode(c.Node, parsed)
		}

		intents, err := find.Callback.Handle(ctx, scriptlets.Match{Path: parsed.Path, Captures: captures}, s.cache)
		if err != nil {
			return err
		}
		for _, intent := range intents {
			if w, ok := intent.(scriptlets.Warn); ok {
				s.collector.Add(w.Irritation)
			}
		}
	}
}

// Dump parses the file at path and returns its syntax tree as an
// s-expression.
func Dump(ctx context.Context, path source.Path, reg *source.Registry) (string, error) {
	file := source.NewFile(path, reg)
	if !file.Parseable() {
		return "", &source.UnparseableError{Path: path.Pretty}
	}
	parsed, err := file.Parse(ctx)
	if err != nil {
		return "", err
	}
	return parsed.Root().String(), nil
}
