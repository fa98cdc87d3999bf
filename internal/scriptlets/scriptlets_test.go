package scriptlets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/source"
)

const rustSource = `fn main() {
    let x = 1 + (2 + 3);
    println!("{x}");
}
`

var rulesDir = source.Path{Abs: "/project/vexes", Pretty: "vexes"}

func load(t *testing.T, modules map[string]string) (*VexingStore, error) {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, src := range modules {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return Load(context.Background(), rulesDir, WithFS(fsys))
}

func mustLoad(t *testing.T, modules map[string]string) *VexingStore {
	t.Helper()
	store, err := load(t, modules)
	require.NoError(t, err)
	return store
}

func parseRust(t *testing.T, src string) *source.ParsedFile {
	t.Helper()
	dir := t.TempDir()
	abs := filepath.Join(dir, "src", "main.rs")
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(src), 0o644))

	parsed, err := source.NewFile(source.NewPath(abs, dir), source.NewRegistry()).Parse(context.Background())
	require.NoError(t, err)
	return parsed
}

// matches runs q over parsed and returns the captures of every match.
func matches(t *testing.T, q *Query, parsed *source.ParsedFile) []map[string]*Node {
	t.Helper()
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q.Raw(), parsed.Root())

	var out []map[string]*Node
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, parsed.Content)
		captures := make(map[string]*Node, len(m.Captures))
		for _, c := range m.Captures {
			captures[q.CaptureName(c.Index)] = NewNode(c.Node, parsed)
		}
		out = append(out, captures)
	}
	return out
}

func newCache(store *VexingStore) *QueryCache {
	return NewQueryCache(source.NewRegistry(), store.ProjectQueriesHint()+store.FileQueriesHint())
}

// =============================================================================
// Heap
// =============================================================================

func TestHeap_FreezeSharesValues(t *testing.T) {
	t.Parallel()
	h := NewHeap()
	a := h.Alloc(object.NewString("a"))
	b := h.Alloc(object.NewInt(2))

	frozen := h.Freeze()
	assert.Equal(t, 2, frozen.Len())
	assert.Equal(t, object.NewString("a"), frozen.Get(a))
	assert.Equal(t, object.NewInt(2), frozen.Get(b))
}

func TestHeap_AllocAfterFreezePanics(t *testing.T) {
	t.Parallel()
	h := NewHeap()
	h.Freeze()
	assert.PanicsWithValue(t, "internal error: alloc into frozen heap", func() {
		h.Alloc(object.Nil)
	})
}

func TestFrozenHeap_DanglingHandlePanics(t *testing.T) {
	t.Parallel()
	frozen := NewHeap().Freeze()
	assert.Panics(t, func() { frozen.Get(Handle(3)) })
}

// =============================================================================
// Phases and intents
// =============================================================================

func TestPhase_Allows(t *testing.T) {
	t.Parallel()

	find := Find{Language: "rust"}
	observe := Observe{Kind: KindOpenFile}
	warn := Warn{Irritation: irritation.New("x")}

	tests := []struct {
		phase   Phase
		find    bool
		observe bool
	}{
		{PhaseInit, false, true},
		{PhaseOpenProject, true, false},
		{PhaseOpenFile, true, false},
		{PhaseMatch, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.find, tt.phase.Allows(find))
			assert.Equal(t, tt.observe, tt.phase.Allows(observe))
			assert.True(t, tt.phase.Allows(warn))
		})
	}
}

func TestCheckIntents_PanicsOnIllegalIntent(t *testing.T) {
	t.Parallel()
	assert.PanicsWithValue(t, "internal error: observe intended during open_file", func() {
		checkIntents(PhaseOpenFile, []Intent{Warn{}, Observe{Kind: KindOpenFile}})
	})
	assert.NotPanics(t, func() {
		checkIntents(PhaseMatch, []Intent{Warn{}, Warn{}})
	})
}

func TestParseEventKind(t *testing.T) {
	t.Parallel()
	k, err := ParseEventKind("open_file")
	require.NoError(t, err)
	assert.Equal(t, KindOpenFile, k)

	_, err = ParseEventKind("match")
	assert.Error(t, err)
	_, err = ParseEventKind("close_file")
	assert.Error(t, err)
}

// =============================================================================
// Query cache
// =============================================================================

func TestQueryCache_CompilesOncePerPair(t *testing.T) {
	t.Parallel()
	cache := NewQueryCache(source.NewRegistry(), 2)

	a, err := cache.Get("rust", "(integer_literal) @num")
	require.NoError(t, err)
	b, err := cache.Get("rust", "(integer_literal) @num")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, cache.Len())

	c, err := cache.Get("go", "(identifier) @id")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, cache.Len())
}

func TestQueryCache_Errors(t *testing.T) {
	t.Parallel()
	cache := NewQueryCache(source.NewRegistry(), 0)

	_, err := cache.Get("cobol", "(x)")
	assert.ErrorContains(t, err, `unknown language "cobol"`)

	_, err = cache.Get("rust", "(not_a_real_node_kind")
	assert.ErrorContains(t, err, "invalid rust query")
	assert.Zero(t, cache.Len())
}

// =============================================================================
// Store lifecycle
// =============================================================================

func TestLoad_RegistersObserversInModuleOrder(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"b_files.risor": `
func on_file(event) {}
func also_on_file(event) {}
func init() {
	vex.observe("open_file", on_file)
	vex.observe("open_file", also_on_file)
}
`,
		"a_project.risor": `
func on_project(event) {}
func init() {
	vex.observe("open_project", on_project)
}
`,
		"README.md": "not a module",
	})

	var ids []string
	for _, m := range store.Modules() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a_project", "b_files"}, ids)
	assert.Equal(t, "vexes/a_project.risor", store.Modules()[0].Path)

	assert.Equal(t, 1, store.ProjectQueriesHint())
	assert.Equal(t, 2, store.FileQueriesHint())
	assert.Equal(t, 3, store.FrozenHeap().Len())
	assert.Empty(t, store.InitIrritations())
}

func TestLoad_InitWarnsHaveNoLocation(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"loud.risor": `
func init() {
	vex.warn("hello from init")
}
`,
	})
	assert.Equal(t, []irritation.Irritation{irritation.New("hello from init")}, store.InitIrritations())
}

func TestLoad_ModuleErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", "func init( {"},
		{"missing init", "x := 1\n"},
		{"init not a function", "init := 3\n"},
		{"vex called at top level", "vex.warn(\"too early\")\nfunc init() {}\n"},
		{"unknown event kind", "func cb(event) {}\nfunc init() {\n\tvex.observe(\"close_file\", cb)\n}\n"},
		{"callback not a function", "func init() {\n\tvex.observe(\"open_file\", 3)\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := load(t, map[string]string{"broken.risor": tt.src})
			var me *ModuleError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, "vexes/broken.risor", me.Path)
		})
	}
}

func TestLoad_MissingRulesDir(t *testing.T) {
	t.Parallel()
	dir := source.Path{Abs: filepath.Join(t.TempDir(), "vexes"), Pretty: "vexes"}

	_, err := Load(context.Background(), dir)
	var ioErr *source.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, err.Error(), "cannot read vexes")
}

func TestLoad_FromDisk(t *testing.T) {
	t.Parallel()
	abs := filepath.Join(t.TempDir(), "vexes")
	require.NoError(t, os.MkdirAll(abs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(abs, "disk.risor"), []byte("func init() {}\n"), 0o644))

	store, err := Load(context.Background(), source.Path{Abs: abs, Pretty: "vexes"})
	require.NoError(t, err)
	require.Len(t, store.Modules(), 1)
	assert.Equal(t, "disk", store.Modules()[0].ID)
}

func TestInit_SearchDuringInitPanics(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{"eager.risor": &fstest.MapFile{Data: []byte(`
func on_match(event) {}
func init() {
	vex.search("rust", "(integer_literal) @num", on_match)
}
`)}}
	preinited, err := NewPreinitingStore(rulesDir, WithFS(fsys)).Preinit(context.Background())
	require.NoError(t, err)

	assert.PanicsWithValue(t, "internal error: find intended during init", func() {
		_, _ = preinited.Init(context.Background())
	})
}

// =============================================================================
// Dispatch
// =============================================================================

func TestHandle_OpenProjectCollectsFinds(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"numbers.risor": `
func on_match(event) {}
func on_project(event) {
	assert(event.kind == "open_project")
	assert(event.path == "/project")
	vex.search("rust", "(integer_literal) @num", on_match)
	vex.search("rust", "(integer_literal) @num", on_match)
	vex.warn("project opened")
}
func init() {
	vex.observe("open_project", on_project)
}
`,
	})
	cache := newCache(store)

	intents, err := store.ObserverData().Handle(context.Background(), OpenProject{Root: "/project"}, cache, store.FrozenHeap())
	require.NoError(t, err)
	require.Len(t, intents, 3)

	first, ok := intents[0].(Find)
	require.True(t, ok)
	second, ok := intents[1].(Find)
	require.True(t, ok)
	assert.Equal(t, "rust", first.Language)
	assert.Same(t, first.Query, second.Query)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, "numbers", first.Callback.Module().ID)
	assert.Equal(t, Warn{Irritation: irritation.New("project opened")}, intents[2])

	// No open_file observers, so nothing is produced.
	intents, err = store.ObserverData().Handle(context.Background(), OpenFile{Path: source.Path{Pretty: "src/main.rs"}}, cache, store.FrozenHeap())
	require.NoError(t, err)
	assert.Empty(t, intents)
}

func TestHandle_OpenFileSeesPrettyPath(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"files.risor": `
func on_file(event) {
	assert(event.kind == "open_file")
	vex.warn("saw " + event.path)
}
func init() {
	vex.observe("open_file", on_file)
}
`,
	})

	ev := OpenFile{Path: source.Path{Abs: "/project/src/main.rs", Pretty: "src/main.rs"}}
	intents, err := store.ObserverData().Handle(context.Background(), ev, newCache(store), store.FrozenHeap())
	require.NoError(t, err)
	assert.Equal(t, []Intent{Warn{Irritation: irritation.New("saw src/main.rs")}}, intents)
}

func TestHandle_InvalidQueryIsModuleError(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"bad_query.risor": `
func on_match(event) {}
func on_project(event) {
	vex.search("rust", "(((", on_match)
}
func init() {
	vex.observe("open_project", on_project)
}
`,
	})

	_, err := store.ObserverData().Handle(context.Background(), OpenProject{Root: "/project"}, newCache(store), store.FrozenHeap())
	var me *ModuleError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "vexes/bad_query.risor", me.Path)
}

func TestHandle_ObserveOutsideInitPanics(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"late.risor": `
func on_file(event) {}
func on_project(event) {
	vex.observe("open_file", on_file)
}
func init() {
	vex.observe("open_project", on_project)
}
`,
	})

	assert.PanicsWithValue(t, "internal error: observe intended during open_project", func() {
		_, _ = store.ObserverData().Handle(context.Background(), OpenProject{Root: "/project"}, newCache(store), store.FrozenHeap())
	})
}

func TestHandle_GlobalsStayMutableAfterFreeze(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"counter.risor": `
seen := []
func on_project(event) {
	seen.append(event.path)
	vex.warn(sprintf("seen %d", len(seen)))
}
func init() {
	vex.observe("open_project", on_project)
}
`,
	})
	cache := newCache(store)

	var msgs []string
	for i := 0; i < 2; i++ {
		intents, err := store.ObserverData().Handle(context.Background(), OpenProject{Root: "/project"}, cache, store.FrozenHeap())
		require.NoError(t, err)
		for _, intent := range intents {
			msgs = append(msgs, intent.(Warn).Irritation.Message)
		}
	}
	assert.Equal(t, []string{"seen 1", "seen 2"}, msgs)
}

func projectFinds(t *testing.T, store *VexingStore, cache *QueryCache) []Find {
	t.Helper()
	intents, err := store.ObserverData().Handle(context.Background(), OpenProject{Root: "/project"}, cache, store.FrozenHeap())
	require.NoError(t, err)
	var finds []Find
	for _, intent := range intents {
		if f, ok := intent.(Find); ok {
			finds = append(finds, f)
		}
	}
	return finds
}

func TestMatch_WarnForms(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"warns.risor": `
func on_match(event) {
	assert(event.kind == "match")
	assert(event.path == "src/main.rs")
	n := event.captures["bin_expr"]
	vex.warn("three args", n, "bin_expr")
	vex.warn("pair", [n, "pair_label"])
	vex.warn("node only", n)
	vex.warn("bare")
}
func on_project(event) {
	vex.search("rust", "(binary_expression left: (integer_literal) @l_int) @bin_expr", on_match)
}
func init() {
	vex.observe("open_project", on_project)
}
`,
	})
	cache := newCache(store)
	finds := projectFinds(t, store, cache)
	require.Len(t, finds, 1)

	parsed := parseRust(t, rustSource)
	all := matches(t, finds[0].Query, parsed)
	// The outer expression and the parenthesized 2 + 3 both match.
	require.Len(t, all, 2)

	intents, err := finds[0].Callback.Handle(context.Background(), Match{Path: parsed.Path, Captures: all[0]}, cache)
	require.NoError(t, err)

	loc := source.Location{StartRow: 1, StartColumn: 12, EndRow: 1, EndColumn: 23}
	line := "    let x = 1 + (2 + 3);"
	assert.Equal(t, []Intent{
		Warn{Irritation: irritation.NewAt("three args", "src/main.rs", loc, "bin_expr", line)},
		Warn{Irritation: irritation.NewAt("pair", "src/main.rs", loc, "pair_label", line)},
		Warn{Irritation: irritation.NewAt("node only", "src/main.rs", loc, "", line)},
		Warn{Irritation: irritation.New("bare")},
	}, intents)
}

func TestMatch_SearchInsideMatchPanics(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"nested.risor": `
func noop(event) {}
func on_match(event) {
	vex.search("rust", "(identifier) @id", noop)
}
func on_project(event) {
	vex.search("rust", "(integer_literal) @num", on_match)
}
func init() {
	vex.observe("open_project", on_project)
}
`,
	})
	cache := newCache(store)
	finds := projectFinds(t, store, cache)
	require.Len(t, finds, 1)

	parsed := parseRust(t, rustSource)
	all := matches(t, finds[0].Query, parsed)
	require.NotEmpty(t, all)

	assert.PanicsWithValue(t, "internal error: find intended during match", func() {
		_, _ = finds[0].Callback.Handle(context.Background(), Match{Path: parsed.Path, Captures: all[0]}, cache)
	})
}

func TestMatch_ScriptErrorIsModuleError(t *testing.T) {
	t.Parallel()
	store := mustLoad(t, map[string]string{
		"oops.risor": `
func on_match(event) {
	event.captures["missing"].kind
}
func on_project(event) {
	vex.search("rust", "(integer_literal) @num", on_match)
}
func init() {
	vex.observe("open_project", on_project)
}
`,
	})
	cache := newCache(store)
	finds := projectFinds(t, store, cache)
	parsed := parseRust(t, rustSource)
	all := matches(t, finds[0].Query, parsed)

	_, err := finds[0].Callback.Handle(context.Background(), Match{Path: parsed.Path, Captures: all[0]}, cache)
	var me *ModuleError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "vexes/oops.risor", me.Path)
}

// warnOnce runs a single-search module against src and returns the
// messages its match callback warned with.
func warnOnce(t *testing.T, module, src string) []string {
	t.Helper()
	store := mustLoad(t, map[string]string{"rule.risor": module})
	cache := newCache(store)
	finds := projectFinds(t, store, cache)
	require.Len(t, finds, 1)

	parsed := parseRust(t, src)
	all := matches(t, finds[0].Query, parsed)
	require.Len(t, all, 1)

	intents, err := finds[0].Callback.Handle(context.Background(), Match{Path: parsed.Path, Captures: all[0]}, cache)
	require.NoError(t, err)
	var msgs []string
	for _, intent := range intents {
		msgs = append(msgs, intent.(Warn).Irritation.Message)
	}
	return msgs
}

func TestMatch_WalkRangesOnce(t *testing.T) {
	t.Parallel()
	msgs := warnOnce(t, `
func on_match(event) {
	w := event.captures["bin"].walk()
	kinds := ""
	for _, n := range w {
		kinds = kinds + n.kind + " "
	}
	again := 0
	for _, n := range w {
		again = again + 1
	}
	vex.warn(kinds)
	vex.warn(sprintf("again %d", again))
}
func on_project(event) {
	vex.search("rust", "(binary_expression) @bin", on_match)
}
func init() {
	vex.observe("open_project", on_project)
}
`, "fn main() {\n    let a = 1 + 2;\n}\n")

	assert.Equal(t, []string{"binary_expression integer_literal + integer_literal ", "again 0"}, msgs)
}

func TestMatch_NodesAreSetMembersByIdentity(t *testing.T) {
	t.Parallel()
	msgs := warnOnce(t, `
func on_match(event) {
	lits := []
	for _, n := range event.captures["bin"].walk() {
		if n.kind == "integer_literal" {
			lits.append(n)
		}
	}
	assert(lits[0].text() == lits[1].text())
	s := {lits[0], lits[1], lits[0]}
	vex.warn(sprintf("%d", len(s)))
}
func on_project(event) {
	vex.search("rust", "(binary_expression) @bin", on_match)
}
func init() {
	vex.observe("open_project", on_project)
}
`, "fn main() {\n    let a = 1 + 1;\n}\n")

	assert.Equal(t, []string{"2"}, msgs)
}
