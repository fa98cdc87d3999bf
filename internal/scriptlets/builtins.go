package scriptlets

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/vex/internal/irritation"
)

// dispatch collects the intents produced by one callback invocation.
type dispatch struct {
	phase   Phase
	cache   *QueryCache
	intents []Intent
}

// vexModule builds the "vex" global seen by one module. The builtins only
// record intents; legality is checked by the caller once the callback
// returns.
func (m *Module) vexModule() *object.Module {
	return object.NewBuiltinsModule("vex", map[string]object.Object{
		"observe": object.NewBuiltin("vex.observe", m.observe),
		"search":  object.NewBuiltin("vex.search", m.search),
		"warn":    object.NewBuiltin("vex.warn", m.warn),
	})
}

func (m *Module) dispatching(fn string) (*dispatch, *object.Error) {
	if m.active == nil {
		return nil, object.Errorf("%s: must be called from init or an event callback", fn)
	}
	return m.active, nil
}

// vex.observe(kind, callback)
func (m *Module) observe(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 2 {
		return object.NewArgsError("vex.observe", 2, len(args))
	}
	d, errObj := m.dispatching("vex.observe")
	if errObj != nil {
		return errObj
	}

	kindStr, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("vex.observe: event kind must be a string, got %s", args[0].Type())
	}
	kind, err := ParseEventKind(kindStr.Value())
	if err != nil {
		return object.Errorf("vex.observe: %v", err)
	}
	fn, ok := args[1].(*object.Function)
	if !ok {
		return object.Errorf("vex.observe: callback must be a function, got %s", args[1].Type())
	}

	d.intents = append(d.intents, Observe{Kind: kind, Callback: Callback{module: m, fn: fn}})
	return object.Nil
}

// vex.search(language, query, callback)
func (m *Module) search(ctx context.Context, args ...object.Object) object.Object {
	if len(args) != 3 {
		return object.NewArgsError("vex.search", 3, len(args))
	}
	d, errObj := m.dispatching("vex.search")
	if errObj != nil {
		return errObj
	}

	langStr, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("vex.search: language must be a string, got %s", args[0].Type())
	}
	queryStr, ok := args[1].(*object.String)
	if !ok {
		return object.Errorf("vex.search: query must be a string, got %s", args[1].Type())
	}
	fn, ok := args[2].(*object.Function)
	if !ok {
		return object.Errorf("vex.search: callback must be a function, got %s", args[2].Type())
	}

	find := Find{Language: langStr.Value(), Callback: Callback{module: m, fn: fn}}
	if d.cache != nil {
		q, err := d.cache.Get(find.Language, queryStr.Value())
		if err != nil {
			return object.Errorf("vex.search: %v", err)
		}
		find.Query = q
	}
	d.intents = append(d.intents, find)
	return object.Nil
}

// vex.warn(message)
// vex.warn(message, node)
// vex.warn(message, node, label)
// vex.warn(message, [node, label])
func (m *Module) warn(ctx context.Context, args ...object.Object) object.Object {
	if len(args) < 1 || len(args) > 3 {
		return object.Errorf("vex.warn: expected 1 to 3 arguments, got %d", len(args))
	}
	d, errObj := m.dispatching("vex.warn")
	if errObj != nil {
		return errObj
	}

	msg, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("vex.warn: message must be a string, got %s", args[0].Type())
	}

	var at object.Object
	var label object.Object
	switch len(args) {
	case 2:
		if pair, ok := args[1].(*object.List); ok {
			items := pair.Value()
			if len(items) != 2 {
				return object.Errorf("vex.warn: location must be [node, label], got %d items", len(items))
			}
			at, label = items[0], items[1]
		} else {
			at = args[1]
		}
	case 3:
		at, label = args[1], args[2]
	}

	irr := irritation.New(msg.Value())
	if at != nil {
		node, ok := at.(*Node)
		if !ok {
			return object.Errorf("vex.warn: location must be a node, got %s", at.Type())
		}
		labelText := ""
		if label != nil {
			s, ok := label.(*object.String)
			if !ok {
				return object.Errorf("vex.warn: label must be a string, got %s", label.Type())
			}
			labelText = s.Value()
		}
		irr = node.irritation(msg.Value(), labelText)
	}

	d.intents = append(d.intents, Warn{Irritation: irr})
	return object.Nil
}
