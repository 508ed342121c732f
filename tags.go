package kubescript

import (
	"github.com/Shopify/go-lua"
	"github.com/oriumgames/kubescript/script"
	"github.com/oriumgames/kubescript/tag"
)

// tagEditor is implemented by *tag.Event and *tag.PreEvent.
type tagEditor interface {
	Get(id string) tag.Wrapper
	Add(id string, filters ...any) error
	Remove(id string, filters ...any) error
	RemoveAll(id string)
}

var (
	_ tagEditor = (*tag.Event)(nil)
	_ tagEditor = (*tag.PreEvent)(nil)
)

// tagsEvent is the "tags.<kind>" event. Startup scripts receive a recording
// editor whose edits are replayed once the registry exists; server scripts
// edit the registry directly. Both see the same functions:
//
//	add(tag, filters...)     remove(tag, filters...)
//	removeAll(tag)           get(tag) -> wrapper
//
// Wrappers expose add, remove, removeAll and objectIds.
type tagsEvent struct {
	kind string
	ed   tagEditor
}

func (e *tagsEvent) Fields() map[string]any {
	return map[string]any{
		selfKey: tagEventName(e.kind),
		"kind":  e.kind,
		"add": lua.Function(func(l *lua.State) int {
			id, filters := tagArgs(l)
			if err := e.ed.Add(id, filters...); err != nil {
				script.Raise(l, err)
			}
			return 0
		}),
		"remove": lua.Function(func(l *lua.State) int {
			id, filters := tagArgs(l)
			if err := e.ed.Remove(id, filters...); err != nil {
				script.Raise(l, err)
			}
			return 0
		}),
		"removeAll": lua.Function(func(l *lua.State) int {
			id, _ := tagArgs(l)
			e.ed.RemoveAll(id)
			return 0
		}),
		"get": lua.Function(func(l *lua.State) int {
			id, _ := tagArgs(l)
			script.Push(l, wrapperFields(e.ed.Get(id)))
			return 1
		}),
	}
}

func wrapperFields(w tag.Wrapper) map[string]any {
	return map[string]any{
		selfKey: "tag",
		"id":    w.ID(),
		"add": lua.Function(func(l *lua.State) int {
			if err := w.Add(methodArgs(l)...); err != nil {
				script.Raise(l, err)
			}
			return 0
		}),
		"remove": lua.Function(func(l *lua.State) int {
			if err := w.Remove(methodArgs(l)...); err != nil {
				script.Raise(l, err)
			}
			return 0
		}),
		"removeAll": lua.Function(func(l *lua.State) int {
			w.RemoveAll()
			return 0
		}),
		"objectIds": lua.Function(func(l *lua.State) int {
			script.Push(l, w.ObjectIDs())
			return 1
		}),
	}
}

// tagArgs reads a tag id followed by filters.
func tagArgs(l *lua.State) (string, []any) {
	args := methodArgs(l)
	if len(args) == 0 {
		lua.Errorf(l, "missing tag id")
	}
	id, ok := args[0].(string)
	if !ok || id == "" {
		lua.Errorf(l, "tag id must be a non-empty string")
	}
	return id, args[1:]
}
