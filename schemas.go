package kubescript

import (
	"fmt"

	"github.com/Shopify/go-lua"
	"github.com/oriumgames/kubescript/recipe"
	"github.com/oriumgames/kubescript/script"
)

// schemasEvent is the "recipes.schemas" event, posted to startup scripts
// before tags and recipes load:
//
//	register(id, keys, shortcuts...)  define a recipe type, returning a handle
//	components()                      list the component names keys may use
//
// keys is a list of key definitions such as "result:result" or
// "time:int,default=200". Type handles expose uniqueOutput(key) and
// uniqueInput(key), which derive generated recipe ids from that key.
type schemasEvent struct {
	m   *Manager
	ids []string
}

func (e *schemasEvent) Fields() map[string]any {
	return map[string]any{
		selfKey:    EventNameSchemas,
		"register": lua.Function(e.luaRegister),
		"components": lua.Function(func(l *lua.State) int {
			script.Push(l, recipe.ComponentNames())
			return 1
		}),
	}
}

func (e *schemasEvent) luaRegister(l *lua.State) int {
	args := methodArgs(l)
	if len(args) < 2 {
		lua.Errorf(l, "register: expected a type id and a list of keys")
	}
	id, ok := args[0].(string)
	if !ok || id == "" {
		lua.Errorf(l, "register: type id must be a non-empty string")
	}
	specs, ok := args[1].([]any)
	if !ok {
		lua.Errorf(l, "register %s: keys must be a list, got %T", id, args[1])
	}

	keys := make([]*recipe.Key, 0, len(specs))
	for i, v := range specs {
		spec, ok := v.(string)
		if !ok {
			lua.Errorf(l, "register %s: key %d must be a string, got %T", id, i+1, v)
		}
		k, err := recipe.ParseKey(spec)
		if err != nil {
			script.Raise(l, fmt.Errorf("register %s: %w", id, err))
		}
		keys = append(keys, k)
	}
	s, err := recipe.NewSchema(keys...)
	if err != nil {
		script.Raise(l, fmt.Errorf("register %s: %w", id, err))
	}

	t, err := e.m.types.Register(id, s)
	if err != nil {
		script.Raise(l, fmt.Errorf("register: %w", err))
	}
	e.ids = append(e.ids, t.ID())
	for _, v := range args[2:] {
		name, ok := v.(string)
		if !ok || name == "" {
			lua.Errorf(l, "register %s: shortcut must be a non-empty string", t.ID())
		}
		if err := e.m.types.Shortcut(name, t.ID()); err != nil {
			script.Raise(l, fmt.Errorf("register %s: %w", t.ID(), err))
		}
	}
	e.m.log.Debug("kubescript: script recipe type registered", "type", t.ID(), "keys", len(keys))

	script.Push(l, e.handle(t))
	return 1
}

func (e *schemasEvent) handle(t *recipe.Type) map[string]any {
	return map[string]any{
		selfKey: "recipe_type",
		"id":    t.ID(),
		"uniqueOutput": lua.Function(func(l *lua.State) int {
			k := handleKey(l, t)
			switch {
			case k.Component() == recipe.ResultArray:
				t.Schema().UniqueOutputArrayID(k)
			case k.Role().IsOutput():
				t.Schema().UniqueOutputID(k)
			default:
				lua.Errorf(l, "uniqueOutput: %s is not an output key", k.Name())
			}
			script.Push(l, e.handle(t))
			return 1
		}),
		"uniqueInput": lua.Function(func(l *lua.State) int {
			k := handleKey(l, t)
			if k.Component() != recipe.Ingredient {
				lua.Errorf(l, "uniqueInput: %s is not a single ingredient key", k.Name())
			}
			t.Schema().UniqueInputID(k)
			script.Push(l, e.handle(t))
			return 1
		}),
	}
}

// handleKey reads the key name argument of a type handle function.
func handleKey(l *lua.State, t *recipe.Type) *recipe.Key {
	args := methodArgs(l)
	if len(args) != 1 {
		lua.Errorf(l, "expected 1 argument, got %d", len(args))
	}
	name, ok := args[0].(string)
	if !ok {
		lua.Errorf(l, "key name must be a string, got %T", args[0])
	}
	k, ok := t.Schema().Key(name)
	if !ok {
		lua.Errorf(l, "%s has no key %q", t.ID(), name)
	}
	return k
}
