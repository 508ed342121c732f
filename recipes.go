package kubescript

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/cespare/xxhash/v2"
	"github.com/oriumgames/kubescript/recipe"
	"github.com/oriumgames/kubescript/script"
	"github.com/oriumgames/kubescript/tag"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrFilter is returned for recipe filters that cannot be interpreted.
var ErrFilter = errors.New("invalid recipe filter")

// recipesEvent is the "recipes" event. It exposes one function per
// recipe type shortcut plus:
//
//	recipe(type, args...)  create a recipe of any registered type
//	custom(json)           create a recipe from a document string or table
//	remove(filter)         remove matching recipes, returning the count
//	count(filter)          count matching recipes
//
// Created recipes are returned as handles with id(name) and
// set(key, value) functions.
type recipesEvent struct {
	m     *Manager
	items *tag.Registry

	all     []*recipe.Recipe
	added   []*recipe.Recipe
	removed map[*recipe.Recipe]struct{}
}

func newRecipesEvent(m *Manager, items *tag.Registry) *recipesEvent {
	return &recipesEvent{m: m, items: items, removed: make(map[*recipe.Recipe]struct{})}
}

func (e *recipesEvent) Fields() map[string]any {
	f := map[string]any{
		selfKey:  EventNameRecipes,
		"recipe": lua.Function(e.luaRecipe),
		"custom": lua.Function(e.luaCustom),
		"remove": lua.Function(e.luaRemove),
		"count":  lua.Function(e.luaCount),
	}
	for name, typ := range e.m.types.Shortcuts() {
		f[name] = lua.Function(func(l *lua.State) int {
			return e.create(l, typ, methodArgs(l))
		})
	}
	return f
}

func (e *recipesEvent) luaRecipe(l *lua.State) int {
	args := methodArgs(l)
	if len(args) == 0 {
		lua.Errorf(l, "recipe: missing type")
	}
	id, ok := args[0].(string)
	if !ok {
		lua.Errorf(l, "recipe: type must be a string, got %T", args[0])
	}
	typ, ok := e.m.types.Type(id)
	if !ok {
		script.Raise(l, fmt.Errorf("%w %q", ErrUnknownType, id))
	}
	return e.create(l, typ, args[1:])
}

func (e *recipesEvent) create(l *lua.State, typ *recipe.Type, args []any) int {
	r, err := typ.Create(args...)
	if err != nil {
		script.Raise(l, fmt.Errorf("%s: %w", typ.ID(), err))
	}
	return e.push(l, r)
}

func (e *recipesEvent) luaCustom(l *lua.State) int {
	args := methodArgs(l)
	if len(args) != 1 {
		lua.Errorf(l, "custom: expected 1 argument, got %d", len(args))
	}
	var doc []byte
	switch v := args[0].(type) {
	case string:
		doc = []byte(v)
	case map[string]any:
		var err error
		if doc, err = documentOf(v); err != nil {
			script.Raise(l, fmt.Errorf("custom: %w", err))
		}
	default:
		lua.Errorf(l, "custom: expected a document, got %T", v)
	}

	typeID := gjson.GetBytes(doc, "type").String()
	typ, ok := e.m.types.TypeByID(typeID)
	if !ok {
		script.Raise(l, fmt.Errorf("custom: %w %q", ErrUnknownType, typeID))
	}
	r, err := typ.Deserialize("", doc)
	if err != nil {
		script.Raise(l, fmt.Errorf("custom %s: %w", typeID, err))
	}
	return e.push(l, r)
}

func (e *recipesEvent) luaRemove(l *lua.State) int {
	match := e.filter(l)
	n := 0
	for _, r := range e.all {
		if _, ok := e.removed[r]; ok || !match(r) {
			continue
		}
		e.removed[r] = struct{}{}
		n++
	}
	l.PushInteger(n)
	return 1
}

func (e *recipesEvent) luaCount(l *lua.State) int {
	match := e.filter(l)
	n := 0
	for _, r := range e.all {
		if _, ok := e.removed[r]; !ok && match(r) {
			n++
		}
	}
	l.PushInteger(n)
	return 1
}

func (e *recipesEvent) filter(l *lua.State) func(*recipe.Recipe) bool {
	args := methodArgs(l)
	var f any
	if len(args) > 0 {
		f = args[0]
	}
	match, err := e.compileFilter(f)
	if err != nil {
		script.Raise(l, err)
	}
	return match
}

// compileFilter turns a filter into a predicate. A filter is a recipe id,
// or a table whose id, type, output, input and mod entries must all match.
// A missing or empty filter matches every recipe.
func (e *recipesEvent) compileFilter(f any) (func(*recipe.Recipe) bool, error) {
	switch f := f.(type) {
	case nil:
		return func(*recipe.Recipe) bool { return true }, nil
	case []any:
		if len(f) == 0 {
			return func(*recipe.Recipe) bool { return true }, nil
		}
	case string:
		id := recipeID(f)
		return func(r *recipe.Recipe) bool { return r.ID == id }, nil
	case map[string]any:
		var preds []func(*recipe.Recipe) bool
		for key, v := range f {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string", ErrFilter, key)
			}
			switch key {
			case "id":
				id := recipeID(s)
				preds = append(preds, func(r *recipe.Recipe) bool { return r.ID == id })
			case "type":
				typ, ok := e.m.types.Type(s)
				if !ok {
					return nil, fmt.Errorf("%w: %w %q", ErrFilter, ErrUnknownType, s)
				}
				preds = append(preds, func(r *recipe.Recipe) bool { return r.Type == typ })
			case "output":
				id := itemID(s)
				preds = append(preds, func(r *recipe.Recipe) bool { return slices.Contains(r.OutputIDs(), id) })
			case "input":
				preds = append(preds, e.inputFilter(s))
			case "mod":
				preds = append(preds, func(r *recipe.Recipe) bool { return strings.HasPrefix(r.ID, s+":") })
			default:
				return nil, fmt.Errorf("%w: unknown key %q", ErrFilter, key)
			}
		}
		return func(r *recipe.Recipe) bool {
			for _, p := range preds {
				if !p(r) {
					return false
				}
			}
			return true
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported filter %T", ErrFilter, f)
}

// inputFilter matches recipes using an item or tag as an ingredient. An item
// also matches ingredients naming a tag that contains it.
func (e *recipesEvent) inputFilter(s string) func(*recipe.Recipe) bool {
	if t, ok := strings.CutPrefix(s, "#"); ok {
		want := "#" + itemID(t)
		return func(r *recipe.Recipe) bool { return slices.Contains(r.InputIDs(), want) }
	}
	want := itemID(s)
	return func(r *recipe.Recipe) bool {
		for _, id := range r.InputIDs() {
			if id == want {
				return true
			}
			if t, ok := strings.CutPrefix(id, "#"); ok && e.items != nil && e.items.Has(t, want) {
				return true
			}
		}
		return false
	}
}

// push records a created recipe and pushes its handle.
func (e *recipesEvent) push(l *lua.State, r *recipe.Recipe) int {
	if e.items != nil {
		r.Tags = e.items
	}
	e.all = append(e.all, r)
	e.added = append(e.added, r)
	script.Push(l, e.handle(r))
	return 1
}

func (e *recipesEvent) handle(r *recipe.Recipe) map[string]any {
	return map[string]any{
		selfKey: "recipe",
		"type":  r.Type.ID(),
		"id": lua.Function(func(l *lua.State) int {
			args := methodArgs(l)
			if len(args) != 1 {
				lua.Errorf(l, "id: expected 1 argument, got %d", len(args))
			}
			id, ok := args[0].(string)
			if !ok || id == "" {
				lua.Errorf(l, "id: expected a non-empty string")
			}
			r.ID = recipeID(id)
			script.Push(l, e.handle(r))
			return 1
		}),
		"set": lua.Function(func(l *lua.State) int {
			args := methodArgs(l)
			if len(args) != 2 {
				lua.Errorf(l, "set: expected 2 arguments, got %d", len(args))
			}
			key, ok := args[0].(string)
			if !ok {
				lua.Errorf(l, "set: key must be a string")
			}
			if err := r.Set(key, args[1]); err != nil {
				script.Raise(l, err)
			}
			script.Push(l, e.handle(r))
			return 1
		}),
	}
}

func (e *recipesEvent) removedCount() int {
	return len(e.removed)
}

// finish assigns ids to recipes created without one, validates every
// remaining recipe and returns them in order. A later recipe replaces an
// earlier one with the same id.
func (e *recipesEvent) finish() ([]*recipe.Recipe, []error) {
	var errs []error
	var out []*recipe.Recipe
	index := make(map[string]int)
	for _, r := range e.all {
		if _, ok := e.removed[r]; ok {
			continue
		}
		if r.ID == "" {
			id, err := e.generateID(r, index)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s recipe: %w", r.Type.ID(), err))
				continue
			}
			r.ID = id
		}
		if err := r.AfterLoaded(); err != nil {
			errs = append(errs, fmt.Errorf("recipe %s: %w", r.ID, err))
			continue
		}
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out, errs
}

// generateID derives kubejs:<type>/<unique id>, adding a numeric suffix on
// collision. Without a unique id the id is a hash of the serialized recipe,
// so identical recipes share it.
func (e *recipesEvent) generateID(r *recipe.Recipe, taken map[string]int) (string, error) {
	typePath := strings.ReplaceAll(recipe.NormalizeID(r.Type.ID()), ":", "/")
	if uid := r.UniqueID(); uid != "" {
		base := "kubejs:" + typePath + "/" + strings.ReplaceAll(uid, ":", "_")
		id := base
		for n := 2; ; n++ {
			if _, ok := taken[id]; !ok {
				break
			}
			id = fmt.Sprintf("%s_%d", base, n)
		}
		e.debug(r, id)
		return id, nil
	}

	data, err := r.Serialize()
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("kubejs:%s/kjs_%016x", typePath, xxhash.Sum64(data))
	e.debug(r, id)
	return id, nil
}

func (e *recipesEvent) debug(r *recipe.Recipe, id string) {
	if e.m.cfg.DebugInfo {
		e.m.log.Info("kubescript: generated recipe id", "type", r.Type.ID(), "id", id)
	}
}

// documentOf builds a JSON document from a Lua table.
func documentOf(m map[string]any) ([]byte, error) {
	doc := []byte("{}")
	for k, v := range m {
		var err error
		doc, err = sjson.SetBytes(doc, pathEscaper.Replace(k), v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
	}
	return doc, nil
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

// recipeID places ids without a namespace in the kubejs namespace.
func recipeID(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "kubejs:" + id
}

// itemID places ids without a namespace in the minecraft namespace.
func itemID(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "minecraft:" + id
}

// selfKey marks tables exposed to scripts so that methodArgs can tell a
// receiver from a table argument.
const selfKey = "__kubescript"

// methodArgs returns the arguments of a Go function called from Lua,
// dropping the receiver table when it was called with method syntax.
func methodArgs(l *lua.State) []any {
	args, err := script.Args(l, 1)
	if err != nil {
		script.Raise(l, err)
	}
	if len(args) > 0 {
		if m, ok := args[0].(map[string]any); ok && m[selfKey] != nil {
			return args[1:]
		}
	}
	return args
}
