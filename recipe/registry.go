package recipe

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrDuplicateType is returned when a recipe type id is registered twice.
var ErrDuplicateType = errors.New("recipe type already registered")

// Type is a registered recipe type: a namespaced id bound to a schema.
// Scripts call types like functions; the argument count selects the
// constructor.
type Type struct {
	id     string
	schema *Schema
}

// ID returns the namespaced type id, such as minecraft:crafting_shaped.
func (t *Type) ID() string { return t.id }

// Schema returns the schema of the type.
func (t *Type) Schema() *Schema { return t.schema }

// Create builds a new recipe of this type from positional arguments.
func (t *Type) Create(args ...any) (*Recipe, error) {
	return t.schema.Create(t, args...)
}

// Deserialize creates a recipe of this type from a document.
func (t *Type) Deserialize(id string, json []byte) (*Recipe, error) {
	return t.schema.Deserialize(t, id, json)
}

// String returns the type id.
func (t *Type) String() string { return t.id }

// Registry maps type ids to schemas.
//
// Types are registered during startup and looked up constantly while
// documents load and scripts run, so reads go through a sync.Map and never
// take a lock.
type Registry struct {
	diag Diagnostics

	// types maps full ids and shortcut names to *Type
	types sync.Map

	// order holds types in registration order; mu guards it
	mu    sync.RWMutex
	order []*Type
}

// NewRegistry creates an empty registry whose schemas use diag.
func NewRegistry(diag Diagnostics) *Registry {
	return &Registry{diag: diag}
}

// Register binds id to schema. Ids without a namespace are placed in the
// minecraft namespace.
func (r *Registry) Register(id string, schema *Schema) (*Type, error) {
	id = qualify(id)
	t := &Type{id: id, schema: schema}
	if _, loaded := r.types.LoadOrStore(id, t); loaded {
		return nil, fmt.Errorf("%s: %w", id, ErrDuplicateType)
	}
	if !schema.diagSet {
		schema.diag = r.diag
	}

	r.mu.Lock()
	r.order = append(r.order, t)
	r.mu.Unlock()
	return t, nil
}

// Shortcut makes an existing type reachable under an extra name, such as
// shaped for minecraft:crafting_shaped.
func (r *Registry) Shortcut(name, id string) error {
	t, ok := r.Type(id)
	if !ok {
		return fmt.Errorf("shortcut %s: unknown type %s", name, id)
	}
	if _, loaded := r.types.LoadOrStore("#"+name, t); loaded {
		return fmt.Errorf("shortcut %s: %w", name, ErrDuplicateType)
	}
	return nil
}

// Type looks up a type by id or shortcut name.
func (r *Registry) Type(id string) (*Type, bool) {
	if t, ok := r.types.Load("#" + id); ok {
		return t.(*Type), true
	}
	if t, ok := r.types.Load(qualify(id)); ok {
		return t.(*Type), true
	}
	return nil, false
}

// TypeByID looks up a type by its full namespaced id. Shortcut names and
// ids without a namespace do not resolve, as in recipe documents.
func (r *Registry) TypeByID(id string) (*Type, bool) {
	if !strings.Contains(id, ":") {
		return nil, false
	}
	t, ok := r.types.Load(id)
	if !ok {
		return nil, false
	}
	return t.(*Type), true
}

// Unregister removes a type and every shortcut to it. It reports whether
// the type was registered.
func (r *Registry) Unregister(id string) bool {
	v, ok := r.types.LoadAndDelete(qualify(id))
	if !ok {
		return false
	}
	t := v.(*Type)
	r.types.Range(func(k, v any) bool {
		if v == t {
			r.types.Delete(k)
		}
		return true
	})

	r.mu.Lock()
	r.order = slices.DeleteFunc(r.order, func(o *Type) bool { return o == t })
	r.mu.Unlock()
	return true
}

// Types returns every registered type in registration order.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Type(nil), r.order...)
}

// Shortcuts returns shortcut names with the types they refer to.
func (r *Registry) Shortcuts() map[string]*Type {
	out := make(map[string]*Type)
	r.types.Range(func(k, v any) bool {
		if name, ok := strings.CutPrefix(k.(string), "#"); ok {
			out[name] = v.(*Type)
		}
		return true
	})
	return out
}

func qualify(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return "minecraft:" + id
}
