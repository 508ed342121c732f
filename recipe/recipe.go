package recipe

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidDocument is returned when a recipe document is not valid JSON.
var ErrInvalidDocument = errors.New("invalid recipe document")

// Recipe is a recipe object populated either by a constructor call from a
// script or from a document.
type Recipe struct {
	// Type is the registered type that created the recipe. It may be nil for
	// recipes created directly from a schema.
	Type *Type
	// ID is the namespaced recipe id. Empty means none was assigned yet.
	ID string
	// JSON is the source document, or nil for recipes created by scripts.
	JSON []byte
	// OriginalJSON is a copy of the loaded document kept for diagnostics.
	OriginalJSON []byte
	// New reports whether the recipe is authored fresh rather than loaded.
	New bool
	// Tags resolves tag ingredients for unique ids. May be nil.
	Tags TagLookup
	// Validate runs after the recipe is fully loaded. May be nil.
	Validate func(r *Recipe) error

	schema *Schema
	values []value
}

type value struct {
	key     *Key
	v       any
	set     bool
	changed bool
}

// Schema returns the schema that created the recipe.
func (r *Recipe) Schema() *Schema { return r.schema }

// InitValues allocates one value slot per key. New recipes receive the
// defaults of default-backed optional keys.
func (r *Recipe) InitValues(created bool) {
	if r.schema == nil {
		return
	}
	r.values = make([]value, len(r.schema.keys))
	for i, k := range r.schema.keys {
		r.values[i] = value{key: k}
		if !created {
			continue
		}
		if def, ok := k.Default(); ok {
			r.values[i].v = def
			r.values[i].set = true
			r.values[i].changed = k.alwaysWrite
		}
	}
}

func (r *Recipe) slot(name string) *value {
	for i := range r.values {
		if r.values[i].key.name == name {
			return &r.values[i]
		}
	}
	return nil
}

// Deserialize populates values from JSON. Unless merge is set, a missing
// required key is an error; merged values are marked as changed.
func (r *Recipe) Deserialize(merge bool) error {
	if !gjson.ValidBytes(r.JSON) {
		return ErrInvalidDocument
	}
	for i := range r.values {
		v := &r.values[i]
		res := lookup(r.JSON, v.key)
		if !res.Exists() || res.Type == gjson.Null {
			if !merge && !v.key.IsOptional() {
				return fmt.Errorf("missing required key %q", v.key.name)
			}
			continue
		}
		val, err := v.key.component.Read(r, res.Value())
		if err != nil {
			return fmt.Errorf("key %q: %w", v.key.name, err)
		}
		v.v = val
		v.set = true
		v.changed = merge
	}
	return nil
}

func lookup(json []byte, k *Key) gjson.Result {
	for _, name := range k.Names() {
		if res := gjson.GetBytes(json, name); res.Exists() {
			return res
		}
	}
	return gjson.Result{}
}

// Serialize writes changed values into a copy of the source document and
// returns it. New recipes write every value that is set.
func (r *Recipe) Serialize() ([]byte, error) {
	out := []byte("{}")
	if len(r.JSON) > 0 {
		out = slices.Clone(r.JSON)
	}
	var err error
	if r.Type != nil {
		if out, err = sjson.SetBytes(out, "type", r.Type.id); err != nil {
			return nil, fmt.Errorf("write type: %w", err)
		}
	}
	for _, v := range r.values {
		if !v.set || !(v.changed || v.key.alwaysWrite || r.New) {
			continue
		}
		w, err := v.key.component.Write(r, v.v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", v.key.name, err)
		}
		if out, err = sjson.SetBytes(out, v.key.name, w); err != nil {
			return nil, fmt.Errorf("key %q: %w", v.key.name, err)
		}
	}
	return out, nil
}

// Get returns the value of key, or nil when it is unset.
func (r *Recipe) Get(k *Key) any {
	return r.Value(k.name)
}

// Value returns the value of the named key, or nil when it is unset.
func (r *Recipe) Value(name string) any {
	if v := r.slot(name); v != nil && v.set {
		return v.v
	}
	return nil
}

// SetValue stores an already typed value for key and marks it changed.
// Keys that are not part of the schema are ignored.
func (r *Recipe) SetValue(k *Key, v any) {
	if s := r.slot(k.name); s != nil {
		s.v = v
		s.set = true
		s.changed = true
	}
}

// Set reads v through the named key's component and stores it.
func (r *Recipe) Set(name string, v any) error {
	s := r.slot(name)
	if s == nil {
		return fmt.Errorf("unknown key %q", name)
	}
	val, err := s.key.component.Read(r, v)
	if err != nil {
		return fmt.Errorf("key %q: %w", name, err)
	}
	s.v = val
	s.set = true
	s.changed = true
	return nil
}

// Changed reports whether any value differs from what was loaded.
func (r *Recipe) Changed() bool {
	for _, v := range r.values {
		if v.changed {
			return true
		}
	}
	return false
}

// UniqueID derives an id from the recipe contents through the schema's
// unique id function. It returns "" when none can be derived.
func (r *Recipe) UniqueID() string {
	if r.schema == nil || r.schema.uniqueID == nil {
		return ""
	}
	return r.schema.uniqueID(r)
}

// AfterLoaded checks that every required key holds a value and runs the
// Validate hook.
func (r *Recipe) AfterLoaded() error {
	for _, v := range r.values {
		if !v.set && !v.key.IsOptional() {
			return fmt.Errorf("missing required key %q", v.key.name)
		}
	}
	if r.Validate != nil {
		return r.Validate(r)
	}
	return nil
}

// InputIDs returns the ids of all item and tag ingredients, tags prefixed with '#'.
func (r *Recipe) InputIDs() []string {
	var ids []string
	for _, v := range r.values {
		if !v.set || !v.key.Role().IsInput() {
			continue
		}
		switch in := v.v.(type) {
		case InputItem:
			ids = append(ids, inputID(in))
		case []InputItem:
			for _, i := range in {
				ids = append(ids, inputID(i))
			}
		case map[string]InputItem:
			for _, k := range slices.Sorted(maps.Keys(in)) {
				ids = append(ids, inputID(in[k]))
			}
		}
	}
	return ids
}

// OutputIDs returns the ids of all results.
func (r *Recipe) OutputIDs() []string {
	var ids []string
	for _, v := range r.values {
		if !v.set || !v.key.Role().IsOutput() {
			continue
		}
		switch out := v.v.(type) {
		case OutputItem:
			ids = append(ids, out.Item)
		case []OutputItem:
			for _, o := range out {
				ids = append(ids, o.Item)
			}
		}
	}
	return ids
}

func inputID(in InputItem) string {
	if in.Tag != "" {
		return "#" + in.Tag
	}
	return in.Item
}
