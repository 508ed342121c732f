package recipe

import (
	"fmt"
	"strings"
)

// Role classifies what a key contributes to a recipe.
type Role uint8

const (
	// RoleOther is used for keys that are neither inputs nor outputs, such as
	// cooking time or experience.
	RoleOther Role = iota
	// RoleInput marks ingredients.
	RoleInput
	// RoleOutput marks results.
	RoleOutput
)

// IsInput reports whether the role is RoleInput.
func (r Role) IsInput() bool { return r == RoleInput }

// IsOutput reports whether the role is RoleOutput.
func (r Role) IsOutput() bool { return r == RoleOutput }

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	default:
		return "other"
	}
}

// OptionalKind is the tag of the Optional variant.
type OptionalKind uint8

const (
	// Required keys must be supplied by every constructor and document.
	Required OptionalKind = iota
	// OptionalWithDefault keys fall back to a provided default value.
	OptionalWithDefault
	// OptionalNoDefault keys may be absent and stay nil.
	OptionalNoDefault
)

// String returns the string representation of the kind.
func (k OptionalKind) String() string {
	switch k {
	case Required:
		return "required"
	case OptionalWithDefault:
		return "optional(default)"
	case OptionalNoDefault:
		return "optional"
	default:
		return "unknown"
	}
}

// Optional describes whether a key may be omitted and what it defaults to.
type Optional struct {
	Kind OptionalKind
	// Default provides the value for OptionalWithDefault keys. It is called
	// for every new recipe so mutable defaults are never shared.
	Default func() any
}

// Key is a named, typed slot of a recipe schema.
//
// Keys are values: the fluent methods return modified copies and never alter
// the receiver, so a key may be shared between schemas.
type Key struct {
	name        string
	names       []string
	component   Component
	optional    Optional
	alwaysWrite bool
	noAuto      bool
}

// NewKey creates a required key.
func NewKey(name string, component Component) *Key {
	return &Key{name: name, component: component}
}

func (k *Key) clone() *Key {
	c := *k
	c.names = append([]string(nil), k.names...)
	return &c
}

// Name returns the key name, which is also its document field.
func (k *Key) Name() string { return k.name }

// Names returns the primary name followed by alternate document names.
func (k *Key) Names() []string {
	return append([]string{k.name}, k.names...)
}

// Component returns the value codec of the key.
func (k *Key) Component() Component { return k.component }

// Role returns the role of the key's component.
func (k *Key) Role() Role { return k.component.Role() }

// Optional returns the optional variant of the key.
func (k *Key) Optional() Optional { return k.optional }

// IsOptional reports whether the key may be omitted.
func (k *Key) IsOptional() bool {
	switch k.optional.Kind {
	case OptionalWithDefault, OptionalNoDefault:
		return true
	default:
		return false
	}
}

// AlwaysWrite reports whether the key is serialized even when unchanged.
func (k *Key) AlwaysWrite() bool { return k.alwaysWrite }

// IncludeInAutoConstructors reports whether derived constructors consume the key.
func (k *Key) IncludeInAutoConstructors() bool { return !k.noAuto }

// Default returns the default value of the key and whether it has one.
func (k *Key) Default() (any, bool) {
	switch k.optional.Kind {
	case OptionalWithDefault:
		if k.optional.Default == nil {
			return nil, true
		}
		return k.optional.Default(), true
	case Required, OptionalNoDefault:
		return nil, false
	default:
		return nil, false
	}
}

// Alt returns a copy of the key that also reads the given document names.
func (k *Key) Alt(names ...string) *Key {
	c := k.clone()
	c.names = append(c.names, names...)
	return c
}

// DefaultOptional returns a copy of the key that defaults to v.
func (k *Key) DefaultOptional(v any) *Key {
	return k.DefaultFunc(func() any { return v })
}

// DefaultFunc returns a copy of the key whose default is produced by fn.
func (k *Key) DefaultFunc(fn func() any) *Key {
	c := k.clone()
	c.optional = Optional{Kind: OptionalWithDefault, Default: fn}
	return c
}

// Opt returns a copy of the key that may be absent without a default.
func (k *Key) Opt() *Key {
	c := k.clone()
	c.optional = Optional{Kind: OptionalNoDefault}
	return c
}

// Always returns a copy of the key that is always serialized.
func (k *Key) Always() *Key {
	c := k.clone()
	c.alwaysWrite = true
	return c
}

// Exclude returns a copy of the key that derived constructors skip.
func (k *Key) Exclude() *Key {
	c := k.clone()
	c.noAuto = true
	return c
}

// String returns the key as name:component with its modifiers.
func (k *Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.name)
	sb.WriteByte(':')
	if k.component != nil {
		sb.WriteString(k.component.String())
	}
	if k.IsOptional() {
		sb.WriteByte('?')
	}
	return sb.String()
}

// Key spec modifiers
const (
	modOpt    = "opt"    // Optional without default
	modAlways = "always" // Always serialized
	modNoAuto = "noauto" // Skipped by derived constructors
)

// ParseKey parses a compact key definition of the form
// name:component[,opt][,always][,noauto][,default=<value>], as used by
// script-defined schemas. Component names are resolved with ComponentByName.
func ParseKey(spec string) (*Key, error) {
	head, mods, _ := strings.Cut(spec, ",")
	name, compName, ok := strings.Cut(strings.TrimSpace(head), ":")
	if !ok || name == "" || compName == "" {
		return nil, fmt.Errorf("key %q: expected name:component", spec)
	}
	comp, ok := ComponentByName(compName)
	if !ok {
		return nil, fmt.Errorf("key %q: unknown component %q", spec, compName)
	}
	k := NewKey(name, comp)
	if mods == "" {
		return k, nil
	}
	for part := range strings.SplitSeq(mods, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == modOpt:
			k = k.Opt()
		case part == modAlways:
			k = k.Always()
		case part == modNoAuto:
			k = k.Exclude()
		case strings.HasPrefix(part, "default="):
			v, err := comp.Read(nil, strings.TrimPrefix(part, "default="))
			if err != nil {
				return nil, fmt.Errorf("key %q: default: %w", spec, err)
			}
			k = k.DefaultOptional(v)
		case part == "":
		default:
			return nil, fmt.Errorf("key %q: unknown modifier %q", spec, part)
		}
	}
	return k, nil
}
