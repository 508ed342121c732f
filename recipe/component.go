package recipe

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"unicode/utf8"
)

// Component converts key values between script/document form and the typed
// values a recipe holds.
//
// Read receives the decoded form of either a script argument or a document
// field: nil, bool, float64, int, string, []any, map[string]any, or a value
// already of the component's own type. The recipe argument may be nil when
// a value is read outside of any recipe, such as key defaults.
type Component interface {
	// Role returns whether values are inputs, outputs or neither.
	Role() Role
	// Read converts v into the component's value type.
	Read(r *Recipe, v any) (any, error)
	// Write converts a value back to a JSON-compatible form.
	Write(r *Recipe, v any) (any, error)
	// String returns the component name used in key specs and diagnostics.
	String() string
}

// Builtin components.
var (
	String           Component = stringComponent{}
	Int              Component = intComponent{}
	Float            Component = floatComponent{}
	Bool             Component = boolComponent{}
	Ingredient       Component = inputItemComponent{}
	Result           Component = outputItemComponent{}
	IngredientArray  Component = inputItemArrayComponent{}
	ResultArray      Component = outputItemArrayComponent{}
	Pattern          Component = patternComponent{}
	PatternKey       Component = patternKeyComponent{}
	StringArray      Component = stringArrayComponent{}
	componentsByName sync.Map // map[string]Component
)

func init() {
	for _, c := range []Component{String, Int, Float, Bool, Ingredient, Result, IngredientArray, ResultArray, Pattern, PatternKey, StringArray} {
		RegisterComponent(c)
	}
}

// RegisterComponent makes a component available to ParseKey under its name.
// Registering a second component with the same name replaces the first.
func RegisterComponent(c Component) {
	componentsByName.Store(c.String(), c)
}

// ComponentByName looks up a registered component.
func ComponentByName(name string) (Component, bool) {
	c, ok := componentsByName.Load(name)
	if !ok {
		return nil, false
	}
	return c.(Component), true
}

// ComponentNames returns the sorted names of all registered components.
func ComponentNames() []string {
	var names []string
	componentsByName.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

type stringComponent struct{}

func (stringComponent) Role() Role     { return RoleOther }
func (stringComponent) String() string { return "string" }

func (stringComponent) Read(_ *Recipe, v any) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return nil, fmt.Errorf("expected string, got %T", v)
	}
}

func (stringComponent) Write(_ *Recipe, v any) (any, error) { return v, nil }

type intComponent struct{}

func (intComponent) Role() Role     { return RoleOther }
func (intComponent) String() string { return "int" }

func (intComponent) Read(_ *Recipe, v any) (any, error) { return toInt(v) }

func (intComponent) Write(_ *Recipe, v any) (any, error) { return v, nil }

func toInt(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

type floatComponent struct{}

func (floatComponent) Role() Role     { return RoleOther }
func (floatComponent) String() string { return "float" }

func (floatComponent) Read(_ *Recipe, v any) (any, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}
}

func (floatComponent) Write(_ *Recipe, v any) (any, error) { return v, nil }

type boolComponent struct{}

func (boolComponent) Role() Role     { return RoleOther }
func (boolComponent) String() string { return "bool" }

func (boolComponent) Read(_ *Recipe, v any) (any, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("expected boolean, got %T", v)
	}
}

func (boolComponent) Write(_ *Recipe, v any) (any, error) { return v, nil }

type inputItemComponent struct{}

func (inputItemComponent) Role() Role     { return RoleInput }
func (inputItemComponent) String() string { return "ingredient" }

func (inputItemComponent) Read(_ *Recipe, v any) (any, error) { return readInputItem(v) }

func (inputItemComponent) Write(_ *Recipe, v any) (any, error) {
	in, ok := v.(InputItem)
	if !ok {
		return nil, fmt.Errorf("expected InputItem, got %T", v)
	}
	return writeInputItem(in), nil
}

type outputItemComponent struct{}

func (outputItemComponent) Role() Role     { return RoleOutput }
func (outputItemComponent) String() string { return "result" }

func (outputItemComponent) Read(_ *Recipe, v any) (any, error) { return readOutputItem(v) }

func (outputItemComponent) Write(_ *Recipe, v any) (any, error) {
	out, ok := v.(OutputItem)
	if !ok {
		return nil, fmt.Errorf("expected OutputItem, got %T", v)
	}
	return writeOutputItem(out), nil
}

type inputItemArrayComponent struct{}

func (inputItemArrayComponent) Role() Role     { return RoleInput }
func (inputItemArrayComponent) String() string { return "ingredient_array" }

func (inputItemArrayComponent) Read(_ *Recipe, v any) (any, error) {
	switch v := v.(type) {
	case []InputItem:
		return v, nil
	case []any:
		items := make([]InputItem, 0, len(v))
		for i, e := range v {
			in, err := readInputItem(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, in)
		}
		return items, nil
	default:
		in, err := readInputItem(v)
		if err != nil {
			return nil, err
		}
		return []InputItem{in}, nil
	}
}

func (inputItemArrayComponent) Write(_ *Recipe, v any) (any, error) {
	items, ok := v.([]InputItem)
	if !ok {
		return nil, fmt.Errorf("expected []InputItem, got %T", v)
	}
	out := make([]any, len(items))
	for i, in := range items {
		out[i] = writeInputItem(in)
	}
	return out, nil
}

type outputItemArrayComponent struct{}

func (outputItemArrayComponent) Role() Role     { return RoleOutput }
func (outputItemArrayComponent) String() string { return "result_array" }

func (outputItemArrayComponent) Read(_ *Recipe, v any) (any, error) {
	switch v := v.(type) {
	case []OutputItem:
		return v, nil
	case []any:
		items := make([]OutputItem, 0, len(v))
		for i, e := range v {
			out, err := readOutputItem(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, out)
		}
		return items, nil
	default:
		out, err := readOutputItem(v)
		if err != nil {
			return nil, err
		}
		return []OutputItem{out}, nil
	}
}

func (outputItemArrayComponent) Write(_ *Recipe, v any) (any, error) {
	items, ok := v.([]OutputItem)
	if !ok {
		return nil, fmt.Errorf("expected []OutputItem, got %T", v)
	}
	out := make([]any, len(items))
	for i, o := range items {
		out[i] = writeOutputItem(o)
	}
	return out, nil
}

type stringArrayComponent struct{}

func (stringArrayComponent) Role() Role     { return RoleOther }
func (stringArrayComponent) String() string { return "string_array" }

func (stringArrayComponent) Read(_ *Recipe, v any) (any, error) { return readStrings(v) }

func (stringArrayComponent) Write(_ *Recipe, v any) (any, error) { return v, nil }

func readStrings(v any) ([]string, error) {
	switch v := v.(type) {
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("[%d]: expected string, got %T", i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string list, got %T", v)
	}
}

type patternComponent struct{}

func (patternComponent) Role() Role     { return RoleOther }
func (patternComponent) String() string { return "pattern" }

func (patternComponent) Read(_ *Recipe, v any) (any, error) {
	rows, err := readStrings(v)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows) > 3 {
		return nil, fmt.Errorf("pattern must have 1 to 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if n := utf8.RuneCountInString(row); n == 0 || n > 3 {
			return nil, fmt.Errorf("pattern row %d must have 1 to 3 columns, got %d", i, n)
		}
	}
	return rows, nil
}

func (patternComponent) Write(_ *Recipe, v any) (any, error) { return v, nil }

type patternKeyComponent struct{}

func (patternKeyComponent) Role() Role     { return RoleInput }
func (patternKeyComponent) String() string { return "pattern_key" }

func (patternKeyComponent) Read(_ *Recipe, v any) (any, error) {
	switch v := v.(type) {
	case map[string]InputItem:
		return v, nil
	case map[string]any:
		out := make(map[string]InputItem, len(v))
		for k, e := range v {
			if utf8.RuneCountInString(k) != 1 {
				return nil, fmt.Errorf("pattern key %q must be a single character", k)
			}
			in, err := readInputItem(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = in
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected key map, got %T", v)
	}
}

func (patternKeyComponent) Write(_ *Recipe, v any) (any, error) {
	keys, ok := v.(map[string]InputItem)
	if !ok {
		return nil, fmt.Errorf("expected key map, got %T", v)
	}
	out := make(map[string]any, len(keys))
	for k, in := range keys {
		out[k] = writeInputItem(in)
	}
	return out, nil
}
