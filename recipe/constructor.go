package recipe

import (
	"fmt"
	"strings"
)

// ConstructorFactory populates a freshly created recipe from positional
// arguments. len(args) always equals len(keys).
type ConstructorFactory func(r *Recipe, keys []*Key, args []any) error

// DefaultFactory reads every argument through its key's component.
func DefaultFactory(r *Recipe, keys []*Key, args []any) error {
	for i, k := range keys {
		v, err := k.component.Read(r, args[i])
		if err != nil {
			return fmt.Errorf("argument %d (%s): %w", i+1, k.name, err)
		}
		r.SetValue(k, v)
	}
	return nil
}

// Constructor is one accepted arity of a schema.
type Constructor struct {
	schema  *Schema
	keys    []*Key
	factory ConstructorFactory
}

// Schema returns the schema the constructor belongs to.
func (c *Constructor) Schema() *Schema { return c.schema }

// Keys returns the keys the constructor consumes, in argument order.
func (c *Constructor) Keys() []*Key { return c.keys }

// Arity returns the number of arguments the constructor takes.
func (c *Constructor) Arity() int { return len(c.keys) }

// Create builds a new recipe of type t from args.
func (c *Constructor) Create(t *Type, args ...any) (*Recipe, error) {
	if len(args) != len(c.keys) {
		return nil, fmt.Errorf("expected %d arguments, got %d: %w", len(c.keys), len(args), ErrNoConstructor)
	}
	r := c.schema.newRecipe(t)
	r.New = true
	r.InitValues(true)
	if err := c.factory(r, c.keys, args); err != nil {
		return nil, err
	}
	return r, nil
}

// String returns the argument list, e.g. (result: result, ingredients: ingredient_array).
func (c *Constructor) String() string {
	parts := make([]string, len(c.keys))
	for i, k := range c.keys {
		parts[i] = k.name + ": " + k.component.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
