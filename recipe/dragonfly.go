package recipe

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/df-mc/dragonfly/server/item"
	dfrecipe "github.com/df-mc/dragonfly/server/item/recipe"
	"github.com/df-mc/dragonfly/server/world"
)

// ErrNotConvertible is returned for recipes whose schema has no dragonfly
// converter, such as recipes of custom modded types.
var ErrNotConvertible = errors.New("recipe type has no dragonfly equivalent")

// ConvertFunc turns a populated recipe into a dragonfly recipe.
type ConvertFunc func(r *Recipe) (dfrecipe.Recipe, error)

// Convert installs the dragonfly converter of the schema.
// It must be called during registration.
func (s *Schema) Convert(fn ConvertFunc) *Schema {
	s.convert = fn
	return s
}

// Dragonfly converts the recipe with its schema's converter.
func (r *Recipe) Dragonfly() (dfrecipe.Recipe, error) {
	if r.schema == nil || r.schema.convert == nil {
		return nil, ErrNotConvertible
	}
	return r.schema.convert(r)
}

func resolveStack(o OutputItem) (item.Stack, error) {
	it, ok := world.ItemByName(o.Item, 0)
	if !ok {
		return item.Stack{}, fmt.Errorf("unknown item %q", o.Item)
	}
	return item.NewStack(it, o.Count), nil
}

func resolveInput(in InputItem) (dfrecipe.Item, error) {
	if in.Tag != "" {
		return dfrecipe.NewItemTag(in.Tag, in.Count), nil
	}
	return resolveStack(OutputItem{Item: in.Item, Count: in.Count})
}

func resultOf(r *Recipe, key string) (item.Stack, error) {
	out, ok := r.Value(key).(OutputItem)
	if !ok {
		return item.Stack{}, fmt.Errorf("%s: no result", key)
	}
	return resolveStack(out)
}

func ingredientOf(r *Recipe, key string) (dfrecipe.Item, error) {
	in, ok := r.Value(key).(InputItem)
	if !ok {
		return nil, fmt.Errorf("%s: no ingredient", key)
	}
	return resolveInput(in)
}

func convertShaped(r *Recipe) (dfrecipe.Recipe, error) {
	output, err := resultOf(r, "result")
	if err != nil {
		return nil, err
	}
	rows, _ := r.Value("pattern").([]string)
	keys, _ := r.Value("key").(map[string]InputItem)

	width := 0
	for _, row := range rows {
		width = max(width, utf8.RuneCountInString(row))
	}
	input := make([]dfrecipe.Item, 0, width*len(rows))
	for _, row := range rows {
		n := 0
		for _, c := range row {
			n++
			in, ok := keys[string(c)]
			if c == ' ' || !ok {
				if c != ' ' {
					return nil, fmt.Errorf("pattern character %q has no key", c)
				}
				input = append(input, item.Stack{})
				continue
			}
			it, err := resolveInput(in)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", c, err)
			}
			input = append(input, it)
		}
		for ; n < width; n++ {
			input = append(input, item.Stack{})
		}
	}
	return dfrecipe.NewShaped(input, output, dfrecipe.NewShape(width, len(rows)), "crafting_table"), nil
}

func convertShapeless(r *Recipe) (dfrecipe.Recipe, error) {
	output, err := resultOf(r, "result")
	if err != nil {
		return nil, err
	}
	ingredients, _ := r.Value("ingredients").([]InputItem)
	input := make([]dfrecipe.Item, 0, len(ingredients))
	for i, in := range ingredients {
		it, err := resolveInput(in)
		if err != nil {
			return nil, fmt.Errorf("ingredients[%d]: %w", i, err)
		}
		input = append(input, it)
	}
	return dfrecipe.NewShapeless(input, output, "crafting_table"), nil
}

func convertFurnace(block string) ConvertFunc {
	return func(r *Recipe) (dfrecipe.Recipe, error) {
		output, err := resultOf(r, "result")
		if err != nil {
			return nil, err
		}
		input, err := ingredientOf(r, "ingredient")
		if err != nil {
			return nil, err
		}
		return dfrecipe.NewFurnace(input, output, block), nil
	}
}

func convertStonecutting(r *Recipe) (dfrecipe.Recipe, error) {
	output, err := resultOf(r, "result")
	if err != nil {
		return nil, err
	}
	input, err := ingredientOf(r, "ingredient")
	if err != nil {
		return nil, err
	}
	return dfrecipe.NewShapeless([]dfrecipe.Item{input}, output, "stonecutter"), nil
}

func convertSmithing(r *Recipe) (dfrecipe.Recipe, error) {
	output, err := resultOf(r, "result")
	if err != nil {
		return nil, err
	}
	template, err := ingredientOf(r, "template")
	if err != nil {
		return nil, err
	}
	base, err := ingredientOf(r, "base")
	if err != nil {
		return nil, err
	}
	addition, err := ingredientOf(r, "addition")
	if err != nil {
		return nil, err
	}
	return dfrecipe.NewSmithingTransform(base, addition, template, output, "smithing_table"), nil
}
