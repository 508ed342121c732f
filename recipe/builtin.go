package recipe

// Keys shared by the vanilla schemas.
var (
	ResultKey      = NewKey("result", Result)
	IngredientKey  = NewKey("ingredient", Ingredient)
	IngredientsKey = NewKey("ingredients", IngredientArray)
	PatternKeyKey  = NewKey("key", PatternKey)
	PatternRows    = NewKey("pattern", Pattern)
	TemplateKey    = NewKey("template", Ingredient)
	BaseKey        = NewKey("base", Ingredient)
	AdditionKey    = NewKey("addition", Ingredient)
	ExperienceKey  = NewKey("experience", Float).DefaultOptional(0.0)
)

func cookingSchema(ticks int, block string) *Schema {
	return MustSchema(
		ResultKey,
		IngredientKey,
		ExperienceKey,
		NewKey("cookingtime", Int).Alt("cookingTime").DefaultOptional(ticks),
	).UniqueOutputID(ResultKey).Convert(convertFurnace(block))
}

// RegisterBuiltins registers the vanilla crafting, cooking, stonecutting
// and smithing types together with their script shortcuts.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		id       string
		shortcut string
		schema   *Schema
	}{
		{"minecraft:crafting_shaped", "shaped", MustSchema(ResultKey, PatternRows, PatternKeyKey).
			UniqueOutputID(ResultKey).Convert(convertShaped)},
		{"minecraft:crafting_shapeless", "shapeless", MustSchema(ResultKey, IngredientsKey).
			UniqueOutputID(ResultKey).Convert(convertShapeless)},
		{"minecraft:smelting", "smelting", cookingSchema(200, "furnace")},
		{"minecraft:blasting", "blasting", cookingSchema(100, "blast_furnace")},
		{"minecraft:smoking", "smoking", cookingSchema(100, "smoker")},
		{"minecraft:campfire_cooking", "campfire_cooking", cookingSchema(600, "campfire")},
		{"minecraft:stonecutting", "stonecutting", MustSchema(ResultKey, IngredientKey).
			UniqueOutputID(ResultKey).Convert(convertStonecutting)},
		{"minecraft:smithing_transform", "smithing", MustSchema(ResultKey, TemplateKey, BaseKey, AdditionKey).
			UniqueOutputID(ResultKey).Convert(convertSmithing)},
	}
	for _, b := range builtins {
		if _, err := r.Register(b.id, b.schema); err != nil {
			return err
		}
		if err := r.Shortcut(b.shortcut, b.id); err != nil {
			return err
		}
	}
	return nil
}
