// Package recipe implements declarative recipe schemas.
//
// A Schema is an ordered list of Keys. From those keys the schema derives
// constructors, one per accepted argument count, so scripts can call a
// recipe type with trailing optional arguments left out:
//
//	result := recipe.NewKey("result", recipe.Result)
//	schema := recipe.MustSchema(
//	    result,
//	    recipe.NewKey("ingredient", recipe.Ingredient),
//	    recipe.NewKey("experience", recipe.Float).DefaultOptional(0.0),
//	).UniqueOutputID(result)
//
//	typ, _ := registry.Register("mymod:grinding", schema)
//	r, err := typ.Create("2x minecraft:gravel", "minecraft:cobblestone")
//
// The same schema reads recipe documents:
//
//	r, err := typ.Deserialize("mymod:gravel", []byte(`{"result":"minecraft:gravel","ingredient":"minecraft:cobblestone"}`))
//
// # Key Spec Reference
//
// Script-defined schemas describe keys with ParseKey:
//
//	result:result            Required key
//	time:int,opt             Optional without default
//	time:int,default=200     Optional with default
//	id:string,always         Always serialized
//	extra:string,opt,noauto  Not part of derived constructors
package recipe
