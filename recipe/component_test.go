package recipe

import (
	"errors"
	"slices"
	"testing"
)

func TestReadItemStrings(t *testing.T) {
	out, err := Result.Read(nil, "3x stick")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out != (OutputItem{Item: "minecraft:stick", Count: 3}) {
		t.Fatalf("unexpected result %v", out)
	}

	in, err := Ingredient.Read(nil, "#c:ingots/iron")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if in != (InputItem{Tag: "c:ingots/iron", Count: 1}) {
		t.Fatalf("unexpected ingredient %v", in)
	}

	if _, err := Result.Read(nil, "#minecraft:planks"); err == nil {
		t.Fatal("expected tag result to fail")
	}
	if _, err := Ingredient.Read(nil, ""); err == nil {
		t.Fatal("expected empty id to fail")
	}
}

func TestReadItemObjects(t *testing.T) {
	out, err := Result.Read(nil, map[string]any{"item": "minecraft:bread", "count": 2.0})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out != (OutputItem{Item: "minecraft:bread", Count: 2}) {
		t.Fatalf("unexpected result %v", out)
	}

	in, err := Ingredient.Read(nil, map[string]any{"tag": "minecraft:planks"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if in != (InputItem{Tag: "minecraft:planks", Count: 1}) {
		t.Fatalf("unexpected ingredient %v", in)
	}

	if _, err := Result.Read(nil, map[string]any{"count": 1.0}); err == nil {
		t.Fatal("expected result object without id to fail")
	}
	if _, err := Result.Read(nil, map[string]any{"id": "minecraft:bread", "count": 1.5}); err == nil {
		t.Fatal("expected fractional count to fail")
	}
}

func TestIngredientArrayAcceptsSingleValue(t *testing.T) {
	v, err := IngredientArray.Read(nil, "minecraft:apple")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := v.([]InputItem)
	if len(got) != 1 || got[0].Item != "minecraft:apple" {
		t.Fatalf("unexpected ingredients %v", got)
	}

	_, err = IngredientArray.Read(nil, []any{"minecraft:apple", 5.0})
	if err == nil {
		t.Fatal("expected bad element to fail")
	}
}

func TestPatternBounds(t *testing.T) {
	if _, err := Pattern.Read(nil, []any{"AAAA"}); err == nil {
		t.Fatal("expected wide row to fail")
	}
	if _, err := Pattern.Read(nil, []any{"A", "A", "A", "A"}); err == nil {
		t.Fatal("expected tall pattern to fail")
	}
	v, err := Pattern.Read(nil, []any{"A A", " B "})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !slices.Equal(v.([]string), []string{"A A", " B "}) {
		t.Fatalf("unexpected pattern %v", v)
	}
}

func TestPatternKeyRejectsLongKeys(t *testing.T) {
	if _, err := PatternKey.Read(nil, map[string]any{"AB": "minecraft:stone"}); err == nil {
		t.Fatal("expected multi-character key to fail")
	}
}

func TestNumberComponents(t *testing.T) {
	if v, err := Int.Read(nil, "12"); err != nil || v != 12 {
		t.Fatalf("expected 12, got %v (%v)", v, err)
	}
	if _, err := Int.Read(nil, 1.25); err == nil {
		t.Fatal("expected fractional int to fail")
	}
	if v, err := Float.Read(nil, 3); err != nil || v != 3.0 {
		t.Fatalf("expected 3.0, got %v (%v)", v, err)
	}
	if v, err := Bool.Read(nil, "true"); err != nil || v != true {
		t.Fatalf("expected true, got %v (%v)", v, err)
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("time:int,default=200")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if k.Name() != "time" || k.Component() != Int {
		t.Fatalf("unexpected key %s", k)
	}
	if def, ok := k.Default(); !ok || def != 200 {
		t.Fatalf("expected default 200, got %v", def)
	}

	k, err = ParseKey("extra:string,opt,noauto,always")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !k.IsOptional() || k.IncludeInAutoConstructors() || !k.AlwaysWrite() {
		t.Fatalf("unexpected modifiers on %s", k)
	}
	if k.Optional().Kind != OptionalNoDefault {
		t.Fatalf("expected optional without default, got %s", k.Optional().Kind)
	}

	for _, bad := range []string{"nocomponent", "x:unknown", "x:int,weird", "x:int,default=abc"} {
		if _, err := ParseKey(bad); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}

func TestKeyModifiersCopy(t *testing.T) {
	base := NewKey("a", String)
	opt := base.Opt()
	if base.IsOptional() {
		t.Fatal("expected modifier to leave the original key untouched")
	}
	if !opt.IsOptional() {
		t.Fatal("expected copy to be optional")
	}
	if def, ok := opt.Default(); ok || def != nil {
		t.Fatal("expected no default")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(Diagnostics{})
	s := MustSchema(NewKey("a", String))
	typ, err := reg.Register("grinding", s)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if typ.ID() != "minecraft:grinding" {
		t.Fatalf("expected implicit namespace, got %s", typ.ID())
	}
	if _, err := reg.Register("minecraft:grinding", s); !errors.Is(err, ErrDuplicateType) {
		t.Fatalf("expected ErrDuplicateType, got %v", err)
	}
	if got, ok := reg.Type("grinding"); !ok || got != typ {
		t.Fatal("expected lookup by bare path")
	}
	if err := reg.Shortcut("grind", "minecraft:grinding"); err != nil {
		t.Fatalf("shortcut: %v", err)
	}
	if got, ok := reg.Type("grind"); !ok || got != typ {
		t.Fatal("expected lookup by shortcut")
	}
	if err := reg.Shortcut("x", "minecraft:missing"); err == nil {
		t.Fatal("expected shortcut to unknown type to fail")
	}
	if len(reg.Types()) != 1 {
		t.Fatalf("expected 1 type, got %d", len(reg.Types()))
	}

	if got, ok := reg.TypeByID("minecraft:grinding"); !ok || got != typ {
		t.Fatal("expected lookup by full id")
	}
	for _, id := range []string{"grind", "grinding"} {
		if _, ok := reg.TypeByID(id); ok {
			t.Fatalf("expected %q not to resolve without a namespace", id)
		}
	}

	if !reg.Unregister("minecraft:grinding") {
		t.Fatal("expected unregister to find the type")
	}
	if _, ok := reg.Type("grind"); ok {
		t.Fatal("expected shortcut removed with its type")
	}
	if len(reg.Types()) != 0 || len(reg.Shortcuts()) != 0 {
		t.Fatalf("expected empty registry, got %v %v", reg.Types(), reg.Shortcuts())
	}
	if reg.Unregister("minecraft:grinding") {
		t.Fatal("expected second unregister to report false")
	}
	if _, err := reg.Register("minecraft:grinding", s); err != nil {
		t.Fatalf("expected id to be free again, got %v", err)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry(Diagnostics{})
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	shaped, ok := reg.Type("shaped")
	if !ok || shaped.ID() != "minecraft:crafting_shaped" {
		t.Fatalf("expected shaped shortcut, got %v", shaped)
	}
	smelting, _ := reg.Type("minecraft:smelting")
	if got := smelting.Schema().Arities(); !slices.Equal(got, []int{2, 3, 4}) {
		t.Fatalf("expected smelting arities [2 3 4], got %v", got)
	}
	if err := RegisterBuiltins(reg); !errors.Is(err, ErrDuplicateType) {
		t.Fatal("expected non-item entry to fail")
	}
}

func TestIngredientRejectsAlternatives(t *testing.T) {
	s := MustSchema(ResultKey, IngredientKey)
	_, err := s.Create(nil, "minecraft:glass", []any{"minecraft:sand", "minecraft:red_sand"})
	if err == nil {
		t.Fatal("expected ingredient alternatives to fail")
	}

	r, err := s.Create(nil, "minecraft:glass", []any{"minecraft:sand"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := r.Get(IngredientKey); got != (InputItem{Item: "minecraft:sand", Count: 1}) {
		t.Fatalf("expected minecraft:sand, got %v", got)
	}

	if _, err := Ingredient.Read(nil, []any{}); err == nil {
		t.Fatal("expected empty ingredient list to fail")
	}
}

func TestDragonflyUnknownItem(t *testing.T) {
	reg := NewRegistry(Diagnostics{})
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	shapeless, _ := reg.Type("shapeless")
	r, err := shapeless.Create("notamod:thing", []any{"notamod:other"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Dragonfly(); err == nil {
		t.Fatal("expected unknown item to fail conversion")
	}

	custom := MustSchema(NewKey("a", String))
	r, err = custom.Create(nil, "x")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Dragonfly(); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("expected ErrNotConvertible, got %v", err)
	}
}
