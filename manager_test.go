package kubescript

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Shopify/go-lua"
	"github.com/oriumgames/kubescript/recipe"
	"github.com/oriumgames/kubescript/script"
	"github.com/oriumgames/kubescript/tag"
	"github.com/tidwall/gjson"
)

func testBuilder() *Builder {
	items := tag.NewRegistry("oak_log", "birch_log", "stick", "sand", "stone")
	items.Set("logs", "oak_log", "birch_log")
	items.Set("sand", "sand")
	return NewBuilder().
		Logger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Tags("item", items)
}

func recipeIDs(m *Manager) []string {
	var ids []string
	for _, r := range m.Recipes() {
		ids = append(ids, r.ID)
	}
	return ids
}

const recipesScript = `
onEvent("recipes", function(e)
  e.remove({output = "minecraft:stick"})
  e.smelting("minecraft:charcoal", "#logs", 0.15)
  e.smelting("minecraft:charcoal", "minecraft:oak_log")
  e:shapeless("minecraft:oak_planks", {"minecraft:oak_log"}):id("planks_from_log")
  e.recipe("minecraft:stonecutting", "minecraft:stone_slab", "minecraft:stone")
  e.custom('{"type":"minecraft:smoking","ingredient":"minecraft:beef","result":"minecraft:cooked_beef"}')
  smeltingCount = e.count({type = "smelting"})
end)
`

func TestReloadBuildsRecipes(t *testing.T) {
	m := testBuilder().
		Document("minecraft:glass", []byte(`{"type":"minecraft:smelting","ingredient":{"tag":"minecraft:sand"},"result":{"id":"minecraft:glass"}}`)).
		Document("minecraft:stick", []byte(`{"type":"minecraft:crafting_shaped","pattern":["#","#"],"key":{"#":{"tag":"minecraft:planks"}},"result":{"id":"minecraft:stick","count":4}}`)).
		Script(script.Server, "recipes.lua", recipesScript).
		Init()

	if errs := m.Errors(script.Server); len(errs) != 0 {
		t.Fatalf("unexpected script errors %v", errs)
	}
	want := []string{
		"minecraft:glass",
		"kubejs:smelting/charcoal",
		"kubejs:smelting/charcoal_2",
		"kubejs:planks_from_log",
		"kubejs:stonecutting/stone_slab",
		"kubejs:smoking/cooked_beef",
	}
	if got := recipeIDs(m); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	charcoal, ok := m.Recipe("kubejs:smelting/charcoal")
	if !ok {
		t.Fatal("expected charcoal recipe")
	}
	if !charcoal.New {
		t.Fatal("expected script recipe to be new")
	}
	out, err := charcoal.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if got := gjson.GetBytes(out, "experience").Float(); got != 0.15 {
		t.Fatalf("expected experience 0.15, got %v", got)
	}
	if got := gjson.GetBytes(out, "cookingtime").Int(); got != 200 {
		t.Fatalf("expected default cookingtime, got %d", got)
	}

	var count any
	m.Runtime().SetGlobal("report", lua.Function(func(l *lua.State) int {
		count, _ = script.ToGo(l, 1)
		return 0
	}))
	if err := m.Runtime().Load(script.Server, "probe.lua", `report(smeltingCount)`); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 smelting recipes counted, got %v", count)
	}
}

func TestReloadTags(t *testing.T) {
	m := testBuilder().
		Script(script.Startup, "tags.lua", `onEvent("tags.item", function(e) e.add("kubejs:fuel", "stick", "#logs") end)`).
		Script(script.Server, "tags.lua", `onEvent("tags.item", function(e) e.get("kubejs:fuel").remove("birch_log") end)`).
		Init()

	fuel := m.Tags("item").Get("kubejs:fuel")
	if !slices.Equal(fuel, []string{"minecraft:stick", "minecraft:oak_log"}) {
		t.Fatalf("unexpected fuel tag %v", fuel)
	}
	if len(m.Runtime().Console(script.Startup).Warnings()) != 0 {
		t.Fatal("expected no warnings")
	}

	if err := m.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := m.Tags("item").Get("kubejs:fuel"); !slices.Equal(got, fuel) {
		t.Fatalf("expected reload to rebuild the same tag, got %v", got)
	}
}

func TestStartupTagReadWarns(t *testing.T) {
	m := testBuilder().
		Script(script.Startup, "peek.lua", `onEvent("tags.item", function(e) local ids = e.get("logs").objectIds() end)`).
		Init()
	warnings := m.Runtime().Console(script.Startup).Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "tags.item") {
		t.Fatalf("expected one tag warning, got %v", warnings)
	}
}

func TestReloadCollectsDocumentErrors(t *testing.T) {
	b := testBuilder().
		Document("minecraft:glass", []byte(`{"type":"minecraft:smelting","ingredient":"minecraft:sand","result":"minecraft:glass"}`)).
		Document("mod:unknown", []byte(`{"type":"mod:nope"}`)).
		Document("mod:missing", []byte(`{"type":"minecraft:smelting","ingredient":"minecraft:sand"}`)).
		Document("mod:broken", []byte(`{"type":`)).
		Document("mod:shortcut", []byte(`{"type":"smelting","ingredient":"minecraft:sand","result":"minecraft:glass"}`))
	m := b.Init()

	if got := recipeIDs(m); !slices.Equal(got, []string{"minecraft:glass"}) {
		t.Fatalf("expected only the valid recipe, got %v", got)
	}
	errs := m.Errors(script.Server)
	if len(errs) != 4 {
		t.Fatalf("expected 4 document errors, got %v", errs)
	}
	if errs[3].Script != "data/mod:shortcut" {
		t.Fatalf("expected shortcut type to be rejected in documents, got %v", errs[3])
	}

	err := m.Reload()
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if !errors.Is(err, recipe.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestRecipeScriptErrorsDoNotStopOtherListeners(t *testing.T) {
	m := testBuilder().
		Script(script.Server, "bad.lua", `onEvent("recipes", function(e) e.recipe("mod:nope", "x") end)`).
		Script(script.Server, "arity.lua", `onEvent("recipes", function(e) e.smelting("minecraft:glass") end)`).
		Script(script.Server, "good.lua", `onEvent("recipes", function(e) e.stonecutting("minecraft:stone_slab", "minecraft:stone") end)`).
		Init()

	if got := recipeIDs(m); !slices.Equal(got, []string{"kubejs:stonecutting/stone_slab"}) {
		t.Fatalf("unexpected recipes %v", got)
	}
	errs := m.Errors(script.Server)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Script != "bad.lua" || !strings.Contains(errs[0].Message, "unknown recipe type") {
		t.Fatalf("unexpected first error %v", errs[0])
	}
	if errs[1].Script != "arity.lua" || !strings.Contains(errs[1].Message, "1 arguments") {
		t.Fatalf("unexpected second error %v", errs[1])
	}
}

func TestRemoveFilters(t *testing.T) {
	src := `
onEvent("recipes", function(e)
  e.smelting("minecraft:charcoal", "#logs")
  e.smelting("minecraft:glass", "minecraft:sand")
  e.stonecutting("minecraft:stone_slab", "minecraft:stone")
  removedByInput = e.remove({input = "minecraft:birch_log"})
  e.remove({type = "stonecutting"})
  e.remove("minecraft:stick")
end)
`
	m := testBuilder().
		Document("minecraft:stick", []byte(`{"type":"minecraft:crafting_shapeless","ingredients":["minecraft:oak_planks"],"result":"minecraft:stick"}`)).
		Script(script.Server, "r.lua", src).
		Init()
	if got := recipeIDs(m); !slices.Equal(got, []string{"kubejs:smelting/glass"}) {
		t.Fatalf("unexpected recipes %v", got)
	}
}

func TestEmptyTablesAreLists(t *testing.T) {
	src := `
onEvent("recipes", function(e)
  e.stonecutting("minecraft:stone_slab", "minecraft:stone")
  e.shapeless("minecraft:stick", {})
  total = e.count({})
end)
`
	m := testBuilder().Script(script.Server, "r.lua", src).Init()
	if errs := m.Errors(script.Server); len(errs) != 0 {
		t.Fatalf("unexpected script errors %v", errs)
	}
	r, ok := m.Recipe("kubejs:crafting_shapeless/stick")
	if !ok {
		t.Fatalf("expected shapeless recipe, got %v", recipeIDs(m))
	}
	if got, ok := r.Get(recipe.IngredientsKey).([]recipe.InputItem); !ok || len(got) != 0 {
		t.Fatalf("expected empty ingredient list, got %#v", r.Get(recipe.IngredientsKey))
	}

	var total any
	m.Runtime().SetGlobal("report", lua.Function(func(l *lua.State) int {
		total, _ = script.ToGo(l, 1)
		return 0
	}))
	if err := m.Runtime().Load(script.Server, "total.lua", `report(total)`); err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected empty filter to count 2 recipes, got %v", total)
	}
}

func TestBadRemoveFilter(t *testing.T) {
	m := testBuilder().
		Script(script.Server, "r.lua", `onEvent("recipes", function(e) e.remove({colour = "red"}) end)`).
		Init()
	errs := m.Errors(script.Server)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "invalid recipe filter") {
		t.Fatalf("expected filter error, got %v", errs)
	}
}

func TestCustomSchemaHashID(t *testing.T) {
	grinding := recipe.MustSchema(recipe.ResultKey, recipe.IngredientKey)
	src := `
onEvent("recipes", function(e)
  e.grinding("minecraft:gravel", "minecraft:cobblestone")
  e.grinding("minecraft:gravel", "minecraft:cobblestone")
  e.grinding("minecraft:sand", "minecraft:gravel")
end)
`
	m := testBuilder().
		Schema("mymod:grinding", grinding, "grinding").
		Script(script.Server, "g.lua", src).
		Init()

	ids := recipeIDs(m)
	if len(ids) != 2 {
		t.Fatalf("expected identical recipes to share an id, got %v", ids)
	}
	for _, id := range ids {
		if !strings.HasPrefix(id, "kubejs:mymod/grinding/kjs_") {
			t.Fatalf("unexpected generated id %q", id)
		}
	}
	if ids[0] == ids[1] {
		t.Fatal("expected different recipes to get different ids")
	}

	n, err := m.RegisterRecipes()
	if err != nil || n != 0 {
		t.Fatalf("expected custom recipes to be skipped, got %d %v", n, err)
	}
}

const grindingScript = `
onEvent("recipes.schemas", function(e)
  e.register("mymod:grinding", {"result:result", "ingredient:ingredient", "time:int,default=100"}, "grinding"):uniqueOutput("result")
  componentCount = #e.components()
end)
`

func TestStartupScriptDefinesRecipeType(t *testing.T) {
	m := testBuilder().
		Script(script.Startup, "types.lua", grindingScript).
		Script(script.Server, "recipes.lua", `onEvent("recipes", function(e)
  e.grinding("2x minecraft:gravel", "minecraft:cobblestone")
  e.recipe("mymod:grinding", "minecraft:sand", "minecraft:sandstone", 40)
end)`).
		Init()

	if errs := m.Errors(script.Startup); len(errs) != 0 {
		t.Fatalf("unexpected startup errors %v", errs)
	}
	if errs := m.Errors(script.Server); len(errs) != 0 {
		t.Fatalf("unexpected server errors %v", errs)
	}
	want := []string{"kubejs:mymod/grinding/gravel", "kubejs:mymod/grinding/sand"}
	if got := recipeIDs(m); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	r, _ := m.Recipe("kubejs:mymod/grinding/sand")
	if got := r.Value("time"); got != 40 {
		t.Fatalf("expected time 40, got %v", got)
	}

	var count any
	m.Runtime().SetGlobal("report", lua.Function(func(l *lua.State) int {
		count, _ = script.ToGo(l, 1)
		return 0
	}))
	if err := m.Runtime().Load(script.Startup, "count.lua", `report(componentCount)`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(recipe.ComponentNames()) {
		t.Fatalf("expected %d components, got %v", len(recipe.ComponentNames()), count)
	}

	types := len(m.Types().Types())
	if err := m.Reload(); err != nil {
		t.Fatalf("expected reload to register the type again, got %v", err)
	}
	if got := len(m.Types().Types()); got != types {
		t.Fatalf("expected %d types after reload, got %d", types, got)
	}
	if len(m.Recipes()) != 2 {
		t.Fatalf("expected recipes after reload, got %v", recipeIDs(m))
	}
}

func TestStartupTypeErrors(t *testing.T) {
	m := testBuilder().
		Script(script.Startup, "bad.lua", `onEvent("recipes.schemas", function(e)
  e.register("mymod:broken", {"result:nothing"})
end)`).
		Script(script.Startup, "clash.lua", `onEvent("recipes.schemas", function(e)
  e.register("minecraft:smelting", {"result:result"})
end)`).
		Init()

	errs := m.Errors(script.Startup)
	if len(errs) != 2 {
		t.Fatalf("expected 2 startup errors, got %v", errs)
	}
	if !strings.Contains(errs[0].Message, "unknown component") {
		t.Fatalf("expected unknown component error, got %v", errs[0])
	}
	if !strings.Contains(errs[1].Message, "already registered") {
		t.Fatalf("expected duplicate type error, got %v", errs[1])
	}
	if _, ok := m.Types().Type("mymod:broken"); ok {
		t.Fatal("expected broken type not to be registered")
	}
}

func TestInitPanicsOnDuplicateType(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil || !strings.Contains(r.(string), "kubescript:") {
			t.Fatalf("expected kubescript panic, got %v", r)
		}
	}()
	testBuilder().Schema("minecraft:smelting", recipe.MustSchema(recipe.ResultKey)).Init()
}

func TestReloadReadsDirectories(t *testing.T) {
	root := t.TempDir()
	scripts := filepath.Join(root, "scripts")
	data := filepath.Join(root, "data")
	writeFile(t, filepath.Join(scripts, "server", "main.lua"), `onEvent("recipes", function(e) e.stonecutting("minecraft:stone_slab", "minecraft:stone") end)`)
	writeFile(t, filepath.Join(scripts, "startup", "main.lua"), `console.log("startup")`)
	writeFile(t, filepath.Join(data, "mymod", "recipes", "tools", "slab.json"), `{
	// stone slabs from cobblestone
	"type": "minecraft:stonecutting",
	"ingredient": "minecraft:cobblestone",
	"result": "minecraft:stone_slab"
}`)

	m := testBuilder().ScriptDir(scripts).DataDir(data).Init()
	want := []string{"mymod:tools/slab", "kubejs:stonecutting/stone_slab"}
	if got := recipeIDs(m); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	entries := m.Runtime().Console(script.Startup).Entries()
	if len(entries) != 1 || entries[0].Script != "startup/main.lua" {
		t.Fatalf("unexpected startup output %v", entries)
	}

	writeFile(t, filepath.Join(scripts, "server", "main.lua"), `onEvent("recipes", function(e) e.remove({}) end)`)
	if err := m.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := recipeIDs(m); len(got) != 0 {
		t.Fatalf("expected every recipe removed after reload, got %v", got)
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestErrorReport(t *testing.T) {
	m := testBuilder().
		Script(script.Startup, "s.lua", `error("startup broke")`).
		Script(script.Server, "v.lua", `error("server broke")`).
		Init()

	all, err := m.errorReport("")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 lines, got %v (%v)", all, err)
	}
	server, err := m.errorReport("server")
	if err != nil || len(server) != 1 || !strings.Contains(server[0], "server broke") {
		t.Fatalf("expected the server error only, got %v (%v)", server, err)
	}
	if _, err := m.errorReport("client"); err == nil {
		t.Fatal("expected unknown script type to fail")
	}
}
