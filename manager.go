package kubescript

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	dfrecipe "github.com/df-mc/dragonfly/server/item/recipe"
	"github.com/oriumgames/kubescript/recipe"
	"github.com/oriumgames/kubescript/script"
	"github.com/oriumgames/kubescript/tag"
	"github.com/tidwall/gjson"
)

// ErrUnknownType is returned for recipe documents of unregistered types.
var ErrUnknownType = errors.New("unknown recipe type")

// Manager is the central kubescript coordinator. It owns the script runtime,
// the recipe type registry, and the recipes and tags produced by the last
// reload.
//
// Multiple Manager instances can coexist in the same process.
type Manager struct {
	cfg   Config
	log   *slog.Logger
	types *recipe.Registry
	rt    *script.Runtime

	// scripts and docs were registered on the Builder; files on disk are
	// read again on every reload
	scripts  []scriptFile
	docs     []document
	baseTags map[string]*tag.Registry

	// reloading serializes Reload and RegisterRecipes
	reloading sync.Mutex

	// scriptTypes are the recipe types startup scripts registered during
	// the last reload
	scriptTypes []string

	mu         sync.RWMutex
	recipes    []*recipe.Recipe
	byID       map[string]*recipe.Recipe
	tags       map[string]*tag.Registry
	registered map[string]struct{}
}

// newManager creates a manager. Init on the Builder is the only caller.
func newManager(cfg Config, log *slog.Logger, types *recipe.Registry) *Manager {
	return &Manager{
		cfg:        cfg,
		log:        log,
		types:      types,
		rt:         script.NewRuntime(log),
		baseTags:   make(map[string]*tag.Registry),
		byID:       make(map[string]*recipe.Recipe),
		tags:       make(map[string]*tag.Registry),
		registered: make(map[string]struct{}),
	}
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// Types returns the recipe type registry.
func (m *Manager) Types() *recipe.Registry {
	return m.types
}

// Runtime returns the script runtime.
func (m *Manager) Runtime() *script.Runtime {
	return m.rt
}

// Recipes returns every loaded recipe ordered by load order.
func (m *Manager) Recipes() []*recipe.Recipe {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.recipes)
}

// Recipe looks up a loaded recipe by id.
func (m *Manager) Recipe(id string) (*recipe.Recipe, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	return r, ok
}

// Tags returns the tag registry of an object kind such as "item" or "block",
// or nil if the kind is unknown.
func (m *Manager) Tags(kind string) *tag.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tags[kind]
}

// Errors returns the errors of scripts of type t recorded during the last
// reload and since.
func (m *Manager) Errors(t script.Type) []script.Entry {
	return m.rt.Console(t).Errors()
}

// Reload discards every script, recipe and tag edit and loads them again:
//
//  1. scripts are run, startup scripts first, and startup scripts define
//     recipe types;
//  2. for every tag kind, deferred edits from startup scripts are replayed
//     and server scripts edit the tags live;
//  3. recipe documents are deserialized;
//  4. server scripts add and remove recipes;
//  5. recipes without an id receive one and every recipe is validated.
//
// Failing scripts, documents and recipes are skipped; their errors are
// joined into the returned error and recorded in the script consoles.
func (m *Manager) Reload() error {
	m.reloading.Lock()
	defer m.reloading.Unlock()

	start := time.Now()
	var errs []error

	scripts := slices.Clone(m.scripts)
	disk, err := readScripts(m.cfg.ScriptDir)
	if err != nil {
		errs = append(errs, err)
	}
	scripts = append(scripts, disk...)

	docs := slices.Clone(m.docs)
	diskDocs, err := readDocuments(m.cfg.DataDir)
	if err != nil {
		errs = append(errs, err)
	}
	docs = append(docs, diskDocs...)

	for _, id := range m.scriptTypes {
		m.types.Unregister(id)
	}
	m.rt.Reset()
	for _, t := range script.Types() {
		for _, s := range scripts {
			if s.typ != t {
				continue
			}
			if err := m.rt.Load(s.typ, s.name, s.src); err != nil {
				errs = append(errs, err)
			}
		}
	}

	schemas := &schemasEvent{m: m}
	if _, err := m.rt.PostFor(script.Startup, EventNameSchemas, schemas); err != nil {
		errs = append(errs, err)
	}
	m.scriptTypes = schemas.ids

	tags := m.loadTags(&errs)
	items := tags["item"]

	ev := newRecipesEvent(m, items)
	for _, d := range docs {
		r, err := m.deserialize(d, items)
		if err != nil {
			err = fmt.Errorf("recipe %s: %w", d.id, err)
			m.rt.Console(script.Server).Error("data/"+d.id, err)
			errs = append(errs, err)
			continue
		}
		ev.all = append(ev.all, r)
	}
	if _, err := m.rt.PostFor(script.Server, EventNameRecipes, ev); err != nil {
		errs = append(errs, err)
	}
	recipes, recipeErrs := ev.finish()
	for _, err := range recipeErrs {
		m.rt.Console(script.Server).Error("", err)
	}
	errs = append(errs, recipeErrs...)

	byID := make(map[string]*recipe.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	m.mu.Lock()
	m.recipes = recipes
	m.byID = byID
	m.tags = tags
	m.mu.Unlock()

	if _, err := m.rt.PostFor(script.Server, EventNameLoaded, loadedEvent{recipes: len(recipes), removed: ev.removedCount()}); err != nil {
		errs = append(errs, err)
	}

	m.log.Info("kubescript: reloaded",
		"scripts", len(scripts),
		"recipes", len(recipes),
		"added", len(ev.added),
		"removed", ev.removedCount(),
		"errors", len(errs),
		"took", time.Since(start),
	)
	return errors.Join(errs...)
}

// deserialize reads a recipe document, choosing the schema by its type field.
func (m *Manager) deserialize(d document, items *tag.Registry) (*recipe.Recipe, error) {
	if !gjson.ValidBytes(d.data) {
		return nil, recipe.ErrInvalidDocument
	}
	typeID := gjson.GetBytes(d.data, "type").String()
	typ, ok := m.types.TypeByID(typeID)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, typeID)
	}
	r, err := typ.Deserialize(d.id, d.data)
	if err != nil {
		return nil, err
	}
	if items != nil {
		r.Tags = items
	}
	return r, nil
}

// loadTags builds the tag registries of every kind from the base tags.
func (m *Manager) loadTags(errs *[]error) map[string]*tag.Registry {
	out := make(map[string]*tag.Registry, len(m.baseTags))
	for _, kind := range slices.Sorted(maps.Keys(m.baseTags)) {
		name := tagEventName(kind)

		pre := tag.NewPreEvent(kind)
		if _, err := m.rt.PostFor(script.Startup, name, &tagsEvent{kind: kind, ed: pre}); err != nil {
			*errs = append(*errs, err)
		}

		reg := m.baseTags[kind].Clone()
		live := tag.NewEvent(kind, reg)
		if err := pre.Apply(live); err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			m.rt.Console(script.Startup).Error("", err)
			*errs = append(*errs, err)
		}
		if pre.Invalid() {
			m.rt.Console(script.Startup).Warn("", name+": startup scripts cannot read tag members, members are only known to server scripts")
		}

		if _, err := m.rt.PostFor(script.Server, name, &tagsEvent{kind: kind, ed: live}); err != nil {
			*errs = append(*errs, err)
		}
		out[kind] = reg
	}
	return out
}

// RegisterRecipes registers every loaded recipe that has not been
// registered before with dragonfly. Dragonfly recipes cannot be removed, so
// recipes removed by a later reload stay craftable until restart.
//
// Recipes of types without a dragonfly equivalent are skipped silently.
// It returns the number of recipes registered.
func (m *Manager) RegisterRecipes() (int, error) {
	m.reloading.Lock()
	defer m.reloading.Unlock()

	var errs []error
	n := 0
	for _, r := range m.Recipes() {
		if _, ok := m.registered[r.ID]; ok {
			continue
		}
		df, err := r.Dragonfly()
		if errors.Is(err, recipe.ErrNotConvertible) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("recipe %s: %w", r.ID, err))
			continue
		}
		dfrecipe.Register(df)
		m.registered[r.ID] = struct{}{}
		n++
	}
	if len(errs) > 0 {
		m.log.Warn("kubescript: some recipes could not be registered", "failed", len(errs))
	}
	return n, errors.Join(errs...)
}

// post posts an event to every listener and applies a cancellation.
func (m *Manager) post(name string, ev script.Event) {
	if !m.rt.HasListeners(name) {
		return
	}
	cancelled, err := m.rt.Post(name, ev)
	if err != nil {
		m.log.Debug("kubescript: event listener failed", "event", name, "err", err)
	}
	if c, ok := ev.(Cancellable); ok && cancelled {
		c.Cancel()
	}
}

// loadedEvent is posted once recipes are final.
type loadedEvent struct {
	recipes int
	removed int
}

func (e loadedEvent) Fields() map[string]any {
	return map[string]any{"recipes": e.recipes, "removed": e.removed}
}
