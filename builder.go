package kubescript

import (
	"log/slog"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/oriumgames/kubescript/recipe"
	"github.com/oriumgames/kubescript/script"
	"github.com/oriumgames/kubescript/tag"
)

// Builder configures kubescript before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	cfg      Config
	log      *slog.Logger
	schemas  []schemaRegistration
	scripts  []scriptFile
	docs     []document
	tags     map[string]*tag.Registry
	commands bool
}

type schemaRegistration struct {
	id        string
	schema    *recipe.Schema
	shortcuts []string
}

// NewBuilder creates a new kubescript builder.
func NewBuilder() *Builder {
	return &Builder{tags: make(map[string]*tag.Registry)}
}

// Config sets the configuration. See LoadConfig.
func (b *Builder) Config(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// Logger sets the logger used by the manager, the script consoles and the
// recipe engine. It defaults to slog.Default().
func (b *Builder) Logger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Schema registers a custom recipe type under id, reachable from scripts
// under each shortcut name.
//
// Example:
//
//	grinding := recipe.MustSchema(recipe.ResultKey, recipe.IngredientKey).
//	    UniqueOutputID(recipe.ResultKey)
//	builder.Schema("mymod:grinding", grinding, "grinding")
func (b *Builder) Schema(id string, s *recipe.Schema, shortcuts ...string) *Builder {
	b.schemas = append(b.schemas, schemaRegistration{id: id, schema: s, shortcuts: shortcuts})
	return b
}

// Script adds a script held in memory. Scripts run in the order they are
// added, after those of earlier types and before those read from ScriptDir.
func (b *Builder) Script(typ script.Type, name, src string) *Builder {
	b.scripts = append(b.scripts, scriptFile{typ: typ, name: name, src: src})
	return b
}

// ScriptDir overrides Config.ScriptDir.
func (b *Builder) ScriptDir(dir string) *Builder {
	b.cfg.ScriptDir = dir
	return b
}

// Document adds a recipe document held in memory under id.
func (b *Builder) Document(id string, json []byte) *Builder {
	b.docs = append(b.docs, document{id: id, data: json})
	return b
}

// DataDir overrides Config.DataDir.
func (b *Builder) DataDir(dir string) *Builder {
	b.cfg.DataDir = dir
	return b
}

// Tags sets the tags of an object kind before scripts edit them. Item tags
// default to an empty registry that knows every registered dragonfly item.
func (b *Builder) Tags(kind string, base *tag.Registry) *Builder {
	b.tags[kind] = base
	return b
}

// Commands registers the /kubescript command with dragonfly during Init.
func (b *Builder) Commands() *Builder {
	b.commands = true
	return b
}

// Init initializes kubescript with the configured settings and runs the
// first reload. Script, document and recipe errors are logged and kept in
// the script consoles; configuration errors panic.
func (b *Builder) Init() *Manager {
	log := b.log
	if log == nil {
		log = slog.Default()
	}

	types := recipe.NewRegistry(recipe.Diagnostics{DebugInfo: b.cfg.DebugInfo, Logger: log})
	if err := recipe.RegisterBuiltins(types); err != nil {
		panic("kubescript: failed to register builtin recipe types: " + err.Error())
	}
	for _, reg := range b.schemas {
		if reg.schema == nil {
			panic("kubescript: nil schema for recipe type " + reg.id)
		}
		t, err := types.Register(reg.id, reg.schema)
		if err != nil {
			panic("kubescript: failed to register recipe type: " + err.Error())
		}
		for _, name := range reg.shortcuts {
			if err := types.Shortcut(name, t.ID()); err != nil {
				panic("kubescript: failed to register recipe type: " + err.Error())
			}
		}
	}

	for _, s := range b.scripts {
		if s.name == "" {
			panic("kubescript: script without a name")
		}
	}

	m := newManager(b.cfg, log, types)
	m.scripts = b.scripts
	m.docs = b.docs
	for kind, reg := range b.tags {
		if reg == nil {
			panic("kubescript: nil tag registry for " + kind)
		}
		m.baseTags[kind] = reg
	}
	if _, ok := m.baseTags["item"]; !ok {
		m.baseTags["item"] = tag.NewRegistry(itemNames()...)
	}

	if err := m.Reload(); err != nil {
		log.Warn("kubescript: initial load finished with errors", "err", err)
	}

	if b.commands {
		cmd.Register(m.Command())
	}
	return m
}

// itemNames returns the ids of every registered dragonfly item.
func itemNames() []string {
	items := world.Items()
	names := make([]string, 0, len(items))
	for _, it := range items {
		name, _ := it.EncodeItem()
		names = append(names, name)
	}
	return names
}
