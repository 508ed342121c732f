package recipe

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Configuration errors. They are returned when a schema is defined and are
// meant to abort registration.
var (
	ErrKeyOrder             = errors.New("required key after optional key")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrAlwaysWriteDefault   = errors.New("alwaysWrite combined with default optional")
	ErrDuplicateConstructor = errors.New("duplicate constructor arity")
	ErrSchemaSealed         = errors.New("constructors already resolved")
)

// ErrNoConstructor is returned when a call supplies an argument count no
// constructor accepts.
var ErrNoConstructor = errors.New("no matching constructor")

// Factory creates an empty recipe object for a schema.
type Factory func() *Recipe

// Diagnostics controls developer-facing output of the engine.
// It is read-only once schemas are in use.
type Diagnostics struct {
	// DebugInfo enables constructor logging and document snapshots.
	DebugInfo bool
	// Logger receives diagnostic output. Nil means slog.Default().
	Logger *slog.Logger
}

func (d Diagnostics) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Schema is the fixed, ordered set of keys a recipe type accepts.
//
// A schema is built once during registration. After its constructor table
// has been resolved it is immutable and may be read from any goroutine.
type Schema struct {
	id      uuid.UUID
	factory Factory
	keys    []*Key

	minRequired int
	inputCount  int
	outputCount int

	uniqueID UniqueIDFunc
	convert  ConvertFunc
	diag     Diagnostics
	diagSet  bool

	// mu guards manual and sealed until the table is resolved
	mu     sync.Mutex
	manual map[int]*Constructor
	sealed bool

	once         sync.Once
	constructors map[int]*Constructor
}

// NewSchema defines a schema whose recipes are plain *Recipe values.
// Keys are listed in constructor order; optional keys must follow all
// required keys.
func NewSchema(keys ...*Key) (*Schema, error) {
	return NewSchemaWithFactory(nil, keys...)
}

// NewSchemaWithFactory defines a schema that creates recipes with factory.
// A nil factory creates empty recipes.
func NewSchemaWithFactory(factory Factory, keys ...*Key) (*Schema, error) {
	if factory == nil {
		factory = func() *Recipe { return &Recipe{} }
	}
	s := &Schema{
		id:      uuid.New(),
		factory: factory,
		keys:    slices.Clone(keys),
	}

	seen := make(map[string]struct{}, len(keys))
	firstOptional := -1
	for i, k := range keys {
		if k.IsOptional() {
			if firstOptional < 0 {
				firstOptional = i
			}
		} else if firstOptional >= 0 {
			return nil, fmt.Errorf("key %q: %w", k.name, ErrKeyOrder)
		}

		if _, ok := seen[k.name]; ok {
			return nil, fmt.Errorf("key %q: %w", k.name, ErrDuplicateKey)
		}
		seen[k.name] = struct{}{}

		switch {
		case k.Role().IsInput():
			s.inputCount++
		case k.Role().IsOutput():
			s.outputCount++
		}

		if k.alwaysWrite && k.optional.Kind == OptionalWithDefault {
			return nil, fmt.Errorf("key %q: %w", k.name, ErrAlwaysWriteDefault)
		}
	}

	if firstOptional < 0 {
		s.minRequired = len(keys)
	} else {
		s.minRequired = firstOptional
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on configuration errors.
func MustSchema(keys ...*Key) *Schema {
	s, err := NewSchema(keys...)
	if err != nil {
		panic("kubescript: invalid recipe schema: " + err.Error())
	}
	return s
}

// UUID returns the identity of the schema.
func (s *Schema) UUID() uuid.UUID { return s.id }

// Keys returns the keys of the schema in order.
func (s *Schema) Keys() []*Key { return slices.Clone(s.keys) }

// Key looks up a key by name.
func (s *Schema) Key(name string) (*Key, bool) {
	for _, k := range s.keys {
		if k.name == name {
			return k, true
		}
	}
	return nil, false
}

// MinRequiredArguments returns the index of the first optional key, or the
// number of keys when none is optional.
func (s *Schema) MinRequiredArguments() int { return s.minRequired }

// InputCount returns the number of input keys.
func (s *Schema) InputCount() int { return s.inputCount }

// OutputCount returns the number of output keys.
func (s *Schema) OutputCount() int { return s.outputCount }

// WithDiagnostics sets the diagnostics used by the schema. Schemas registered
// with a Registry inherit the registry's diagnostics unless set explicitly.
func (s *Schema) WithDiagnostics(d Diagnostics) *Schema {
	s.diag = d
	s.diagSet = true
	return s
}

// AddConstructor registers a constructor taking keys in order. Registering
// any constructor disables automatic derivation for the schema.
func (s *Schema) AddConstructor(factory ConstructorFactory, keys ...*Key) error {
	if factory == nil {
		factory = DefaultFactory
	}
	c := &Constructor{schema: s, keys: slices.Clone(keys), factory: factory}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return fmt.Errorf("constructor with %d arguments: %w", len(keys), ErrSchemaSealed)
	}
	if s.manual == nil {
		s.manual = make(map[int]*Constructor)
	}
	if _, ok := s.manual[len(keys)]; ok {
		return fmt.Errorf("constructor with %d arguments: %w", len(keys), ErrDuplicateConstructor)
	}
	s.manual[len(keys)] = c
	return nil
}

// Constructors returns the constructor table keyed by arity. The table is
// resolved on first access: manually added constructors if there are any,
// otherwise one derived constructor per arity from MinRequiredArguments up
// to the number of keys included in auto constructors.
func (s *Schema) Constructors() map[int]*Constructor {
	s.once.Do(s.resolve)
	return maps.Clone(s.constructors)
}

// Constructor returns the constructor accepting arity arguments.
func (s *Schema) Constructor(arity int) (*Constructor, bool) {
	s.once.Do(s.resolve)
	c, ok := s.constructors[arity]
	return c, ok
}

// Arities returns the accepted argument counts in ascending order.
func (s *Schema) Arities() []int {
	s.once.Do(s.resolve)
	return slices.Sorted(maps.Keys(s.constructors))
}

func (s *Schema) resolve() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true

	if len(s.manual) > 0 {
		s.constructors = s.manual
		return
	}

	var auto []*Key
	for _, k := range s.keys {
		if k.IncludeInAutoConstructors() {
			auto = append(auto, k)
		}
	}

	s.constructors = make(map[int]*Constructor, max(len(auto)-s.minRequired+1, 0))
	log := s.diag.logger()
	if s.diag.DebugInfo {
		log.Info("kubescript: generating constructors", "schema", s.id, "keys", (&Constructor{schema: s, keys: auto}).String())
	}
	for a := s.minRequired; a <= len(auto); a++ {
		c := &Constructor{schema: s, keys: slices.Clone(auto[:a]), factory: DefaultFactory}
		s.constructors[a] = c
		if s.diag.DebugInfo {
			log.Info("kubescript: derived constructor", "arity", a, "keys", c.String())
		}
	}
}

// Create builds a new recipe of type t from positional script arguments,
// resolving the constructor by exact arity.
func (s *Schema) Create(t *Type, args ...any) (*Recipe, error) {
	c, ok := s.Constructor(len(args))
	if !ok {
		name := "recipe"
		if t != nil {
			name = t.id
		}
		return nil, fmt.Errorf("%s with %d arguments (accepts %v): %w", name, len(args), s.Arities(), ErrNoConstructor)
	}
	return c.Create(t, args...)
}

func (s *Schema) newRecipe(t *Type) *Recipe {
	r := s.factory()
	r.schema = s
	r.Type = t
	return r
}

// Deserialize creates a recipe of type t from a document. An empty id marks
// the recipe as new. Errors from the recipe's own population are returned
// unchanged.
func (s *Schema) Deserialize(t *Type, id string, json []byte) (*Recipe, error) {
	r := s.newRecipe(t)
	r.ID = id
	r.JSON = json
	r.New = id == ""
	r.InitValues(id == "")

	if id != "" && s.diag.DebugInfo {
		r.OriginalJSON = slices.Clone(json)
	}

	if err := r.Deserialize(false); err != nil {
		return nil, err
	}
	return r, nil
}
