package recipe

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func testKeys() (a, b, c, d *Key) {
	a = NewKey("a", String)
	b = NewKey("b", Int)
	c = NewKey("c", String).Opt()
	d = NewKey("d", Int).DefaultOptional(5)
	return
}

func TestNewSchemaRejectsRequiredAfterOptional(t *testing.T) {
	orders := [][]*Key{
		{NewKey("a", String).Opt(), NewKey("b", String)},
		{NewKey("a", String), NewKey("b", String).DefaultOptional("x"), NewKey("c", String)},
		{NewKey("a", String).Opt(), NewKey("b", String).Opt(), NewKey("c", String)},
	}
	for i, keys := range orders {
		_, err := NewSchema(keys...)
		if !errors.Is(err, ErrKeyOrder) {
			t.Fatalf("case %d: expected ErrKeyOrder, got %v", i, err)
		}
	}
}

func TestNewSchemaNamesOffendingKey(t *testing.T) {
	_, err := NewSchema(NewKey("first", String).Opt(), NewKey("late", String))
	if err == nil || !strings.Contains(err.Error(), `"late"`) {
		t.Fatalf("expected error naming late, got %v", err)
	}
}

func TestNewSchemaRejectsDuplicateNames(t *testing.T) {
	_, err := NewSchema(NewKey("a", String), NewKey("b", Int), NewKey("a", Int))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if !strings.Contains(err.Error(), `"a"`) {
		t.Fatalf("expected error naming a, got %v", err)
	}
}

func TestNewSchemaRejectsAlwaysWriteWithDefault(t *testing.T) {
	_, err := NewSchema(NewKey("a", String), NewKey("b", Int).DefaultOptional(1).Always())
	if !errors.Is(err, ErrAlwaysWriteDefault) {
		t.Fatalf("expected ErrAlwaysWriteDefault, got %v", err)
	}

	// Optional without default may be always written.
	if _, err := NewSchema(NewKey("a", String).Opt().Always()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSchemaCounts(t *testing.T) {
	s, err := NewSchema(ResultKey, IngredientKey, NewKey("extra", IngredientArray), ExperienceKey)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	if s.InputCount() != 2 {
		t.Fatalf("expected 2 inputs, got %d", s.InputCount())
	}
	if s.OutputCount() != 1 {
		t.Fatalf("expected 1 output, got %d", s.OutputCount())
	}
	if s.MinRequiredArguments() != 3 {
		t.Fatalf("expected 3 required arguments, got %d", s.MinRequiredArguments())
	}

	all, err := NewSchema(NewKey("a", String), NewKey("b", String))
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	if all.MinRequiredArguments() != 2 {
		t.Fatalf("expected 2 required arguments, got %d", all.MinRequiredArguments())
	}
}

func TestNewSchemaUniqueIdentity(t *testing.T) {
	a := MustSchema(NewKey("a", String))
	b := MustSchema(NewKey("a", String))
	if a.UUID() == b.UUID() {
		t.Fatal("expected distinct schema identities")
	}
	if a.UUID() != a.UUID() {
		t.Fatal("expected stable schema identity")
	}
}

func TestMustSchemaPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustSchema(NewKey("a", String), NewKey("a", String))
}

func TestDerivedConstructors(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)

	got := s.Arities()
	if !slices.Equal(got, []int{2, 3, 4}) {
		t.Fatalf("expected arities [2 3 4], got %v", got)
	}
	for arity, ctor := range s.Constructors() {
		if ctor.Arity() != arity {
			t.Fatalf("constructor under %d has arity %d", arity, ctor.Arity())
		}
		for i, k := range ctor.Keys() {
			if k != s.Keys()[i] {
				t.Fatalf("constructor %d key %d: expected %s, got %s", arity, i, s.Keys()[i], k)
			}
		}
	}
	if _, ok := s.Constructor(1); ok {
		t.Fatal("expected no constructor for arity 1")
	}
	if _, ok := s.Constructor(5); ok {
		t.Fatal("expected no constructor for arity 5")
	}
}

func TestDerivedConstructorsSkipExcludedKeys(t *testing.T) {
	s := MustSchema(NewKey("a", String), NewKey("b", String).Opt(), NewKey("hidden", String).Opt().Exclude())
	if got := s.Arities(); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("expected arities [1 2], got %v", got)
	}
}

func TestDerivedConstructorsAllRequired(t *testing.T) {
	s := MustSchema(NewKey("a", String), NewKey("b", String))
	if got := s.Arities(); !slices.Equal(got, []int{2}) {
		t.Fatalf("expected arities [2], got %v", got)
	}
}

func TestManualConstructorSuppressesDerivation(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)
	if err := s.AddConstructor(nil, a, b, d); err != nil {
		t.Fatalf("add constructor: %v", err)
	}
	if got := s.Arities(); !slices.Equal(got, []int{3}) {
		t.Fatalf("expected only manual arity 3, got %v", got)
	}
	ctor, _ := s.Constructor(3)
	if ctor.Keys()[2] != d {
		t.Fatalf("expected manual key order, got %s", ctor)
	}
}

func TestManualConstructorDuplicateArity(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)
	if err := s.AddConstructor(nil, a, b); err != nil {
		t.Fatalf("add constructor: %v", err)
	}
	err := s.AddConstructor(nil, a, c)
	if !errors.Is(err, ErrDuplicateConstructor) {
		t.Fatalf("expected ErrDuplicateConstructor, got %v", err)
	}
	if !strings.Contains(err.Error(), "2 arguments") {
		t.Fatalf("expected error naming the arity, got %v", err)
	}
}

func TestAddConstructorAfterResolution(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)
	_ = s.Constructors()
	if err := s.AddConstructor(nil, a); !errors.Is(err, ErrSchemaSealed) {
		t.Fatalf("expected ErrSchemaSealed, got %v", err)
	}
	if got := s.Arities(); !slices.Equal(got, []int{2, 3, 4}) {
		t.Fatalf("expected derived table to survive, got %v", got)
	}
}

func TestConstructorsReturnsCopy(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)
	m := s.Constructors()
	delete(m, 2)
	if _, ok := s.Constructor(2); !ok {
		t.Fatal("expected mutation of the returned map not to affect the schema")
	}
}

func TestConstructorsDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	a, b, c, d := testKeys()
	MustSchema(a, b, c, d).WithDiagnostics(Diagnostics{Logger: log}).Constructors()
	if buf.Len() != 0 {
		t.Fatalf("expected no output without debug info, got %q", buf.String())
	}

	MustSchema(a, b, c, d).WithDiagnostics(Diagnostics{DebugInfo: true, Logger: log}).Constructors()
	if got := strings.Count(buf.String(), "derived constructor"); got != 3 {
		t.Fatalf("expected 3 derived constructor lines, got %d: %s", got, buf.String())
	}
}

func TestCreateResolvesByArity(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)

	r, err := s.Create(nil, "x", 2.0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !r.New {
		t.Fatal("expected created recipe to be new")
	}
	if r.Value("a") != "x" || r.Value("b") != 2 {
		t.Fatalf("unexpected values a=%v b=%v", r.Value("a"), r.Value("b"))
	}
	if r.Value("c") != nil {
		t.Fatalf("expected c unset, got %v", r.Value("c"))
	}
	if r.Value("d") != 5 {
		t.Fatalf("expected default d=5, got %v", r.Value("d"))
	}

	r, err = s.Create(nil, "x", 2, "y", 9)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Value("c") != "y" || r.Value("d") != 9 {
		t.Fatalf("unexpected values c=%v d=%v", r.Value("c"), r.Value("d"))
	}
}

func TestCreateNoMatchingConstructor(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)
	for _, args := range [][]any{{"x"}, {"x", 1, "y", 2, "z"}} {
		_, err := s.Create(nil, args...)
		if !errors.Is(err, ErrNoConstructor) {
			t.Fatalf("%d args: expected ErrNoConstructor, got %v", len(args), err)
		}
	}
	// The schema is still usable afterwards.
	if _, err := s.Create(nil, "x", 1); err != nil {
		t.Fatalf("create after failure: %v", err)
	}
}

func TestCreateArgumentError(t *testing.T) {
	a, b, c, d := testKeys()
	s := MustSchema(a, b, c, d)
	_, err := s.Create(nil, "x", "not a number")
	if err == nil || !strings.Contains(err.Error(), "argument 2 (b)") {
		t.Fatalf("expected argument error naming b, got %v", err)
	}
}

func TestCustomConstructorFactory(t *testing.T) {
	name := NewKey("name", String)
	count := NewKey("count", Int).DefaultOptional(1)
	s := MustSchema(name, count)
	err := s.AddConstructor(func(r *Recipe, keys []*Key, args []any) error {
		r.SetValue(name, strings.ToUpper(args[0].(string)))
		return nil
	}, name)
	if err != nil {
		t.Fatalf("add constructor: %v", err)
	}
	r, err := s.Create(nil, "stick")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Value("name") != "STICK" {
		t.Fatalf("expected custom factory value, got %v", r.Value("name"))
	}
}
