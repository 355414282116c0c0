package mapper_test

import (
	"testing"

	"github.com/jacentio/lattice/mapper"
)

func TestNewRegistry(t *testing.T) {
	r := mapper.NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil Registry")
	}
}

func TestRegistry_Register(t *testing.T) {
	r := mapper.NewRegistry()

	err := r.Register(&mapper.Schema{
		Type:   "note",
		Bucket: "notes",
		Properties: []mapper.Property{
			{Name: "body", Kind: mapper.KindString},
		},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	s := r.Schema("note")
	if s == nil {
		t.Fatal("expected registered schema")
	}
	if s.Bucket != "notes" {
		t.Errorf("expected bucket 'notes', got %q", s.Bucket)
	}
}

func TestRegistry_RegisterDuplicateType(t *testing.T) {
	r := mapper.NewRegistry()
	schema := func() *mapper.Schema {
		return &mapper.Schema{Type: "note", Bucket: "notes"}
	}

	if err := r.Register(schema()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(schema()); err == nil {
		t.Error("expected error registering duplicate type")
	}
}

func TestRegistry_UnknownSchema(t *testing.T) {
	r := mapper.NewRegistry()
	if s := r.Schema("missing"); s != nil {
		t.Errorf("expected nil for unknown type, got %+v", s)
	}
}

func TestRegistry_Types(t *testing.T) {
	r := mapper.NewRegistry()
	r.MustRegister(&mapper.Schema{Type: "b", Bucket: "bs"})
	r.MustRegister(&mapper.Schema{Type: "a", Bucket: "as"})

	types := r.Types()
	if len(types) != 2 || types[0] != "a" || types[1] != "b" {
		t.Errorf("expected sorted [a b], got %v", types)
	}
}

func TestRegistry_RejectsSharedKeyMany(t *testing.T) {
	r := mapper.NewRegistry()
	err := r.Register(&mapper.Schema{
		Type:   "owner",
		Bucket: "owners",
		Associations: []mapper.Descriptor{
			{Name: "items", Cardinality: mapper.Many, Containment: mapper.Referenced, KeyStrategy: mapper.SharedKey, TargetType: "item"},
		},
	})
	if err == nil {
		t.Error("expected error: shared key cannot disambiguate multiple targets")
	}
}

func TestRegistry_RejectsEmbeddedWithKeyStrategy(t *testing.T) {
	r := mapper.NewRegistry()
	err := r.Register(&mapper.Schema{
		Type:   "owner",
		Bucket: "owners",
		Associations: []mapper.Descriptor{
			{Name: "inline", Cardinality: mapper.One, Containment: mapper.Embedded, KeyStrategy: mapper.StoredKey, TargetType: "frag"},
		},
	})
	if err == nil {
		t.Error("expected error: embedded associations cannot declare a key strategy")
	}
}

func TestRegistry_RejectsEmbeddedSchemaWithBucket(t *testing.T) {
	r := mapper.NewRegistry()
	err := r.Register(&mapper.Schema{Type: "frag", Embedded: true, Bucket: "frags"})
	if err == nil {
		t.Error("expected error: embedded types have no bucket")
	}
}

func TestRegistry_RejectsEmbeddedSchemaWithReferencedAssociation(t *testing.T) {
	r := mapper.NewRegistry()
	err := r.Register(&mapper.Schema{
		Type:     "frag",
		Embedded: true,
		Associations: []mapper.Descriptor{
			{Name: "other", Cardinality: mapper.One, Containment: mapper.Referenced, KeyStrategy: mapper.StoredKey, TargetType: "thing"},
		},
	})
	if err == nil {
		t.Error("expected error: embedded types cannot declare referenced associations")
	}
}

func TestRegistry_AutoDeclaresStoredKeyProperty(t *testing.T) {
	r := mapper.NewRegistry()
	r.MustRegister(&mapper.Schema{
		Type:   "owner",
		Bucket: "owners",
		Associations: []mapper.Descriptor{
			{Name: "item", Cardinality: mapper.One, Containment: mapper.Referenced, KeyStrategy: mapper.StoredKey, TargetType: "item"},
			{Name: "parts", Cardinality: mapper.Many, Containment: mapper.Referenced, KeyStrategy: mapper.StoredKey, TargetType: "part"},
		},
	})

	s := r.Schema("owner")
	one := s.Property("item_key")
	if one == nil || one.Kind != mapper.KindString {
		t.Errorf("expected auto-declared string property item_key, got %+v", one)
	}
	many := s.Property("parts_keys")
	if many == nil || many.Kind != mapper.KindStringList {
		t.Errorf("expected auto-declared string_list property parts_keys, got %+v", many)
	}
}

func TestRegistry_RejectsStoredKeyPropertyKindClash(t *testing.T) {
	r := mapper.NewRegistry()
	err := r.Register(&mapper.Schema{
		Type:   "owner",
		Bucket: "owners",
		Properties: []mapper.Property{
			{Name: "item_key", Kind: mapper.KindInt},
		},
		Associations: []mapper.Descriptor{
			{Name: "item", Cardinality: mapper.One, Containment: mapper.Referenced, KeyStrategy: mapper.StoredKey, TargetType: "item"},
		},
	})
	if err == nil {
		t.Error("expected error: item_key declared with the wrong kind")
	}
}

func TestDescriptor_KeyProperty(t *testing.T) {
	one := mapper.Descriptor{Name: "boss", Cardinality: mapper.One}
	if got := one.KeyProperty(); got != "boss_key" {
		t.Errorf("expected 'boss_key', got %q", got)
	}
	many := mapper.Descriptor{Name: "tasks", Cardinality: mapper.Many}
	if got := many.KeyProperty(); got != "tasks_keys" {
		t.Errorf("expected 'tasks_keys', got %q", got)
	}
}
