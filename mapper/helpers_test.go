package mapper_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jacentio/lattice/kv"
	"github.com/jacentio/lattice/mapper"
)

// testRegistry builds the schema set the mapper tests run against: a
// person with an embedded address, embedded phones, a shared-key profile,
// stored-key tasks, a stored-key boss, and link-strategy friends.
func testRegistry(t *testing.T) *mapper.Registry {
	t.Helper()
	r := mapper.NewRegistry()

	r.MustRegister(&mapper.Schema{
		Type:     "geo",
		Embedded: true,
		Properties: []mapper.Property{
			{Name: "lat", Kind: mapper.KindFloat},
			{Name: "lng", Kind: mapper.KindFloat},
		},
	})
	r.MustRegister(&mapper.Schema{
		Type:     "address",
		Embedded: true,
		Properties: []mapper.Property{
			{Name: "street", Kind: mapper.KindString},
			{Name: "city", Kind: mapper.KindString},
		},
		Associations: []mapper.Descriptor{
			{Name: "geo", Cardinality: mapper.One, Containment: mapper.Embedded, TargetType: "geo"},
		},
	})
	r.MustRegister(&mapper.Schema{
		Type:     "phone",
		Embedded: true,
		Properties: []mapper.Property{
			{Name: "number", Kind: mapper.KindString},
		},
	})
	r.MustRegister(&mapper.Schema{
		Type:   "profile",
		Bucket: "profiles",
		Properties: []mapper.Property{
			{Name: "bio", Kind: mapper.KindString},
		},
	})
	r.MustRegister(&mapper.Schema{
		Type:   "task",
		Bucket: "tasks",
		Properties: []mapper.Property{
			{Name: "title", Kind: mapper.KindString, Required: true},
		},
	})
	r.MustRegister(&mapper.Schema{
		Type:   "person",
		Bucket: "people",
		Properties: []mapper.Property{
			{Name: "name", Kind: mapper.KindString, Required: true},
			{Name: "age", Kind: mapper.KindInt},
		},
		Associations: []mapper.Descriptor{
			{Name: "address", Cardinality: mapper.One, Containment: mapper.Embedded, TargetType: "address"},
			{Name: "phones", Cardinality: mapper.Many, Containment: mapper.Embedded, TargetType: "phone"},
			{Name: "profile", Cardinality: mapper.One, Containment: mapper.Referenced, KeyStrategy: mapper.SharedKey, TargetType: "profile"},
			{Name: "boss", Cardinality: mapper.One, Containment: mapper.Referenced, KeyStrategy: mapper.StoredKey, TargetType: "person"},
			{Name: "tasks", Cardinality: mapper.Many, Containment: mapper.Referenced, KeyStrategy: mapper.StoredKey, TargetType: "task"},
			{Name: "friends", Cardinality: mapper.Many, Containment: mapper.Referenced, KeyStrategy: mapper.Link, TargetType: "person"},
		},
	})

	return r
}

func newTestMapper(t *testing.T) (*mapper.Mapper, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return mapper.New(store, testRegistry(t), logger), store
}

func newTestMapperWithRegistry(t *testing.T, r *mapper.Registry) (*mapper.Mapper, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return mapper.New(store, r, logger), store
}

func mustNew(t *testing.T, m *mapper.Mapper, typeName string) *mapper.Document {
	t.Helper()
	d, err := m.NewDocument(typeName)
	if err != nil {
		t.Fatalf("NewDocument(%q): %v", typeName, err)
	}
	return d
}

func mustSet(t *testing.T, d *mapper.Document, name string, value any) {
	t.Helper()
	if err := d.Set(name, value); err != nil {
		t.Fatalf("Set(%q): %v", name, err)
	}
}

func mustSave(t *testing.T, m *mapper.Mapper, d *mapper.Document) {
	t.Helper()
	if err := m.Save(context.Background(), d); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

// newPerson builds a valid person document.
func newPerson(t *testing.T, m *mapper.Mapper, name string) *mapper.Document {
	t.Helper()
	d := mustNew(t, m, "person")
	mustSet(t, d, "name", name)
	return d
}

// newTask builds a valid task document.
func newTask(t *testing.T, m *mapper.Mapper, title string) *mapper.Document {
	t.Helper()
	d := mustNew(t, m, "task")
	mustSet(t, d, "title", title)
	return d
}

// countingStore wraps a Memory store and counts writes, for asserting that
// clean saves issue no redundant cascade writes.
type countingStore struct {
	*kv.Memory
	puts     int
	setLinks int
	deletes  int
}

func (c *countingStore) Put(ctx context.Context, bucket, key string, body []byte) error {
	c.puts++
	return c.Memory.Put(ctx, bucket, key, body)
}

func (c *countingStore) SetLinks(ctx context.Context, bucket, key, tag string, targets []string) error {
	c.setLinks++
	return c.Memory.SetLinks(ctx, bucket, key, tag, targets)
}

func (c *countingStore) Delete(ctx context.Context, bucket, key string) error {
	c.deletes++
	return c.Memory.Delete(ctx, bucket, key)
}
