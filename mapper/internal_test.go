package mapper

import (
	"reflect"
	"testing"
	"time"
)

// --- dedupeKeys Tests ---

func TestDedupeKeys_Empty(t *testing.T) {
	result := dedupeKeys(nil)
	if len(result) != 0 {
		t.Errorf("expected empty result, got %v", result)
	}
}

func TestDedupeKeys_NoDuplicates(t *testing.T) {
	result := dedupeKeys([]string{"a", "b", "c"})
	if !reflect.DeepEqual(result, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", result)
	}
}

func TestDedupeKeys_KeepsFirstOccurrence(t *testing.T) {
	result := dedupeKeys([]string{"a", "b", "a", "c", "b"})
	if !reflect.DeepEqual(result, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", result)
	}
}

func TestDedupeKeys_DropsEmpty(t *testing.T) {
	result := dedupeKeys([]string{"", "a", "", "b"})
	if !reflect.DeepEqual(result, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", result)
	}
}

// --- normalizeValue Tests ---

func TestNormalizeValue_TimeToRFC3339(t *testing.T) {
	at := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)
	result := normalizeValue(KindTime, at)
	if result != "2025-03-09T08:00:00Z" {
		t.Errorf("expected RFC 3339 string, got %v", result)
	}
}

func TestNormalizeValue_TimeStringPassesThrough(t *testing.T) {
	result := normalizeValue(KindTime, "2025-03-09T08:00:00Z")
	if result != "2025-03-09T08:00:00Z" {
		t.Errorf("expected pass-through, got %v", result)
	}
}

func TestNormalizeValue_NonTimeUntouched(t *testing.T) {
	if got := normalizeValue(KindString, "x"); got != "x" {
		t.Errorf("expected 'x', got %v", got)
	}
	if got := normalizeValue(KindInt, 42); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

// --- kindMatches Tests ---

func TestKindMatches(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		value any
		want  bool
	}{
		{"string ok", KindString, "x", true},
		{"string wrong", KindString, 1, false},
		{"int ok", KindInt, 42, true},
		{"int64 ok", KindInt, int64(42), true},
		{"int from whole float", KindInt, float64(42), true},
		{"int from fractional float", KindInt, 42.5, false},
		{"float ok", KindFloat, 1.5, true},
		{"float from int", KindFloat, 3, true},
		{"bool ok", KindBool, true, true},
		{"bool wrong", KindBool, "true", false},
		{"time ok", KindTime, time.Now(), true},
		{"time string ok", KindTime, "2025-03-09T08:00:00Z", true},
		{"time string bad", KindTime, "yesterday", false},
		{"list ok", KindStringList, []string{"a"}, true},
		{"list decoded ok", KindStringList, []any{"a", "b"}, true},
		{"list decoded mixed", KindStringList, []any{"a", 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kindMatches(tt.kind, tt.value); got != tt.want {
				t.Errorf("kindMatches(%v, %v) = %v, want %v", tt.kind, tt.value, got, tt.want)
			}
		})
	}
}

// --- structureOf round trip ---

func testStructureRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(&Schema{
		Type:     "line",
		Embedded: true,
		Properties: []Property{
			{Name: "sku", Kind: KindString},
			{Name: "qty", Kind: KindInt},
		},
	})
	r.MustRegister(&Schema{
		Type:   "order",
		Bucket: "orders",
		Properties: []Property{
			{Name: "ref", Kind: KindString},
		},
		Associations: []Descriptor{
			{Name: "lines", Cardinality: Many, Containment: Embedded, TargetType: "line"},
		},
	})
	return r
}

func TestStructureOf_RoundTripIsFixedPoint(t *testing.T) {
	m := New(nil, testStructureRegistry(t), nil)

	structure := map[string]any{
		"ref": "ord-1",
		"lines": []any{
			map[string]any{"sku": "a", "qty": float64(2)},
			map[string]any{"sku": "b", "qty": float64(1)},
		},
	}

	d := newDocument(m, m.registry.Schema("order"))
	d.isNew = false
	if err := m.applyStructure(d, structure); err != nil {
		t.Fatalf("applyStructure: %v", err)
	}

	// Deserializing and re-serializing without mutation is a fixed point.
	if got := structureOf(d); !reflect.DeepEqual(got, structure) {
		t.Errorf("round trip diverged:\n got %#v\nwant %#v", got, structure)
	}
}

func TestStructureOf_OmitsEmptyAssociations(t *testing.T) {
	m := New(nil, testStructureRegistry(t), nil)

	d := newDocument(m, m.registry.Schema("order"))
	d.props["ref"] = "ord-2"

	got := structureOf(d)
	if _, ok := got["lines"]; ok {
		t.Error("expected empty embedded collection omitted from structure")
	}
}

func TestStructureOf_NeverIncludesKeys(t *testing.T) {
	m := New(nil, testStructureRegistry(t), nil)

	d := newDocument(m, m.registry.Schema("order"))
	d.key = "ord-3"
	d.props["ref"] = "ord-3"

	got := structureOf(d)
	for name := range got {
		if name == "key" || name == "id" {
			t.Errorf("persisted structure must not carry a key field, found %q", name)
		}
	}
}
