package mapper

import (
	"time"
)

// Document is the runtime object for one entity. Documents are constructed
// through Mapper.New and loaded through Mapper.Find; embedded documents
// additionally carry a back-reference to the owner they are inlined in.
//
// A Document is not safe for concurrent mutation; callers serialize access
// per save/load operation.
type Document struct {
	m      *Mapper
	schema *Schema

	key     string
	props   map[string]any
	singles map[string]*Single
	colls   map[string]*Collection

	// raw is the record structure as of the last load or save, retained so
	// embedded associations can re-resolve after a proxy Reload.
	raw map[string]any

	// owner is the non-owning back-reference for embedded documents.
	owner *Document

	isNew   bool
	deleted bool
}

func newDocument(m *Mapper, schema *Schema) *Document {
	d := &Document{
		m:       m,
		schema:  schema,
		props:   make(map[string]any),
		singles: make(map[string]*Single),
		colls:   make(map[string]*Collection),
		isNew:   true,
	}
	for i := range schema.Associations {
		desc := &schema.Associations[i]
		if desc.Cardinality == Many {
			d.colls[desc.Name] = newCollection(d, desc)
		} else {
			d.singles[desc.Name] = newSingle(d, desc)
		}
	}
	return d
}

// Type returns the document's schema type name.
func (d *Document) Type() string {
	return d.schema.Type
}

// Key returns the document's store key, empty until assigned or saved.
func (d *Document) Key() string {
	return d.key
}

// SetKey assigns an application-chosen key. Keys assigned by the store or
// by shared-key derivation overwrite application keys only on conflict
// checks, never silently.
func (d *Document) SetKey(key string) {
	d.key = key
}

// IsNew reports whether the document has never been persisted.
func (d *Document) IsNew() bool {
	return d.isNew
}

// Deleted reports whether the document was destroyed. The in-memory object
// survives its record.
func (d *Document) Deleted() bool {
	return d.deleted
}

// Owner returns the owning document for embedded documents, nil otherwise.
func (d *Document) Owner() *Document {
	return d.owner
}

// Set assigns a declared scalar property. Setting a property the schema
// does not declare is an error.
func (d *Document) Set(name string, value any) error {
	if d.schema.Property(name) == nil {
		return ErrUnknownProperty
	}
	if value == nil {
		delete(d.props, name)
		return nil
	}
	d.props[name] = value
	return nil
}

// Get returns the raw value of a property, or nil when unset.
func (d *Document) Get(name string) any {
	return d.props[name]
}

// String returns a string property, or "" when unset or of another kind.
func (d *Document) String(name string) string {
	if v, ok := d.props[name].(string); ok {
		return v
	}
	return ""
}

// Int returns an integer property. Values decoded from the store arrive as
// float64 and are coerced.
func (d *Document) Int(name string) int64 {
	switch v := d.props[name].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns a float property.
func (d *Document) Float(name string) float64 {
	switch v := d.props[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns a boolean property.
func (d *Document) Bool(name string) bool {
	if v, ok := d.props[name].(bool); ok {
		return v
	}
	return false
}

// Time returns a time property. Times round-trip through RFC 3339 strings
// in the record body.
func (d *Document) Time(name string) time.Time {
	switch v := d.props[name].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StringList returns a string-list property. Lists decoded from the store
// arrive as []any and are coerced.
func (d *Document) StringList(name string) []string {
	switch v := d.props[name].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// One returns the proxy for a declared one-cardinality association.
// Returns nil if the association is unknown or has many cardinality.
func (d *Document) One(name string) *Single {
	return d.singles[name]
}

// Many returns the proxy for a declared many-cardinality association.
// Returns nil if the association is unknown or has one cardinality.
func (d *Document) Many(name string) *Collection {
	return d.colls[name]
}

// setOwner moves an embedded document to a new owner. An instance belongs
// to at most one owner at a time.
func (d *Document) setOwner(owner *Document) {
	d.owner = owner
}

// resetAssociations discards all proxy state, forcing re-resolution.
func (d *Document) resetAssociations() {
	for _, p := range d.singles {
		p.Reload()
	}
	for _, p := range d.colls {
		p.Reload()
	}
}
