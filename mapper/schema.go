package mapper

import "fmt"

// Kind enumerates the scalar property kinds a schema can declare.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindTime
	KindStringList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindStringList:
		return "string_list"
	default:
		return "unknown"
	}
}

// Property declares one scalar property on a schema.
type Property struct {
	// Name is the property name as persisted in the record body.
	Name string

	// Kind is the scalar kind the property holds.
	Kind Kind

	// Required makes the default validator reject documents where the
	// property is absent.
	Required bool
}

// Cardinality says whether an association holds one document or many.
type Cardinality int

const (
	One Cardinality = iota + 1
	Many
)

// Containment says whether an association's targets live inline in the
// owner's record or as independently keyed records.
type Containment int

const (
	Referenced Containment = iota + 1
	Embedded
)

// KeyStrategy says how the storage key of a referenced target is derived.
type KeyStrategy int

const (
	// OwnKey targets keep their independently assigned key; the edge is
	// persisted through the store's link facility.
	OwnKey KeyStrategy = iota + 1

	// SharedKey forces the target's key equal to the owner's key.
	SharedKey

	// StoredKey keeps the target key(s) in a scalar or list property on
	// the owner, named by convention (see Descriptor.KeyProperty).
	StoredKey

	// Link keeps the edge as a typed cross-reference in store metadata.
	Link
)

// Descriptor is the static metadata for one declared association.
type Descriptor struct {
	// Name is the association name; also the link tag for Link strategy.
	Name string

	Cardinality Cardinality
	Containment Containment

	// KeyStrategy is ignored for embedded associations.
	KeyStrategy KeyStrategy

	// TargetType names the schema of the associated documents.
	TargetType string
}

// KeyProperty returns the owner-side property that carries the target
// key(s) under the StoredKey strategy.
func (d *Descriptor) KeyProperty() string {
	if d.Cardinality == Many {
		return d.Name + "_keys"
	}
	return d.Name + "_key"
}

// validate checks descriptor invariants at schema-definition time.
func (d *Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("association has no name")
	}
	if d.TargetType == "" {
		return fmt.Errorf("association %q has no target type", d.Name)
	}
	if d.Cardinality != One && d.Cardinality != Many {
		return fmt.Errorf("association %q has invalid cardinality", d.Name)
	}
	switch d.Containment {
	case Embedded:
		// Key strategy is irrelevant inline; reject explicit ones so a
		// misdeclared schema fails loudly instead of silently inlining.
		if d.KeyStrategy != 0 {
			return fmt.Errorf("association %q is embedded and cannot declare a key strategy", d.Name)
		}
	case Referenced:
		switch d.KeyStrategy {
		case OwnKey, Link:
		case SharedKey:
			if d.Cardinality != One {
				return fmt.Errorf("association %q: a shared key cannot disambiguate multiple targets", d.Name)
			}
		case StoredKey:
		default:
			return fmt.Errorf("association %q has invalid key strategy", d.Name)
		}
	default:
		return fmt.Errorf("association %q has invalid containment", d.Name)
	}
	return nil
}

// Schema defines a document type: its bucket, declared scalar properties,
// and declared associations.
type Schema struct {
	// Type is the unique type name documents of this schema carry.
	Type string

	// Bucket is the store bucket records of this type live in.
	// Embedded schemas have no bucket.
	Bucket string

	// Embedded marks value-like types that only exist inline in an
	// owner's record and never get a store key of their own.
	Embedded bool

	Properties   []Property
	Associations []Descriptor
}

// Property returns the declared property with the given name, or nil.
func (s *Schema) Property(name string) *Property {
	for i := range s.Properties {
		if s.Properties[i].Name == name {
			return &s.Properties[i]
		}
	}
	return nil
}

// Association returns the declared association with the given name, or nil.
func (s *Schema) Association(name string) *Descriptor {
	for i := range s.Associations {
		if s.Associations[i].Name == name {
			return &s.Associations[i]
		}
	}
	return nil
}

// validate checks schema invariants and auto-declares the key-bearing
// properties required by StoredKey associations.
func (s *Schema) validate() error {
	if s.Type == "" {
		return fmt.Errorf("schema has no type name")
	}
	if s.Embedded && s.Bucket != "" {
		return fmt.Errorf("schema %q: embedded types have no bucket", s.Type)
	}
	if !s.Embedded && s.Bucket == "" {
		return fmt.Errorf("schema %q has no bucket", s.Type)
	}

	seen := make(map[string]bool)
	for i := range s.Properties {
		p := &s.Properties[i]
		if p.Name == "" {
			return fmt.Errorf("schema %q: property has no name", s.Type)
		}
		if seen[p.Name] {
			return fmt.Errorf("schema %q: duplicate property %q", s.Type, p.Name)
		}
		seen[p.Name] = true
	}

	assocSeen := make(map[string]bool)
	for i := range s.Associations {
		d := &s.Associations[i]
		if err := d.validate(); err != nil {
			return fmt.Errorf("schema %q: %w", s.Type, err)
		}
		if assocSeen[d.Name] {
			return fmt.Errorf("schema %q: duplicate association %q", s.Type, d.Name)
		}
		assocSeen[d.Name] = true

		if s.Embedded && d.Containment == Referenced {
			return fmt.Errorf("schema %q: embedded types cannot declare referenced associations", s.Type)
		}

		if d.Containment == Referenced && d.KeyStrategy == StoredKey {
			keyProp := d.KeyProperty()
			kind := KindString
			if d.Cardinality == Many {
				kind = KindStringList
			}
			if existing := s.Property(keyProp); existing != nil {
				if existing.Kind != kind {
					return fmt.Errorf("schema %q: property %q must be %s to back association %q",
						s.Type, keyProp, kind, d.Name)
				}
			} else {
				s.Properties = append(s.Properties, Property{Name: keyProp, Kind: kind})
				seen[keyProp] = true
			}
		}
	}

	return nil
}
