package mapper

import (
	"fmt"
	"time"
)

// structureOf serializes a document's declared scalar properties and
// embedded associations into a nested structure. Keys never appear: an
// embedded structure is located by its position in the owner's record, and
// a referenced association contributes only its stored-key properties.
func structureOf(d *Document) map[string]any {
	out := make(map[string]any, len(d.props))

	for i := range d.schema.Properties {
		p := &d.schema.Properties[i]
		v, ok := d.props[p.Name]
		if !ok {
			continue
		}
		out[p.Name] = normalizeValue(p.Kind, v)
	}

	for i := range d.schema.Associations {
		desc := &d.schema.Associations[i]
		if desc.Containment != Embedded {
			continue
		}
		if desc.Cardinality == Many {
			c := d.colls[desc.Name]
			if len(c.docs) == 0 {
				continue
			}
			list := make([]any, len(c.docs))
			for j, child := range c.docs {
				list[j] = structureOf(child)
			}
			out[desc.Name] = list
		} else {
			p := d.singles[desc.Name]
			if p.value == nil {
				continue
			}
			out[desc.Name] = structureOf(p.value)
		}
	}

	return out
}

// applyStructure populates a document from a decoded structure, wiring
// embedded children to their owner and leaving referenced associations
// unloaded for lazy resolution.
func (m *Mapper) applyStructure(d *Document, structure map[string]any) error {
	d.raw = structure

	for i := range d.schema.Properties {
		p := &d.schema.Properties[i]
		if v, ok := structure[p.Name]; ok {
			d.props[p.Name] = v
		}
	}

	for i := range d.schema.Associations {
		desc := &d.schema.Associations[i]
		if desc.Containment != Embedded {
			// Referenced associations resolve lazily on first access.
			if desc.Cardinality == Many {
				d.colls[desc.Name].loaded = false
			} else {
				d.singles[desc.Name].loaded = false
			}
			continue
		}

		target := m.registry.Schema(desc.TargetType)
		if target == nil {
			return fmt.Errorf("%w: %s", ErrUnknownType, desc.TargetType)
		}

		if desc.Cardinality == Many {
			c := d.colls[desc.Name]
			c.loaded = true
			list, _ := structure[desc.Name].([]any)
			for _, raw := range list {
				sub, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				child, err := m.deserializeEmbedded(target, sub, d)
				if err != nil {
					return err
				}
				c.docs = append(c.docs, child)
			}
		} else {
			p := d.singles[desc.Name]
			p.loaded = true
			if sub, ok := structure[desc.Name].(map[string]any); ok {
				child, err := m.deserializeEmbedded(target, sub, d)
				if err != nil {
					return err
				}
				p.value = child
			}
		}
	}

	return nil
}

// deserializeEmbedded constructs an embedded document from its nested
// structure and sets its back-reference to owner.
func (m *Mapper) deserializeEmbedded(schema *Schema, structure map[string]any, owner *Document) (*Document, error) {
	child := newDocument(m, schema)
	child.isNew = false
	child.setOwner(owner)
	if err := m.applyStructure(child, structure); err != nil {
		return nil, err
	}
	return child, nil
}

// normalizeValue coerces in-memory property values to their persisted
// representation. Only times need translation; everything else is already
// a JSON-native value.
func normalizeValue(kind Kind, v any) any {
	if kind == KindTime {
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return v
}
