package mapper

import (
	"encoding/json"
	"fmt"
)

// encodeStructure serializes a document's persisted representation: scalar
// properties plus inline embedded structures. Referenced targets are never
// embedded; only their stored-key properties appear.
func encodeStructure(typeName string, structure map[string]any) ([]byte, error) {
	body, err := json.Marshal(structure)
	if err != nil {
		return nil, fmt.Errorf("lattice: encode %s: %w", typeName, err)
	}
	return body, nil
}

// decodeStructure parses a stored record body.
func decodeStructure(schema *Schema, key string, body []byte) (map[string]any, error) {
	var structure map[string]any
	if err := json.Unmarshal(body, &structure); err != nil {
		return nil, fmt.Errorf("lattice: decode %s %q: %w", schema.Type, key, err)
	}
	return structure, nil
}

// decode builds a persisted document from its stored body.
func (m *Mapper) decode(schema *Schema, key string, body []byte) (*Document, error) {
	structure, err := decodeStructure(schema, key, body)
	if err != nil {
		return nil, err
	}

	d := newDocument(m, schema)
	d.key = key
	d.isNew = false
	if err := m.applyStructure(d, structure); err != nil {
		return nil, err
	}
	return d, nil
}
