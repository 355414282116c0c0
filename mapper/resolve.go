package mapper

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacentio/lattice/kv"
)

// fetch resolves a single referenced document by key. A missing record is
// a stale reference, not an error: the result is nil.
func (m *Mapper) fetch(ctx context.Context, typeName, key string) (*Document, error) {
	schema := m.registry.Schema(typeName)
	if schema == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	body, err := m.store.Get(ctx, schema.Bucket, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.decode(schema, key, body)
}

// fetchMany resolves referenced documents by key, preserving input order.
// Missing keys are skipped, so the result may be shorter than keys. One
// round trip when the store supports batching, sequential gets otherwise.
func (m *Mapper) fetchMany(ctx context.Context, typeName string, keys []string) ([]*Document, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	schema := m.registry.Schema(typeName)
	if schema == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	bodies, err := kv.GetMany(ctx, m.store, schema.Bucket, keys)
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, 0, len(bodies))
	for _, key := range keys {
		body, ok := bodies[key]
		if !ok {
			continue
		}
		d, err := m.decode(schema, key, body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}
