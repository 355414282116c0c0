package mapper

import (
	"context"
	"fmt"
)

// ensureKey assigns a store-generated key to d when it has none.
func (m *Mapper) ensureKey(ctx context.Context, d *Document) error {
	if d.key != "" {
		return nil
	}
	key, err := m.store.GenerateKey(ctx, d.schema.Bucket)
	if err != nil {
		return err
	}
	d.key = key
	return nil
}

// deriveKey computes the storage key for target under desc, assigning keys
// when the strategy demands it. For SharedKey an unkeyed owner is keyed
// first, synchronously, and the key copied to the target; a target with a
// different pre-existing key is a conflict.
func (m *Mapper) deriveKey(ctx context.Context, owner *Document, desc *Descriptor, target *Document) (string, error) {
	switch desc.KeyStrategy {
	case SharedKey:
		if err := m.ensureKey(ctx, owner); err != nil {
			return "", err
		}
		if target != nil {
			if target.key != "" && target.key != owner.key {
				return "", &KeyConflictError{
					Association: desc.Name,
					OwnerKey:    owner.key,
					TargetKey:   target.key,
				}
			}
			target.key = owner.key
		}
		return owner.key, nil

	case StoredKey, OwnKey, Link:
		if target == nil {
			return "", nil
		}
		if err := m.ensureKey(ctx, target); err != nil {
			return "", err
		}
		return target.key, nil
	}

	return "", fmt.Errorf("lattice: association %q has no key strategy", desc.Name)
}

// readKey resolves the lookup key for a one-cardinality referenced
// association. Returns "" when nothing is recorded.
func (m *Mapper) readKey(ctx context.Context, owner *Document, desc *Descriptor) (string, error) {
	switch desc.KeyStrategy {
	case SharedKey:
		return owner.key, nil
	case StoredKey:
		return owner.String(desc.KeyProperty()), nil
	case OwnKey, Link:
		if owner.key == "" {
			return "", nil
		}
		targets, err := m.store.GetLinks(ctx, owner.schema.Bucket, owner.key, desc.Name)
		if err != nil {
			return "", err
		}
		if len(targets) == 0 {
			return "", nil
		}
		return targets[0], nil
	}
	return "", fmt.Errorf("lattice: association %q has no key strategy", desc.Name)
}

// readKeys resolves the lookup keys for a many-cardinality referenced
// association. StoredKey order mirrors the owner's key property; link
// order is whatever the store yields.
func (m *Mapper) readKeys(ctx context.Context, owner *Document, desc *Descriptor) ([]string, error) {
	switch desc.KeyStrategy {
	case StoredKey:
		return owner.StringList(desc.KeyProperty()), nil
	case OwnKey, Link:
		if owner.key == "" {
			return nil, nil
		}
		return m.store.GetLinks(ctx, owner.schema.Bucket, owner.key, desc.Name)
	}
	return nil, fmt.Errorf("lattice: association %q has no key strategy", desc.Name)
}

// dedupeKeys drops repeated keys, keeping first occurrence order.
func dedupeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
