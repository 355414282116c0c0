// Package kv defines the key-value store boundary consumed by the mapper,
// along with shipped backends for memory, DynamoDB, Redis, and MongoDB.
package kv

import (
	"context"
	"errors"
)

// Store is the transport the mapper persists through. Records live under a
// (bucket, key) pair; links are typed edges kept in store metadata, outside
// the record body.
type Store interface {
	// Get returns the body stored under (bucket, key).
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put stores body under (bucket, key), replacing any existing record.
	Put(ctx context.Context, bucket, key string, body []byte) error

	// Delete removes the record under (bucket, key). Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// GenerateKey returns a fresh key unique within bucket.
	GenerateKey(ctx context.Context, bucket string) (string, error)

	// SetLinks replaces the set of links tagged tag on (bucket, key) with
	// targets. An empty targets slice clears the tag.
	SetLinks(ctx context.Context, bucket, key, tag string, targets []string) error

	// GetLinks returns the target keys linked from (bucket, key) under tag.
	// Order is whatever the backend yields; callers must not assume more.
	GetLinks(ctx context.Context, bucket, key, tag string) ([]string, error)
}

// BatchStore is implemented by backends that can fetch several records in
// one round trip. Missing keys are omitted from the result, never an error.
type BatchStore interface {
	GetMany(ctx context.Context, bucket string, keys []string) (map[string][]byte, error)
}

// GetMany fetches keys from s, using a single round trip when s implements
// BatchStore and sequential Gets otherwise. Missing keys are omitted.
func GetMany(ctx context.Context, s Store, bucket string, keys []string) (map[string][]byte, error) {
	if bs, ok := s.(BatchStore); ok {
		return bs.GetMany(ctx, bucket, keys)
	}

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		body, err := s.Get(ctx, bucket, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		result[key] = body
	}
	return result, nil
}
