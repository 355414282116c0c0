package kv

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store backed by maps. It is safe for concurrent
// use and is the backend the mapper's own tests run against.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string][]byte   // bucket -> key -> body
	links   map[string]map[string][]string // bucket#key -> tag -> targets
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]map[string][]byte),
		links:   make(map[string]map[string][]string),
	}
}

func (m *Memory) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	body, ok := m.records[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (m *Memory) Put(ctx context.Context, bucket, key string, body []byte) error {
	if bucket == "" {
		return ErrBadBucket
	}
	if key == "" {
		return ErrBadKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.records[bucket] == nil {
		m.records[bucket] = make(map[string][]byte)
	}
	stored := make([]byte, len(body))
	copy(stored, body)
	m.records[bucket][key] = stored
	return nil
}

func (m *Memory) Delete(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records[bucket], key)
	delete(m.links, bucket+"#"+key)
	return nil
}

func (m *Memory) GenerateKey(ctx context.Context, bucket string) (string, error) {
	return uuid.NewString(), nil
}

func (m *Memory) SetLinks(ctx context.Context, bucket, key, tag string, targets []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := bucket + "#" + key
	if len(targets) == 0 {
		delete(m.links[ref], tag)
		return nil
	}
	if m.links[ref] == nil {
		m.links[ref] = make(map[string][]string)
	}
	stored := make([]string, len(targets))
	copy(stored, targets)
	m.links[ref][tag] = stored
	return nil
}

func (m *Memory) GetLinks(ctx context.Context, bucket, key, tag string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	targets := m.links[bucket+"#"+key][tag]
	out := make([]string, len(targets))
	copy(out, targets)
	return out, nil
}

// GetMany implements BatchStore. Missing keys are omitted from the result.
func (m *Memory) GetMany(ctx context.Context, bucket string, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if body, ok := m.records[bucket][key]; ok {
			out := make([]byte, len(body))
			copy(out, body)
			result[key] = out
		}
	}
	return result, nil
}
