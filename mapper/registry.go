package mapper

import (
	"fmt"
	"sort"
)

// Registry holds all registered document schemas.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*Schema),
	}
}

// Register validates and adds a schema to the registry.
// This should be called during init() for each document type.
// Association target types may be registered in any order.
func (r *Registry) Register(s *Schema) error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("lattice: %w", err)
	}
	if _, ok := r.schemas[s.Type]; ok {
		return fmt.Errorf("lattice: schema %q already registered", s.Type)
	}
	r.schemas[s.Type] = s
	return nil
}

// MustRegister is Register, panicking on error. Intended for init().
func (r *Registry) MustRegister(s *Schema) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Schema returns the registered schema for a type name, or nil.
func (r *Registry) Schema(typeName string) *Schema {
	return r.schemas[typeName]
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
