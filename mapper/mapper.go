package mapper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacentio/lattice/kv"
)

// Mapper ties a schema registry to a key-value store and mediates every
// document load, save cascade, and destruction.
type Mapper struct {
	store     kv.Store
	registry  *Registry
	validator Validator
	logger    *slog.Logger
}

// New creates a Mapper. A nil logger falls back to slog.Default().
func New(store kv.Store, registry *Registry, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		store:     store,
		registry:  registry,
		validator: SchemaValidator{},
		logger:    logger,
	}
}

// SetValidator replaces the default schema validator.
func (m *Mapper) SetValidator(v Validator) {
	m.validator = v
}

// Registry returns the mapper's schema registry.
func (m *Mapper) Registry() *Registry {
	return m.registry
}

// NewDocument constructs an in-memory document of a registered type. The
// key is absent until assigned or until first save.
func (m *Mapper) NewDocument(typeName string) (*Document, error) {
	schema := m.registry.Schema(typeName)
	if schema == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	return newDocument(m, schema), nil
}

// Find loads a document by key. Returns kv.ErrNotFound when no record
// exists; stale-reference leniency applies only to association traversal.
func (m *Mapper) Find(ctx context.Context, typeName, key string) (*Document, error) {
	schema := m.registry.Schema(typeName)
	if schema == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	if schema.Embedded {
		return nil, fmt.Errorf("%w: embedded type %s has no records of its own", ErrUnknownType, typeName)
	}

	body, err := m.store.Get(ctx, schema.Bucket, key)
	if err != nil {
		return nil, err
	}
	return m.decode(schema, key, body)
}

// Delete removes a document's record from the store. The in-memory object
// survives, marked deleted. Linked targets and link edges pointing at the
// document are left as they are; resolution degrades them to stale
// references.
func (m *Mapper) Delete(ctx context.Context, d *Document) error {
	if d.schema.Embedded {
		return ErrNoOwner
	}
	if d.key != "" {
		if err := m.store.Delete(ctx, d.schema.Bucket, d.key); err != nil {
			return err
		}
	}
	d.deleted = true
	return nil
}

// Reload re-reads a document's record, replacing its properties and
// resetting every association proxy. The proxies themselves are kept, so
// references obtained before the reload stay attached to the document.
func (m *Mapper) Reload(ctx context.Context, d *Document) error {
	if d.schema.Embedded {
		return ErrNoOwner
	}
	if d.key == "" {
		return kv.ErrNotFound
	}

	body, err := m.store.Get(ctx, d.schema.Bucket, d.key)
	if err != nil {
		return err
	}
	structure, err := decodeStructure(d.schema, d.key, body)
	if err != nil {
		return err
	}

	d.props = make(map[string]any)
	d.resetAssociations()
	if err := m.applyStructure(d, structure); err != nil {
		return err
	}
	d.isNew = false
	d.deleted = false
	return nil
}
