package mapper

import (
	"context"
	"fmt"
	"reflect"
)

// Single mediates access to a one-cardinality association: lazy load on
// first Get, mutation buffering until the owner's next save.
type Single struct {
	owner *Document
	desc  *Descriptor

	loaded bool
	dirty  bool
	value  *Document
}

func newSingle(owner *Document, desc *Descriptor) *Single {
	// A freshly constructed document has nothing to resolve; proxies on
	// documents decoded from the store are flipped back to unloaded.
	return &Single{owner: owner, desc: desc, loaded: true}
}

// Get returns the associated document, resolving it on first access.
// A stale reference (target deleted out-of-band) yields nil, not an error.
func (p *Single) Get(ctx context.Context) (*Document, error) {
	if p.loaded {
		return p.value, nil
	}

	if p.desc.Containment == Embedded {
		// Materialized when the owner is decoded; after a Reload the value
		// is rebuilt from the owner's retained record structure.
		if sub, ok := p.owner.raw[p.desc.Name].(map[string]any); ok {
			m := p.owner.m
			target := m.registry.Schema(p.desc.TargetType)
			if target == nil {
				return nil, fmt.Errorf("%w: %s", ErrUnknownType, p.desc.TargetType)
			}
			child, err := m.deserializeEmbedded(target, sub, p.owner)
			if err != nil {
				return nil, err
			}
			p.value = child
		}
		p.loaded = true
		return p.value, nil
	}

	m := p.owner.m
	key, err := m.readKey(ctx, p.owner, p.desc)
	if err != nil {
		return nil, err
	}
	if key == "" {
		p.loaded = true
		return nil, nil
	}

	doc, err := m.fetch(ctx, p.desc.TargetType, key)
	if err != nil {
		return nil, err
	}
	p.value = doc
	p.loaded = true
	return doc, nil
}

// Set replaces the association's value and marks it dirty. For StoredKey
// the owner's key property is updated immediately when the target already
// has a key; for SharedKey the owner's key is copied onto an unkeyed
// target. Passing nil clears the association.
func (p *Single) Set(doc *Document) error {
	if doc != nil && doc.schema.Type != p.desc.TargetType {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, doc.schema.Type, p.desc.TargetType)
	}

	if p.desc.Containment == Embedded {
		// Detach the previous value unless it already moved owners.
		if p.value != nil && p.value.owner == p.owner {
			p.value.setOwner(nil)
		}
		if doc != nil {
			doc.setOwner(p.owner)
		}
		p.value = doc
		p.loaded = true
		p.dirty = true
		return nil
	}

	p.value = doc
	p.loaded = true
	p.dirty = true

	switch p.desc.KeyStrategy {
	case StoredKey:
		if doc != nil && doc.key != "" {
			p.owner.props[p.desc.KeyProperty()] = doc.key
		} else {
			// Unkeyed targets are keyed at save; the property follows then.
			delete(p.owner.props, p.desc.KeyProperty())
		}
	case SharedKey:
		if doc != nil && doc.key == "" && p.owner.key != "" {
			doc.key = p.owner.key
		}
	}
	return nil
}

// Reload discards the cached value; the next Get re-resolves from the
// store, or for embedded values from the owner's record structure as of
// its last load or save. Required after editing a stored-key property
// directly, since the proxy is otherwise the source of truth.
func (p *Single) Reload() {
	p.loaded = false
	p.dirty = false
	p.value = nil
}

// Dirty reports whether the association has unsaved changes.
func (p *Single) Dirty() bool {
	return p.dirty
}

// Collection mediates access to a many-cardinality association: an
// ordered, append-biased sequence with set-like deduplication by key at
// save time. Removals of persisted link targets are buffered in a
// pending-removal set and committed with the owner's next save.
type Collection struct {
	owner *Document
	desc  *Descriptor

	loaded  bool
	dirty   bool
	docs    []*Document
	removed map[string]struct{}
}

func newCollection(owner *Document, desc *Descriptor) *Collection {
	return &Collection{
		owner:   owner,
		desc:    desc,
		loaded:  true,
		removed: make(map[string]struct{}),
	}
}

// Append adds a document to the end of the collection and marks it dirty.
// For StoredKey a keyed target's key is appended to the owner's key
// property immediately; unkeyed targets contribute their key at save.
func (c *Collection) Append(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: cannot append nil", ErrTypeMismatch)
	}
	if doc.schema.Type != c.desc.TargetType {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, doc.schema.Type, c.desc.TargetType)
	}

	if c.desc.Containment == Embedded {
		doc.setOwner(c.owner)
	}

	c.docs = append(c.docs, doc)
	c.dirty = true
	if doc.key != "" {
		delete(c.removed, doc.key)
	}

	if c.desc.Containment == Referenced && c.desc.KeyStrategy == StoredKey && doc.key != "" {
		keyProp := c.desc.KeyProperty()
		c.owner.props[keyProp] = append(c.owner.StringList(keyProp), doc.key)
	}
	return nil
}

// Remove takes a document out of the collection, matching by identity
// first and by key second. StoredKey removal updates the owner's key
// property immediately; link removal is buffered until the next save. The
// target record itself is never deleted, only the relationship edge.
func (c *Collection) Remove(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: cannot remove nil", ErrTypeMismatch)
	}

	for i, e := range c.docs {
		if e == doc || (doc.key != "" && e.key == doc.key) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			break
		}
	}
	c.dirty = true

	if c.desc.Containment == Embedded {
		doc.setOwner(nil)
		return nil
	}

	switch c.desc.KeyStrategy {
	case StoredKey:
		if doc.key != "" {
			keyProp := c.desc.KeyProperty()
			keys := c.owner.StringList(keyProp)
			kept := keys[:0]
			for _, k := range keys {
				if k != doc.key {
					kept = append(kept, k)
				}
			}
			c.owner.props[keyProp] = kept
		}
	case OwnKey, Link:
		if doc.key != "" {
			c.removed[doc.key] = struct{}{}
		}
	}
	return nil
}

// All returns the collection's documents, loading them on first access:
// embedded structures deserialize from the owner's record, stored keys are
// batch-fetched in property order, links are batch-fetched in store order.
// Buffered additions follow the persisted sequence; an addition whose key
// matches a persisted record supersedes the fetched copy.
func (c *Collection) All(ctx context.Context) ([]*Document, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	out := make([]*Document, len(c.docs))
	copy(out, c.docs)
	return out, nil
}

// Count returns the collection's length, loading if necessary.
func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := c.load(ctx); err != nil {
		return 0, err
	}
	return len(c.docs), nil
}

// Keys returns the keys of the cached documents, skipping unkeyed ones.
func (c *Collection) Keys() []string {
	keys := make([]string, 0, len(c.docs))
	for _, d := range c.docs {
		if d.key != "" {
			keys = append(keys, d.key)
		}
	}
	return keys
}

// Contains reports whether the cached sequence holds doc, by identity or
// by key.
func (c *Collection) Contains(doc *Document) bool {
	for _, e := range c.docs {
		if e == doc || (doc.key != "" && e.key == doc.key) {
			return true
		}
	}
	return false
}

// Equal reports value-equality with another collection: the same ordered
// sequence of documents by key and content. Both collections must already
// be loaded.
func (c *Collection) Equal(other *Collection) bool {
	if other == nil || len(c.docs) != len(other.docs) {
		return false
	}
	for i := range c.docs {
		a, b := c.docs[i], other.docs[i]
		if a.key != b.key {
			return false
		}
		if !reflect.DeepEqual(structureOf(a), structureOf(b)) {
			return false
		}
	}
	return true
}

// Reload discards cache and pending removals; the next access re-resolves
// from the store. Required after editing a stored-key property directly.
func (c *Collection) Reload() {
	c.loaded = false
	c.dirty = false
	c.docs = nil
	c.removed = make(map[string]struct{})
}

// Dirty reports whether the collection has unsaved changes.
func (c *Collection) Dirty() bool {
	return c.dirty
}

// load resolves the persisted sequence and merges buffered additions after
// it, deduplicating by key.
func (c *Collection) load(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	pending := c.docs
	var fetched []*Document

	if c.desc.Containment == Referenced {
		m := c.owner.m
		keys, err := m.readKeys(ctx, c.owner, c.desc)
		if err != nil {
			return err
		}
		kept := make([]string, 0, len(keys))
		for _, k := range keys {
			if _, gone := c.removed[k]; !gone {
				kept = append(kept, k)
			}
		}
		fetched, err = m.fetchMany(ctx, c.desc.TargetType, kept)
		if err != nil {
			return err
		}
	} else if list, ok := c.owner.raw[c.desc.Name].([]any); ok {
		// Embedded collections are materialized at decode; after a Reload
		// they are rebuilt from the owner's retained record structure.
		m := c.owner.m
		target := m.registry.Schema(c.desc.TargetType)
		if target == nil {
			return fmt.Errorf("%w: %s", ErrUnknownType, c.desc.TargetType)
		}
		for _, raw := range list {
			sub, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			child, err := m.deserializeEmbedded(target, sub, c.owner)
			if err != nil {
				return err
			}
			fetched = append(fetched, child)
		}
	}

	// Merge buffered additions after the persisted sequence. On a key
	// collision the buffered instance wins: it may carry unsaved edits.
	buffered := make(map[string]bool, len(pending))
	for _, d := range pending {
		if d.key != "" {
			buffered[d.key] = true
		}
	}
	docs := make([]*Document, 0, len(fetched)+len(pending))
	for _, d := range fetched {
		if d.key != "" && buffered[d.key] {
			continue
		}
		docs = append(docs, d)
	}
	seen := make(map[string]bool, len(pending))
	for _, d := range pending {
		if d.key != "" && seen[d.key] {
			continue
		}
		docs = append(docs, d)
		if d.key != "" {
			seen[d.key] = true
		}
	}

	c.docs = docs
	c.loaded = true
	return nil
}

// syncStoredKeys rewrites the owner's stored-key property from the proxy.
// A loaded proxy is the source of truth; an unloaded one contributes its
// buffered additions on top of the property's current contents.
func (c *Collection) syncStoredKeys() {
	keyProp := c.desc.KeyProperty()
	if c.loaded {
		c.owner.props[keyProp] = dedupeKeys(c.Keys())
		return
	}
	keys := c.owner.StringList(keyProp)
	for _, d := range c.docs {
		if d.key != "" {
			keys = append(keys, d.key)
		}
	}
	c.owner.props[keyProp] = dedupeKeys(keys)
}

// flushLinkKeys computes the link edge set to persist. A loaded proxy is
// the source of truth; an unloaded one merges buffered additions and
// pending removals into the persisted edge set.
func (c *Collection) flushLinkKeys(ctx context.Context) ([]string, error) {
	if c.loaded {
		return dedupeKeys(c.Keys()), nil
	}

	existing, err := c.owner.m.readKeys(ctx, c.owner, c.desc)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(existing)+len(c.docs))
	for _, k := range existing {
		if _, gone := c.removed[k]; !gone {
			keys = append(keys, k)
		}
	}
	keys = append(keys, c.Keys()...)
	return dedupeKeys(keys), nil
}

// clearDirty resets mutation buffers after a successful save.
func (c *Collection) clearDirty() {
	c.dirty = false
	c.removed = make(map[string]struct{})
}
