package mapper

import "context"

// Save persists a document together with its dirty associated documents.
// The cascade visits each in-memory document at most once per invocation,
// tracked by object identity so unsaved documents without keys are safe,
// which also makes mutually referencing documents terminate.
//
// Ordering within one document: targets the owner needs keys from
// (StoredKey) are persisted before the owner's write; the owner's record
// (scalar properties, embedded structures, committed removals) is written
// next; shared-key and link targets, which need the owner's key, follow.
//
// There is no rollback: a failure aborts the cascade and leaves documents
// written by earlier steps persisted.
func (m *Mapper) Save(ctx context.Context, d *Document) error {
	if d.schema.Embedded {
		// Embedded documents have no record of their own; persisting one
		// means persisting its owner.
		if d.owner == nil {
			return ErrNoOwner
		}
		return m.Save(ctx, d.owner)
	}

	visited := make(map[*Document]struct{})
	if err := m.save(ctx, d, visited); err != nil {
		return err
	}

	m.logger.Debug("save cascade completed",
		"type", d.schema.Type,
		"key", d.key,
		"documents", len(visited),
	)
	return nil
}

func (m *Mapper) save(ctx context.Context, d *Document, visited map[*Document]struct{}) error {
	if _, ok := visited[d]; ok {
		return nil
	}
	visited[d] = struct{}{}

	if d.deleted {
		return ErrDeleted
	}

	// Validation happens before any write for this document or its branch.
	if err := m.validateTree(d); err != nil {
		return err
	}

	if err := m.ensureKey(ctx, d); err != nil {
		return err
	}

	if err := m.savePrereqs(ctx, d, visited); err != nil {
		return err
	}

	// Shared-key derivation: copies the owner's key onto the target and
	// surfaces conflicts before anything below this document is written.
	for i := range d.schema.Associations {
		desc := &d.schema.Associations[i]
		if desc.Containment != Referenced || desc.KeyStrategy != SharedKey {
			continue
		}
		p := d.singles[desc.Name]
		if !p.dirty || p.value == nil {
			continue
		}
		if _, err := m.deriveKey(ctx, d, desc, p.value); err != nil {
			return err
		}
	}

	structure := structureOf(d)
	body, err := encodeStructure(d.schema.Type, structure)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, d.schema.Bucket, d.key, body); err != nil {
		m.logger.Error("failed to persist document",
			"type", d.schema.Type,
			"key", d.key,
			"error", err,
		)
		return err
	}
	d.isNew = false
	d.raw = structure

	// Embedded mutations ride along with the owner's write.
	for _, p := range d.singles {
		if p.desc.Containment == Embedded {
			p.dirty = false
		}
	}
	for _, c := range d.colls {
		if c.desc.Containment == Embedded {
			c.dirty = false
		}
	}

	m.logger.Debug("persisted document", "type", d.schema.Type, "key", d.key)

	return m.saveDependents(ctx, d, visited)
}

// savePrereqs persists stored-key targets whose keys the owner's record is
// about to reference, then syncs the owner's key-bearing properties from
// their proxies.
func (m *Mapper) savePrereqs(ctx context.Context, d *Document, visited map[*Document]struct{}) error {
	for i := range d.schema.Associations {
		desc := &d.schema.Associations[i]
		if desc.Containment != Referenced || desc.KeyStrategy != StoredKey {
			continue
		}

		if desc.Cardinality == Many {
			c := d.colls[desc.Name]
			if !c.dirty {
				continue
			}
			for _, t := range c.docs {
				if err := m.saveOrKey(ctx, t, visited); err != nil {
					return err
				}
			}
			c.syncStoredKeys()
		} else {
			p := d.singles[desc.Name]
			if !p.dirty {
				continue
			}
			if p.value != nil {
				if err := m.saveOrKey(ctx, p.value, visited); err != nil {
					return err
				}
				d.props[desc.KeyProperty()] = p.value.key
			} else {
				delete(d.props, desc.KeyProperty())
			}
		}
	}
	return nil
}

// saveOrKey persists a new target, or just assigns its key when the target
// is already part of the running cascade (a cycle back-edge).
func (m *Mapper) saveOrKey(ctx context.Context, t *Document, visited map[*Document]struct{}) error {
	if !t.isNew {
		return nil
	}
	if _, ok := visited[t]; ok {
		return m.ensureKey(ctx, t)
	}
	return m.save(ctx, t, visited)
}

// saveDependents runs after the owner's record is written: it cascades
// into every dirty referenced association and commits link edges,
// including buffered removals.
func (m *Mapper) saveDependents(ctx context.Context, d *Document, visited map[*Document]struct{}) error {
	for i := range d.schema.Associations {
		desc := &d.schema.Associations[i]
		if desc.Containment != Referenced {
			continue
		}

		if desc.Cardinality == Many {
			c := d.colls[desc.Name]
			if !c.dirty {
				continue
			}
			for _, t := range c.docs {
				if err := m.save(ctx, t, visited); err != nil {
					return err
				}
			}
			if desc.KeyStrategy == Link || desc.KeyStrategy == OwnKey {
				targets, err := c.flushLinkKeys(ctx)
				if err != nil {
					return err
				}
				if err := m.store.SetLinks(ctx, d.schema.Bucket, d.key, desc.Name, targets); err != nil {
					return err
				}
			}
			c.clearDirty()
		} else {
			p := d.singles[desc.Name]
			if !p.dirty {
				continue
			}
			if p.value != nil {
				if err := m.save(ctx, p.value, visited); err != nil {
					return err
				}
			}
			if desc.KeyStrategy == Link || desc.KeyStrategy == OwnKey {
				var targets []string
				if p.value != nil {
					targets = []string{p.value.key}
				}
				if err := m.store.SetLinks(ctx, d.schema.Bucket, d.key, desc.Name, targets); err != nil {
					return err
				}
			}
			p.dirty = false
		}
	}
	return nil
}

// validateTree validates a document and its embedded children, depth
// first, so the failure names the exact document at fault.
func (m *Mapper) validateTree(d *Document) error {
	if violations := m.validator.Validate(d); len(violations) > 0 {
		return &ValidationError{
			Type:       d.schema.Type,
			Key:        d.key,
			Violations: violations,
		}
	}

	for i := range d.schema.Associations {
		desc := &d.schema.Associations[i]
		if desc.Containment != Embedded {
			continue
		}
		if desc.Cardinality == Many {
			for _, child := range d.colls[desc.Name].docs {
				if err := m.validateTree(child); err != nil {
					return err
				}
			}
		} else if child := d.singles[desc.Name].value; child != nil {
			if err := m.validateTree(child); err != nil {
				return err
			}
		}
	}
	return nil
}
