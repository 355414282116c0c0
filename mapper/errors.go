package mapper

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a type name has no registered schema.
	ErrUnknownType = errors.New("lattice: unknown document type")

	// ErrUnknownProperty is returned when setting a property the schema
	// does not declare.
	ErrUnknownProperty = errors.New("lattice: unknown property")

	// ErrDeleted is returned when saving a document already destroyed.
	ErrDeleted = errors.New("lattice: document is deleted")

	// ErrNoOwner is returned when saving an embedded document that is not
	// attached to any owner.
	ErrNoOwner = errors.New("lattice: embedded document has no owner")

	// ErrTypeMismatch is returned when attaching a document whose type
	// does not match the association's declared target type.
	ErrTypeMismatch = errors.New("lattice: document type does not match association target")
)

// KeyConflictError is returned when a shared-key target already carries a
// key different from its owner's.
type KeyConflictError struct {
	Association string
	OwnerKey    string
	TargetKey   string
}

func (e *KeyConflictError) Error() string {
	return fmt.Sprintf("lattice: shared-key association %q: target key %q conflicts with owner key %q",
		e.Association, e.TargetKey, e.OwnerKey)
}

// Violation describes one failed validation rule on a document.
type Violation struct {
	Property string
	Message  string
}

// ValidationError is returned when a document in a save cascade fails
// validation. It identifies the offending document; nothing is written for
// that document or the branch below it.
type ValidationError struct {
	Type       string
	Key        string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lattice: validation failed for %s %q (%d violations)",
		e.Type, e.Key, len(e.Violations))
}
