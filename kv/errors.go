package kv

import "errors"

var (
	// ErrNotFound is returned when no record exists under a (bucket, key).
	ErrNotFound = errors.New("lattice: record not found")

	// ErrBadBucket is returned when a bucket name is empty or malformed.
	ErrBadBucket = errors.New("lattice: invalid bucket name")

	// ErrBadKey is returned when a key is empty.
	ErrBadKey = errors.New("lattice: invalid key")
)
