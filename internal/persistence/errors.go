package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same identifier already exists.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrRangeConflict is returned by ReserveBlock when the requested range is
	// already blocked for the unit.
	ErrRangeConflict = errors.New("persistence: range conflict")
	// ErrConstraintViolation is returned when a record violates a store constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
