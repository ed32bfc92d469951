package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects the write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint rejects the write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrOverlap is returned when an admission finds an ACTIVE reservation it was not told to cancel.
	ErrOverlap = errors.New("persistence: overlapping active reservation")
	// ErrBusy is returned when the database could not serialize the transaction; the caller may retry.
	ErrBusy = errors.New("persistence: database busy")
)
