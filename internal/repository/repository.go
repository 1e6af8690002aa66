package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert collides with a uniqueness
	// constraint. Callers decide whether to retry with a disambiguated
	// value or look the existing record up.
	ErrDuplicate = errors.New("duplicate record")
)
