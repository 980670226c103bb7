package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDuplicateEmail  = errors.New("email already exists")

	// ErrVersionConflict is returned by compare-and-swap writes when another
	// writer committed first.
	ErrVersionConflict = errors.New("version conflict")
)
