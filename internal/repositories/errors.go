package repositories

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when another candidate already owns the email.
	ErrDuplicateEmail = errors.New("candidate email already exists")
)
