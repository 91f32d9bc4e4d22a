package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates an account already exists for the email.
	ErrDuplicateEmail = errors.New("repository: email already registered")
)
