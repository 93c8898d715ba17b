// Package sentinel holds the store-level errors that services translate into
// domain errors. Input validation errors belong in pkg/domain-errors.
package sentinel

import "errors"

var (
	// ErrNotFound: the row does not exist, or a referenced zone, center or
	// user does not.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed: a unique key such as a username or zone name is taken.
	ErrAlreadyUsed = errors.New("already used")
)
