package store

import "errors"

// ErrDuplicateEmail is returned when an insert or update would violate the
// unique email constraint.
var ErrDuplicateEmail = errors.New("email already registered")
