package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when an insert loses the race against
// the unique constraint on users.username. The constraint is the
// authoritative safeguard; the application-level availability check is only
// a fast path.
var ErrDuplicateUsername = errors.New("username already exists")
