package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a create would violate a uniqueness
// constraint, such as a product ID or username that is already taken.
var ErrDuplicate = errors.New("record already exists")
