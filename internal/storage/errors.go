package storage

import "errors"

// ErrNotFound is returned when a cached page is missing or older than the
// requested age.
var ErrNotFound = errors.New("storage: not found")
