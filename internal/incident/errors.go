package incident

import "errors"

// Store errors.
var (
	ErrNotFound    = errors.New("incident not found")
	ErrExists      = errors.New("incident already exists")
	ErrNoTitle     = errors.New("incident has no title line")
	ErrInvalidName = errors.New("invalid incident name")
)
