package store

import "github.com/inkwellpress/inkwell/internal/errors"

// Sentinel errors. Both match their domain code with errors.Is.
var (
	ErrNotFound      = errors.NotFound("resource not found")
	ErrAlreadyExists = errors.Conflict("resource already exists")
)
