package journal

import "errors"

// Sentinel errors for journal operations.
var (
	// ErrNotFound is returned when an exchange does not exist or belongs
	// to another tenant.
	ErrNotFound = errors.New("exchange not found")

	// ErrConflict is returned when an exchange with the given ID already exists.
	ErrConflict = errors.New("exchange already exists")

	// ErrDisabled is returned by exchange queries when no journal is
	// configured.
	ErrDisabled = errors.New("exchange journal is disabled")
)
