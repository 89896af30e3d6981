package store

import (
	"errors"
	"fmt"
)

// ErrValidation marks failures caught before any remote call is made.
var ErrValidation = errors.New("validation failed")

var (
	// ErrMissingCorporation is returned when no corporation uuid is available
	// for an operation that must be corporation-scoped.
	ErrMissingCorporation = fmt.Errorf("%w: corporation uuid is required", ErrValidation)

	// ErrMissingEstimate is returned when an estimate import is requested
	// without the identifiers that key the estimate source.
	ErrMissingEstimate = fmt.Errorf("%w: project and estimate uuids are required", ErrValidation)

	// ErrNotFound is returned when a document exists neither remotely nor in
	// the cache.
	ErrNotFound = errors.New("document not found")

	// ErrNothingExceeded is returned when a change order is raised for a
	// purchase order with no exceeded quantities.
	ErrNothingExceeded = errors.New("no item quantity exceeds its estimate")
)
