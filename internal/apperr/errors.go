// Package apperr defines the error taxonomy shared by the registry, the graph
// builder and the validation engine.
package apperr

import "errors"

var (
	// ErrDuplicateID is fatal: the registry's uniqueness invariant was broken.
	ErrDuplicateID = errors.New("duplicate id")
	ErrNotFound    = errors.New("not found")
	// ErrCapacity means a sample had no eligible candidates.
	ErrCapacity = errors.New("no eligible candidates")

	ErrReference              = errors.New("dangling reference")
	ErrTemporalOrder          = errors.New("temporal order violation")
	ErrIntegrityRepairFailure = errors.New("integrity repair failed")

	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrAborted       = errors.New("run aborted")
)
