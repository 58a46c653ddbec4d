// Package common defines shared sentinel errors used across decksync
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a remote call that never reached the backend.
	// It is the only error class the sync orchestrator recovers from by
	// falling back to the local store.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrRejected marks a remote call that reached the backend and was
	// refused (validation, constraint, permission). Never swallowed.
	ErrRejected = errors.New("rejected by backend")

	// ErrConflict marks an identity conflict discovered during
	// reconciliation adoption.
	ErrConflict = errors.New("conflict")

	// ErrInvalidID marks a malformed or zero-valued identifier.
	ErrInvalidID = errors.New("invalid identifier")
)
