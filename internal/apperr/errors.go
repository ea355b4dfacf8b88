package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// Synchronization stage errors, wrapped around the underlying store
	// failure so callers can tell which stage aborted.
	ErrDirectoryFetch = errors.New("directory fetch failed")
	ErrEdgeReplace    = errors.New("edge replace failed")
)
