package repository

import "errors"

// Sentinel errors shared by all repositories. Services match on these with
// errors.Is instead of depending on pgx error values.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrActiveSessionExists is returned by SessionRepository.Create when the
	// identity already holds a non-terminal session. The caller should fetch
	// and return the existing session.
	ErrActiveSessionExists = errors.New("active session already exists")
)
