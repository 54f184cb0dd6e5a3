package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a manual or version does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller may not decide on a manual.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when concurrent appends collide on a decision
	// sequence number. RecordDecision retries it once before surfacing it.
	ErrConflict = errors.New("decision sequence conflict")

	// ErrNotApproved is returned when publishing a version whose derived
	// status is not approved.
	ErrNotApproved = errors.New("not approved")
)

// A StorageError wraps an error from the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
