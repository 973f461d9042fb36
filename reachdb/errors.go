package reachdb

import (
	"fmt"

	"github.com/pkg/errors"
)

// PersistenceError is returned when a database cannot be saved to or loaded from disk.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s reach database %q: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError returns whether the error is a PersistenceError.
func IsPersistenceError(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

func newPersistenceError(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// NewInvalidRecordError is returned when a record violates the database invariants.
func NewInvalidRecordError(reason string) error {
	return errors.Errorf("invalid reach record: %s", reason)
}
