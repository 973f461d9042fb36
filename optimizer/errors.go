package optimizer

import (
	"fmt"

	"github.com/pkg/errors"
)

// PreconditionError is returned when an optimization is requested that cannot run, either because
// there is nothing to optimize or because the parameters are invalid. No work has been done when
// it is returned.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "cannot optimize: " + e.Reason
}

// NewPreconditionError returns a PreconditionError with a formatted reason.
func NewPreconditionError(format string, args ...interface{}) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// IsPreconditionError returns whether the error is a PreconditionError.
func IsPreconditionError(err error) bool {
	var pErr *PreconditionError
	return errors.As(err, &pErr)
}
