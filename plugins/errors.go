package plugins

import (
	"fmt"

	"github.com/pkg/errors"
)

// ContractViolationError is returned when a plugin hands back malformed data. It aborts the study.
type ContractViolationError struct {
	Plugin string
	Reason string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("plugin %s violated its contract: %s", e.Plugin, e.Reason)
}

// NewContractViolationError returns a ContractViolationError for the named plugin kind.
func NewContractViolationError(plugin, format string, args ...interface{}) error {
	return &ContractViolationError{Plugin: plugin, Reason: fmt.Sprintf(format, args...)}
}

// IsContractViolation returns whether the error, or any error it wraps, is a
// ContractViolationError.
func IsContractViolation(err error) bool {
	var cErr *ContractViolationError
	return errors.As(err, &cErr)
}
