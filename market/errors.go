package market

import (
	"errors"
	"fmt"
)

var (
	// ErrRoundInProgress is returned when a round is started while another is still running.
	ErrRoundInProgress = errors.New("auction round already in progress")
	// ErrRoundOverrun is returned when a round exceeds its deadline; nothing was committed.
	ErrRoundOverrun = errors.New("auction round overran its deadline")
	// ErrInvalidPriorityWeight is returned when a currency grant would be negative or non-finite.
	ErrInvalidPriorityWeight = errors.New("priority weight must be finite and non-negative")
)

// InvalidConfigurationError reports a configuration value that cannot be used.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (err *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", err.Field, err.Reason)
}

func invalidConfig(field, format string, args ...any) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
