package repetition

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = errors.New("invalid detector configuration")
	// ErrInvalidSample is matched by every InvalidSampleError.
	ErrInvalidSample = errors.New("invalid sample")
)

// ConfigurationError reports a detector parameter that failed validation.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s=%v %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// InvalidSampleError is returned by Ingest for non-finite input.
// The sample is discarded and the detector is left untouched.
type InvalidSampleError struct {
	Value float64
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("%v: %v is not a finite number", ErrInvalidSample, e.Value)
}

func (e *InvalidSampleError) Unwrap() error {
	return ErrInvalidSample
}
