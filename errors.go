package tracking

import (
	"errors"
	"fmt"
)

// Error represents a tracking library error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for tracking operations.
const (
	// ErrCodeNoData indicates no persisted data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates a call argument failed validation.
	// Rejects that one call; the tracker is otherwise unaffected.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates bad or missing required configuration.
	// Fatal to initialization; the tracker remains uninitialized.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodePersistence indicates the storage backend failed.
	// The pipeline degrades to memory-only operation rather than failing calls.
	ErrCodePersistence = "PERSISTENCE_ERROR"

	// ErrCodeDelivery indicates batch delivery failed.
	// Absorbed inside the pipeline; never surfaced to tracking calls.
	ErrCodeDelivery = "DELIVERY_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned when a storage key holds no record.
	// This is not necessarily an error condition: absence of persisted
	// state on load is treated as first run.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrInvalidConfiguration is returned when tracker configuration is invalid.
	ErrInvalidConfiguration = &Error{
		Code:    ErrCodeConfiguration,
		Message: "invalid tracker configuration",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	var trackingErr *Error
	if errors.As(err, &trackingErr) {
		return trackingErr.Code == ErrCodeNoData
	}
	return errors.Is(err, ErrNoData)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	var trackingErr *Error
	return errors.As(err, &trackingErr) && trackingErr.Code == ErrCodeValidation
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	var trackingErr *Error
	return errors.As(err, &trackingErr) && trackingErr.Code == ErrCodeConfiguration
}
