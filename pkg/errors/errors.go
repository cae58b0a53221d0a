// Package errors holds the error taxonomy of the explorer. Failures are
// caught where the explorer calls out to a data source or search service
// and turned into state flags; the layout and render core never fails.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeData represents a missing or malformed graph payload
	ErrorTypeData ErrorType = "data"
	// ErrorTypeSearch represents search service failures
	ErrorTypeSearch ErrorType = "search"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeTransport represents live connection errors
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeCondition marks signals that are not failures
	ErrorTypeCondition ErrorType = "condition"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category. Typed errors embedding *BaseError
// inherit it, which is what IsErrorType matches on.
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ErrNoResults signals a search that matched nothing. It is shown to the
// user but is not a failure.
var ErrNoResults = NewBaseError(ErrorTypeCondition, "no results", nil)

// ErrStale signals a response superseded by a newer request. It is
// discarded silently.
var ErrStale = NewBaseError(ErrorTypeCondition, "stale response", nil)

// Data Errors

// ErrDataFetchFailed is returned when the graph payload cannot be loaded
type ErrDataFetchFailed struct {
	*BaseError
	Source string
}

func NewDataError(source string, err error) *ErrDataFetchFailed {
	return &ErrDataFetchFailed{
		BaseError: NewBaseError(ErrorTypeData, fmt.Sprintf("failed to load graph from %s", source), err),
		Source:    source,
	}
}

// Search Errors

// ErrSearchFailed is returned when the search service fails
type ErrSearchFailed struct {
	*BaseError
	Query  string
	Status int
}

func NewSearchError(query string, status int, err error) *ErrSearchFailed {
	msg := fmt.Sprintf("search failed for %q", query)
	if status != 0 {
		msg = fmt.Sprintf("search failed for %q (status %d)", query, status)
	}
	return &ErrSearchFailed{
		BaseError: NewBaseError(ErrorTypeSearch, msg, err),
		Query:     query,
		Status:    status,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Transport Errors

// ErrTransportFailed is returned when a live client connection fails
type ErrTransportFailed struct {
	*BaseError
	SessionID string
}

func NewTransportError(sessionID string, err error) *ErrTransportFailed {
	return &ErrTransportFailed{
		BaseError: NewBaseError(ErrorTypeTransport, fmt.Sprintf("session %s", sessionID), err),
		SessionID: sessionID,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var kinded interface{ Kind() ErrorType }
	if errors.As(err, &kinded) {
		return kinded.Kind() == errType
	}
	return false
}

// UserMessage returns a short message fit for a status line.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoResults):
		return "No matching articles or categories"
	case IsErrorType(err, ErrorTypeSearch):
		return "Search is unavailable right now"
	case IsErrorType(err, ErrorTypeData):
		return "Could not load the knowledge graph"
	default:
		return "Something went wrong"
	}
}
