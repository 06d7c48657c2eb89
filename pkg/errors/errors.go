package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeMemory represents graph/memory store errors
	ErrorTypeMemory ErrorType = "memory"
	// ErrorTypeExtraction represents extraction validation errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeLLM represents LLM provider errors
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypePersistence represents storage engine errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
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

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Extraction Errors

// ErrExtractionInvalidShape is returned when the response JSON has the wrong top-level shape
type ErrExtractionInvalidShape struct {
	*BaseError
	Detail string
}

func NewExtractionInvalidShape(detail string, err error) *ErrExtractionInvalidShape {
	return &ErrExtractionInvalidShape{
		BaseError: NewBaseError(ErrorTypeExtraction, fmt.Sprintf("invalid extraction shape: %s", detail), err),
		Detail:    detail,
	}
}

// LLM Errors

// ErrLLMNoResponse is returned when the LLM returns no choices
var ErrLLMNoResponse = NewBaseError(ErrorTypeLLM, "no response from LLM", nil)

// ErrLLMFailed is returned when an LLM request fails after retries
type ErrLLMFailed struct {
	*BaseError
	Model    string
	Attempts int
}

func NewLLMFailed(model string, attempts int, err error) *ErrLLMFailed {
	return &ErrLLMFailed{
		BaseError: NewBaseError(ErrorTypeLLM, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
	}
}

// Persistence Errors

// ErrPersistenceConnectionFailed is returned when the storage engine is unreachable
type ErrPersistenceConnectionFailed struct {
	*BaseError
	URI string
}

func NewPersistenceConnectionFailed(uri string, err error) *ErrPersistenceConnectionFailed {
	return &ErrPersistenceConnectionFailed{
		BaseError: NewBaseError(ErrorTypePersistence, fmt.Sprintf("failed to connect to storage engine: %s", uri), err),
		URI:       uri,
	}
}

// ErrPersistenceQueryFailed is returned when a storage query fails
type ErrPersistenceQueryFailed struct {
	*BaseError
	Operation string
}

func NewPersistenceQueryFailed(operation string, err error) *ErrPersistenceQueryFailed {
	return &ErrPersistenceQueryFailed{
		BaseError: NewBaseError(ErrorTypePersistence, fmt.Sprintf("storage operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled mid-operation
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

// Category returns the error's category. Embedding promotes this onto the
// typed wrappers, so a *ErrLLMFailed categorizes as ErrorTypeLLM.
func (e *BaseError) Category() ErrorType {
	return e.Type
}

type categorized interface {
	Category() ErrorType
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if cat, ok := err.(categorized); ok {
		return cat.Category() == errType
	}
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		inner := wrapped.Unwrap()
		if inner != nil {
			return IsErrorType(inner, errType)
		}
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// Extraction validation failures are deterministic
	if IsErrorType(err, ErrorTypeExtraction) {
		return false
	}
	// Provider and storage failures are worth another attempt
	if IsErrorType(err, ErrorTypeLLM) || IsErrorType(err, ErrorTypePersistence) {
		return true
	}
	return false
}
