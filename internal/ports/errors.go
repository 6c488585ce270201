package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors surfaced to the annotation core.
var (
	// ErrRateLimited indicates that the backend rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the backend is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the backend returned an
	// unusable response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// backend failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// LLMError represents a failure from the completion backend with
// enough context for the annotator's retry policy to classify it.
type LLMError struct {
	// Model is the identifier of the model that produced the error.
	Model string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error: model=%s, operation=%s, err=%v", e.Model, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failed operation may be retried.
// Only transport-level failures qualify; logic errors do not.
func (e *LLMError) IsRetryable() bool {
	if errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout) {
		return true
	}
	var classified interface{ IsRetryable() bool }
	if errors.As(e.Err, &classified) {
		return classified.IsRetryable()
	}
	return false
}

// NewLLMError creates a new LLMError with the given details.
func NewLLMError(model, operation string, err error) *LLMError {
	return &LLMError{Model: model, Operation: operation, Err: err}
}

// StoreError represents a failure while reading or writing records.
type StoreError struct {
	// Path is the store location involved in the failed operation.
	Path string

	// Operation is the store operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: operation=%s, path=%s, err=%v", e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(path, operation string, err error) *StoreError {
	return &StoreError{Path: path, Operation: operation, Err: err}
}
