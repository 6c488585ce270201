package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// classifiedError mimics an infrastructure error that carries its own
// retryability verdict, the way provider errors do.
type classifiedError struct {
	retryable bool
}

func (e *classifiedError) Error() string     { return "classified failure" }
func (e *classifiedError) IsRetryable() bool { return e.retryable }

func TestLLMErrorIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited sentinel", ErrRateLimited, true},
		{"service unavailable sentinel", ErrServiceUnavailable, true},
		{"timeout sentinel", ErrTimeout, true},
		{"wrapped sentinel", fmt.Errorf("call failed: %w", ErrRateLimited), true},
		{"invalid response sentinel", ErrInvalidResponse, false},
		{"authentication sentinel", ErrAuthenticationFailed, false},
		{"retryable classified error", &classifiedError{retryable: true}, true},
		{"non-retryable classified error", &classifiedError{retryable: false}, false},
		{"plain error", errors.New("something broke"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llmErr := NewLLMError("qwen-turbo", "complete", tt.err)
			assert.Equal(t, tt.want, llmErr.IsRetryable())
		})
	}
}

func TestLLMErrorUnwrap(t *testing.T) {
	inner := errors.New("backend down")
	llmErr := NewLLMError("qwen-turbo", "complete", inner)

	assert.ErrorIs(t, llmErr, inner)
	assert.Contains(t, llmErr.Error(), "model=qwen-turbo")
	assert.Contains(t, llmErr.Error(), "backend down")
}

func TestStoreErrorUnwrap(t *testing.T) {
	inner := errors.New("permission denied")
	storeErr := NewStoreError("/data/records.jsonl", "write", inner)

	assert.ErrorIs(t, storeErr, inner)
	assert.Contains(t, storeErr.Error(), "/data/records.jsonl")
	assert.Contains(t, storeErr.Error(), "operation=write")
}
