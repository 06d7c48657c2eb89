package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsErrorTypeOnWrappers(t *testing.T) {
	llmErr := NewLLMFailed("model-a", 3, errors.New("connection refused"))
	if !IsErrorType(llmErr, ErrorTypeLLM) {
		t.Error("ErrLLMFailed must categorize as LLM")
	}
	if IsErrorType(llmErr, ErrorTypePersistence) {
		t.Error("ErrLLMFailed must not categorize as persistence")
	}

	cfgErr := NewConfigMissingRequired("LITELLM_URL")
	if !IsErrorType(cfgErr, ErrorTypeConfig) {
		t.Error("ErrConfigMissingRequired must categorize as config")
	}
}

func TestIsErrorTypeThroughWrapping(t *testing.T) {
	inner := NewPersistenceQueryFailed("save snapshot", errors.New("timeout"))
	wrapped := fmt.Errorf("startup failed: %w", inner)

	if !IsErrorType(wrapped, ErrorTypePersistence) {
		t.Error("categorization must see through fmt.Errorf wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{NewLLMFailed("m", 3, errors.New("x")), true},
		{NewPersistenceConnectionFailed("bolt://x", errors.New("x")), true},
		{NewExtractionInvalidShape("top-level object", errors.New("x")), false},
		{NewContextCancelled("apply", errors.New("x")), false},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestBaseErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := NewLLMFailed("model-a", 3, inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is must reach the wrapped cause")
	}
	if msg := err.Error(); msg == "" {
		t.Error("error message empty")
	}
}
