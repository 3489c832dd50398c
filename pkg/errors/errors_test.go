package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewNotFoundError("admin user not found")
	if got := err.Error(); got != "[NOT_FOUND] admin user not found" {
		t.Fatalf("Error() = %q", got)
	}

	cause := stderrors.New("connection refused")
	wrapped := NewInternalErrorWithCause("database unavailable", cause)
	if !stderrors.Is(wrapped, cause) {
		t.Fatal("expected cause to be unwrappable")
	}
}

func TestIsHelpersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", NewTranscriptionError(stderrors.New("timeout")))
	if !IsTranscription(err) {
		t.Fatal("expected IsTranscription to match through wrapping")
	}
	if IsDescription(err) {
		t.Fatal("IsDescription matched the wrong code")
	}
	if IsNotFound(stderrors.New("plain")) {
		t.Fatal("IsNotFound matched a non-AppError")
	}
}

func TestProviderName(t *testing.T) {
	err := NewProviderError("claude", stderrors.New("overloaded"))
	if got := ProviderName(err); got != "claude" {
		t.Fatalf("ProviderName = %q", got)
	}
	if got := ProviderName(NewInternalError("x")); got != "" {
		t.Fatalf("ProviderName on non-provider error = %q", got)
	}
}
