package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies application errors.
type ErrorCode string

const (
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeNotConfigured ErrorCode = "NOT_CONFIGURED"

	// Vendor-call failures the webhook pipeline branches on.
	CodeProvider      ErrorCode = "PROVIDER_ERROR"
	CodeTranscription ErrorCode = "TRANSCRIPTION_FAILED"
	CodeDescription   ErrorCode = "DESCRIPTION_FAILED"
)

// AppError is the application error type.
type AppError struct {
	Code     ErrorCode
	Message  string
	Provider string // set for CodeProvider errors
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewInvalidInputError(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message}
}

func NewInternalErrorWithCause(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: cause}
}

func NewNotConfiguredError(message string) *AppError {
	return &AppError{Code: CodeNotConfigured, Message: message}
}

// NewProviderError tags a vendor failure with the provider that caused it.
func NewProviderError(provider string, cause error) *AppError {
	return &AppError{
		Code:     CodeProvider,
		Message:  provider + " API call failed",
		Provider: provider,
		Err:      cause,
	}
}

func NewTranscriptionError(cause error) *AppError {
	return &AppError{Code: CodeTranscription, Message: "voice transcription failed", Err: cause}
}

func NewDescriptionError(cause error) *AppError {
	return &AppError{Code: CodeDescription, Message: "image description failed", Err: cause}
}

func code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool      { return code(err) == CodeNotFound }
func IsInvalidInput(err error) bool  { return code(err) == CodeInvalidInput }
func IsUnauthorized(err error) bool  { return code(err) == CodeUnauthorized }
func IsTranscription(err error) bool { return code(err) == CodeTranscription }
func IsDescription(err error) bool   { return code(err) == CodeDescription }

// ProviderName extracts the provider tag from a CodeProvider error,
// or "" when err carries no provider tag.
func ProviderName(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeProvider {
		return appErr.Provider
	}
	return ""
}
