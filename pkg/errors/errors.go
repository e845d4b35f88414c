package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed error with HTTP awareness. The Code identifies the
// category callers branch on; the Message is safe to show to an end user.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by Code so that clones and wrapped copies of a
// predefined error still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Codes shared between the client library, the CLI and the gateway.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidFileType   = "INVALID_FILE_TYPE"
	CodeFileTooSmall      = "FILE_TOO_SMALL"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeOffline           = "OFFLINE"
	CodeServer            = "SERVER_ERROR"
	CodeStillProcessing   = "STILL_PROCESSING"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeInternal          = "INTERNAL_ERROR"
)

// Predefined errors for the client-observable taxonomy.
var (
	ErrValidation        = New(CodeValidation, http.StatusBadRequest, "validation failed")
	ErrInvalidFileType   = New(CodeInvalidFileType, http.StatusBadRequest, "credentials file must be a JSON file")
	ErrFileTooSmall      = New(CodeFileTooSmall, http.StatusBadRequest, "credentials file is too small to be a valid service account key")
	ErrFileTooLarge      = New(CodeFileTooLarge, http.StatusRequestEntityTooLarge, "credentials file exceeds the 10 MB limit")
	ErrOffline           = New(CodeOffline, http.StatusServiceUnavailable, "analysis backend is unreachable; running in offline/demo mode")
	ErrServer            = New(CodeServer, http.StatusBadGateway, "server error, try again later")
	ErrStillProcessing   = New(CodeStillProcessing, http.StatusAccepted, "the analysis is taking longer than expected and may still be completing")
	ErrNotFound          = New(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrUnauthorized      = New(CodeUnauthorized, http.StatusUnauthorized, "the analysis backend refused the request credentials")
	ErrForbidden         = New(CodeForbidden, http.StatusForbidden, "not allowed to act on this analysis")
	ErrConflict          = New(CodeConflict, http.StatusConflict, "the analysis is in a conflicting state")
	ErrMalformedResponse = New(CodeMalformedResponse, http.StatusBadGateway, "analysis backend returned an unexpected response")
	ErrInternal          = New(CodeInternal, http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsCode reports whether err normalises to an *Error carrying code.
func IsCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
