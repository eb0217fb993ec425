package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError for transport mapping
type ErrorKind string

const (
	KindValidation      ErrorKind = "VALIDATION_FAILED"
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindConflict        ErrorKind = "CONFLICT"
	KindInternal        ErrorKind = "INTERNAL"
)

// AppError is the error type returned by services.
// Fields carries per-field validation messages.
type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same kind, so errors.Is(err, ErrForbidden)
// holds for every forbidden error regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Common domain errors
var (
	ErrValidation      = &AppError{Kind: KindValidation, Message: "validation failed"}
	ErrUnauthenticated = &AppError{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrForbidden       = &AppError{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound        = &AppError{Kind: KindNotFound, Message: "resource not found"}
	ErrConflict        = &AppError{Kind: KindConflict, Message: "resource already exists"}
	ErrInternal        = &AppError{Kind: KindInternal, Message: "internal server error"}
)

// Validation builds a ValidationFailed error
func Validation(message string, fields map[string]string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: fields}
}

// FieldError builds a ValidationFailed error for a single field
func FieldError(field, message string) *AppError {
	return Validation(message, map[string]string{field: message})
}

// Unauthenticated builds an Unauthenticated error
func Unauthenticated(message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: message}
}

// Forbidden builds a Forbidden error
func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// NotFound builds a NotFound error
func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// Conflict builds a Conflict error
func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// Internal wraps an unexpected failure
func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, Internal for foreign errors
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
