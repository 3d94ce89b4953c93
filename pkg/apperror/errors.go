package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal server error")
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy means another point-mutating operation holds the guard.
	// Callers retry later; it is never a hard failure.
	ErrBusy = errors.New("another scoring operation is in progress")

	ErrUserNotFound      = errors.New("user not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrHintNotFound      = errors.New("hint not found")
	ErrNoFlags           = errors.New("challenge has no flags configured")
	ErrAlreadySolved     = errors.New("challenge already solved")
	ErrHintsNotAllowed   = errors.New("using hints is not allowed while submissions are disabled")
	ErrNotAllowed        = errors.New("operation not allowed while submissions are enabled")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrChallengeNotFound),
		errors.Is(err, ErrHintNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNoFlags),
		errors.Is(err, ErrAlreadySolved),
		errors.Is(err, ErrHintsNotAllowed),
		errors.Is(err, ErrNotAllowed):
		return http.StatusBadRequest
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
