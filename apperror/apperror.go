package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with a stable code that callers can map to a user-facing reply or an
// HTTP status.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any AppError carrying the same code, so a copy made by WithMessage still
// satisfies errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an AppError.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithMessage returns a copy of the error with a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
	}
}

// From extracts the AppError from err's chain, falling back to ErrInternal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal
}

var (
	ErrDataUnavailable = New(
		"DATA_UNAVAILABLE",
		"Places dataset is missing or unreadable",
		http.StatusServiceUnavailable,
	)

	ErrInvalidInput = New(
		"INVALID_INPUT",
		"Invalid input",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidPage = New(
		"INVALID_PAGE",
		"Invalid page reference",
		http.StatusBadRequest,
	)

	ErrUnknownCategory = New(
		"UNKNOWN_CATEGORY",
		"Unknown category",
		http.StatusBadRequest,
	)

	ErrNotFound = New(
		"NOT_FOUND",
		"Resource not found",
		http.StatusNotFound,
	)

	ErrInternal = New(
		"INTERNAL_ERROR",
		"Internal error",
		http.StatusInternalServerError,
	)
)
