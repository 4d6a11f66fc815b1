// Package errors defines the sentinel errors shared across the engine and
// the HTTP status each one maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDuplicateDocument = errors.New("duplicate document id")
	ErrInvalidInput      = errors.New("invalid input")
	ErrQuery             = errors.New("query error")
	ErrIndexNotBuilt     = errors.New("index not built")
	ErrEmptyRelevanceSet = errors.New("empty relevance set")
	ErrCorruptIndex      = errors.New("corrupt index")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

// AppError pins an explicit status to a sentinel. HTTPStatusCode prefers it
// over the sentinel's default mapping.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

var statusBySentinel = []struct {
	sentinel error
	status   int
}{
	{ErrDocumentNotFound, http.StatusNotFound},
	{ErrDuplicateDocument, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrQuery, http.StatusBadRequest},
	{ErrEmptyRelevanceSet, http.StatusUnprocessableEntity},
	{ErrIndexNotBuilt, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusGatewayTimeout},
	{ErrCorruptIndex, http.StatusInternalServerError},
}

// HTTPStatusCode maps err to a response status. Unknown errors are 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.sentinel) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether err maps to a 4xx status.
func IsClientError(err error) bool {
	code := HTTPStatusCode(err)
	return code >= 400 && code < 500
}
