// Package apperr defines the error taxonomy shared by services and handlers.
// Entity-scoped write failures (not found, conflict, validation) propagate to
// the caller; dependency failures on aggregation reads are degraded to empty
// results by the orchestrator instead.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeValidation   Code = "VALIDATION"
	CodeDependency   Code = "DEPENDENCY"
	CodeInternal     Code = "INTERNAL"
)

// HTTPStatus maps an error code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeDependency:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same code, so handlers can test against
// the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

var (
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict   = &Error{Code: CodeConflict, Message: "conflict"}
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrDependency = &Error{Code: CodeDependency, Message: "downstream dependency failed"}
)

func Unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }

func NotFound(msg string) *Error { return &Error{Code: CodeNotFound, Message: msg} }

func Conflict(msg string) *Error { return &Error{Code: CodeConflict, Message: msg} }

func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }

func Internal(msg string) *Error { return &Error{Code: CodeInternal, Message: msg} }

// Dependency wraps a downstream failure (network error, 5xx, timeout) so the
// write-forwarding paths can surface it while read paths degrade.
func Dependency(msg string, cause error) *Error {
	return &Error{Code: CodeDependency, Message: msg, cause: cause}
}
