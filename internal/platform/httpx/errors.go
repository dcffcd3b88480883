// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by console handlers.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream api failure")
)

type detailedError struct {
	kind   error
	detail string
}

func (e *detailedError) Error() string { return e.kind.Error() + ": " + e.detail }

func (e *detailedError) Unwrap() error { return e.kind }

// WithDetail attaches the message shown to the user to a sentinel error.
func WithDetail(kind error, detail string) error {
	return &detailedError{kind: kind, detail: detail}
}

// DetailOf returns the user message attached by WithDetail, or "".
func DetailOf(err error) string {
	var d *detailedError
	if errors.As(err, &d) {
		return d.detail
	}
	return ""
}

// RespondError maps sentinel errors to HTTP responses using RFC7807. Only
// details attached with WithDetail reach the client.
func RespondError(w http.ResponseWriter, err error) {
	detail := DetailOf(err)
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", detail)
	case errors.Is(err, ErrValidation):
		ValidationProblem(w, detail, nil)
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", detail)
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
	case errors.Is(err, ErrUpstream):
		Problem(w, http.StatusBadGateway, "Upstream Error", detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
