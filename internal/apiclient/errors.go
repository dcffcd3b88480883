package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies failures talking to the business API.
type Kind int

const (
	// KindTransport covers dial, TLS, timeout and cancellation failures.
	KindTransport Kind = iota + 1
	// KindStatus covers non-2xx responses.
	KindStatus
	// KindDecode covers 2xx responses whose body could not be decoded.
	KindDecode
)

// Fallback messages shown to users when the API does not explain itself.
const (
	MsgTransport    = "No se pudo conectar con el servidor. Intente nuevamente."
	MsgGeneric      = "Ocurrió un error al procesar la solicitud."
	MsgUnauthorized = "La sesión expiró. Vuelva a iniciar sesión."
	MsgForbidden    = "No tiene permisos para realizar esta acción."
	MsgNotFound     = "El registro solicitado no existe."
	MsgDecode       = "La respuesta del servidor no es válida."
)

// ErrInvalidPath is returned, before any request is sent, for paths holding
// "." or ".." segments.
var ErrInvalidPath = errors.New("invalid path")

// Error describes a failed call to the business API.
type Error struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("apiclient: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	case KindDecode:
		return fmt.Sprintf("apiclient: %s %s: decode: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("apiclient: %s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the user-facing text for err. Server messages are returned
// verbatim; everything else maps to a generic fallback.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgGeneric
}

// StatusCode reports the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindStatus {
		return apiErr.Status
	}
	return 0
}

// IsStatus reports whether err is an upstream response with the given status.
func IsStatus(err error, status int) bool {
	return StatusCode(err) == status
}

type errorBody struct {
	Error   string `json:"error"`
	Mensaje string `json:"mensaje"`
	Message string `json:"message"`
}

// statusMessage extracts error/mensaje from a non-2xx body. Error bodies are
// not guaranteed to be JSON.
func statusMessage(status int, body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, candidate := range []string{parsed.Error, parsed.Mensaje, parsed.Message} {
			if msg := strings.TrimSpace(candidate); msg != "" {
				return msg
			}
		}
	}
	switch status {
	case http.StatusUnauthorized:
		return MsgUnauthorized
	case http.StatusForbidden:
		return MsgForbidden
	case http.StatusNotFound:
		return MsgNotFound
	default:
		return MsgGeneric
	}
}
