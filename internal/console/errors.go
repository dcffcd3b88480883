package console

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mostrador/backoffice/internal/apiclient"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/platform/httpx"
	"github.com/mostrador/backoffice/internal/screen"
	"github.com/mostrador/backoffice/internal/shared"
)

const (
	msgLoginRequired = "Inicie sesión para continuar."
	msgSuperseded    = "La búsqueda fue reemplazada por una más reciente."
	msgInFlight      = "Ya se está guardando este registro. Espere un momento."
	msgNotConfirmed  = "Confirme la eliminación para continuar."
	msgReadOnly      = "Esta pantalla es de solo lectura."
	msgBadRequest    = "La solicitud no es válida."
)

// respondError maps domain and upstream failures to problem responses.
// Upstream messages reach the user verbatim.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *editor.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.ValidationProblem(w, verr.Message, verr.Fields)
	case errors.Is(err, screen.ErrSuperseded):
		httpx.Problem(w, http.StatusConflict, "Superseded", msgSuperseded)
	case errors.Is(err, shared.ErrSubmitInFlight), errors.Is(err, editor.ErrBusy):
		httpx.RespondError(w, httpx.WithDetail(httpx.ErrConflict, msgInFlight))
	case errors.Is(err, editor.ErrIllegalTransition):
		httpx.RespondError(w, httpx.WithDetail(httpx.ErrConflict, apiclient.MsgGeneric))
	case errors.Is(err, editor.ErrNotConfirmed):
		httpx.Problem(w, http.StatusPreconditionRequired, "Confirmation Required", msgNotConfirmed)
	case errors.Is(err, screen.ErrReadOnly):
		httpx.Problem(w, http.StatusMethodNotAllowed, "Read Only", msgReadOnly)
	default:
		h.respondUpstream(w, r, err)
	}
}

func (h *Handler) respondUpstream(w http.ResponseWriter, r *http.Request, err error) {
	httpx.RespondError(w, h.upstreamFailure(r, err))
}

// upstreamFailure classifies err into an httpx sentinel carrying the
// message the user sees.
func (h *Handler) upstreamFailure(r *http.Request, err error) error {
	if errors.Is(err, apiclient.ErrInvalidPath) {
		return httpx.WithDetail(httpx.ErrNotFound, apiclient.MsgNotFound)
	}
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		h.Logger.Error("console request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		return err
	}
	msg := apiclient.Message(err)
	switch apiErr.Kind {
	case apiclient.KindTransport:
		h.Logger.Warn("upstream unreachable", slog.String("path", apiErr.Path), slog.Any("error", err))
		return httpx.WithDetail(httpx.ErrUpstream, apiclient.MsgTransport)
	case apiclient.KindDecode:
		h.Logger.Warn("upstream response not decodable", slog.String("path", apiErr.Path), slog.Any("error", err))
		return httpx.WithDetail(httpx.ErrUpstream, apiclient.MsgDecode)
	}
	switch status := apiErr.Status; status {
	case http.StatusUnauthorized:
		return httpx.WithDetail(httpx.ErrUnauthorized, msg)
	case http.StatusForbidden:
		return httpx.WithDetail(httpx.ErrForbidden, msg)
	case http.StatusNotFound:
		return httpx.WithDetail(httpx.ErrNotFound, msg)
	case http.StatusConflict:
		return httpx.WithDetail(httpx.ErrConflict, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return httpx.WithDetail(httpx.ErrValidation, msg)
	default:
		h.Logger.Warn("upstream error", slog.String("path", apiErr.Path), slog.Int("status", status), slog.String("message", msg))
		return httpx.WithDetail(httpx.ErrUpstream, msg)
	}
}
