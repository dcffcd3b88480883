package console

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mostrador/backoffice/internal/apiclient"
	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/platform/httpx"
	"github.com/mostrador/backoffice/internal/screen"
	"github.com/mostrador/backoffice/internal/shared"
)

const msgNoUser = "El servidor no devolvió los datos del usuario."

var loginValidator = editor.NewValidator()

type loginForm struct {
	Usuario  string `json:"usuario" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

// loginReply accepts both envelopes the business API has used.
type loginReply struct {
	User    *capability.User `json:"user"`
	Usuario *capability.User `json:"usuario"`
}

type sessionView struct {
	Authenticated bool                    `json:"authenticated"`
	User          *capability.User        `json:"user,omitempty"`
	Capabilities  []capability.Capability `json:"capabilities"`
	Screens       []screen.Entry          `json:"screens"`
	CSRFToken     string                  `json:"csrf_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.Logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session missing"))
		return
	}

	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", msgBadRequest)
		return
	}
	if fields := editor.Validate(loginValidator, form); len(fields) > 0 {
		httpx.ValidationProblem(w, editor.MsgInvalidForm, fields)
		return
	}

	// Credentials from a previous login are never replayed.
	client, err := apiclient.New(apiclient.Options{
		BaseURL:   h.APIBaseURL,
		Timeout:   h.APITimeout,
		Transport: h.Transport,
		Observer:  h.observer(),
		RequestID: requestID(r),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var reply loginReply
	if err := client.PostJSON(r.Context(), apiclient.Path("auth", "login"), form, &reply); err != nil {
		if apiclient.StatusCode(err) == http.StatusBadRequest || apiclient.StatusCode(err) == http.StatusUnauthorized {
			h.Logger.Info("login rejected", slog.String("usuario", form.Usuario))
			httpx.RespondError(w, httpx.WithDetail(httpx.ErrUnauthorized, apiclient.Message(err)))
			return
		}
		h.respondError(w, r, err)
		return
	}
	user := reply.User
	if user == nil {
		user = reply.Usuario
	}
	if user == nil {
		h.Logger.Warn("login reply without user", slog.String("usuario", form.Usuario))
		httpx.RespondError(w, httpx.WithDetail(httpx.ErrUpstream, msgNoUser))
		return
	}

	h.memSeq.forget(sess.ID)
	if err := h.Sessions.Renew(r.Context(), sess); err != nil {
		h.Logger.Error("renew session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	for _, name := range h.Screens.Names() {
		sess.ClearScreen(name)
	}
	sess.SetUser(user)
	keepCookies(sess, client)
	token := h.CSRF.Rotate(sess)
	h.audit(r.Context(), sess, "login", "session", "", map[string]any{"usuario": user.Usuario})

	httpx.JSON(w, http.StatusOK, h.describe(user, token))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if sess.User() != nil {
		client, err := h.client(r, sess)
		if err == nil {
			err = client.PostJSON(r.Context(), apiclient.Path("auth", "logout"), struct{}{}, nil)
		}
		if err != nil {
			h.Logger.Warn("upstream logout", slog.Any("error", err))
		}
		h.audit(r.Context(), sess, "logout", "session", "", nil)
	}
	h.memSeq.forget(sess.ID)
	h.Sessions.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) showSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	token, err := h.CSRF.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.describe(sess.User(), token))
}

func (h *Handler) describe(user *capability.User, token string) sessionView {
	view := sessionView{
		Authenticated: user != nil,
		User:          user,
		Capabilities:  h.Table.Capabilities(user),
		Screens:       h.Screens.Visible(h.Table, user),
		CSRFToken:     token,
	}
	if view.Capabilities == nil {
		view.Capabilities = []capability.Capability{}
	}
	return view
}
