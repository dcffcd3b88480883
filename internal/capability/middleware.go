package capability

import (
	"log/slog"
	"net/http"

	"github.com/mostrador/backoffice/internal/platform/httpx"
)

// Middleware gates handlers on capabilities of the user in context.
type Middleware struct {
	Table  *Table
	Logger *slog.Logger
}

// Require lets the request through only when the user holds c.
func (m Middleware) Require(c Capability) func(http.Handler) http.Handler {
	return m.RequireAny(c)
}

// RequireAny lets the request through when the user holds any of caps.
func (m Middleware) RequireAny(caps ...Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				httpx.RespondError(w, httpx.WithDetail(httpx.ErrUnauthorized, "Inicie sesión para continuar."))
				return
			}
			if len(caps) == 0 || m.Table.HasAny(user, caps...) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("capability denied", slog.Int64("user_id", user.ID), slog.Int("rol_id", user.RolID), slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, httpx.WithDetail(httpx.ErrForbidden, "No tiene permisos para realizar esta acción."))
		})
	}
}
