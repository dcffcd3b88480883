// Package console exposes the back-office screens to the browser as JSON
// endpoints, holding list criteria and upstream credentials per session.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mostrador/backoffice/internal/apiclient"
	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/catalogs"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/observability"
	"github.com/mostrador/backoffice/internal/platform/httpx"
	"github.com/mostrador/backoffice/internal/screen"
	"github.com/mostrador/backoffice/internal/shared"
)

// ConfirmHeader must be "true" on destructive requests.
const ConfirmHeader = "X-Confirm"

const maxBodyBytes = 1 << 20

// Deps groups the handler's collaborators.
type Deps struct {
	Logger     *slog.Logger
	APIBaseURL string
	APITimeout time.Duration
	// Transport overrides the upstream transport, nil for the default.
	Transport http.RoundTripper
	Sessions  *shared.SessionManager
	CSRF      *shared.CSRFManager
	Screens   *screen.Registry
	Table     *capability.Table
	Catalogs  *catalogs.Loader
	Guard     *shared.SubmitGuard
	// Redis backs the list staleness guard; nil keeps it in process.
	Redis   *redis.Client
	SeqTTL  time.Duration
	Audit   *shared.AuditLogger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Handler serves the console API.
type Handler struct {
	Deps
	caps capability.Middleware
	// memSeq backs the staleness guard when redis is absent.
	memSeq *memorySequencers
}

// NewHandler constructs a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Table == nil {
		deps.Table = capability.DefaultTable()
	}
	if deps.Catalogs == nil {
		deps.Catalogs = catalogs.NewLoader(nil, deps.Logger)
	}
	if deps.Audit == nil {
		deps.Audit = shared.NewAuditLogger(deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SeqTTL <= 0 && deps.Sessions != nil {
		deps.SeqTTL = deps.Sessions.TTL()
	}
	return &Handler{
		Deps:   deps,
		caps:   capability.Middleware{Table: deps.Table, Logger: deps.Logger},
		memSeq: newMemorySequencers(deps.SeqTTL, deps.Now),
	}
}

// MountRoutes registers the console routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
	})
	r.Get("/api/session", h.showSession)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)

		r.With(h.caps.Require(capability.CatalogsView)).Get("/api/catalogs", h.showCatalogs)

		r.Route("/api/screens/{screen}", func(r chi.Router) {
			r.Use(h.resolveScreen)
			r.Get("/rows", h.listRows)
			r.Post("/filters/reset", h.resetFilters)
			r.Get("/rows/{id}", h.openRow)
			r.Group(func(r chi.Router) {
				r.Use(h.requireEdit)
				r.Get("/draft", h.newDraft)
				r.Post("/rows", h.saveRow)
				r.Put("/rows/{id}", h.saveRow)
				r.Delete("/rows/{id}", h.deleteRow)
			})
		})

		r.With(h.caps.Require(capability.ComprasEdit)).Post("/api/compras/calcular", h.recalculatePurchase)
		r.With(h.caps.Require(capability.TelefonosEdit)).Post("/api/telefonos/sanitizar", h.sanitizePhone)
		r.With(h.caps.Require(capability.TesoreriaReconcile)).Get("/api/tesoreria/conciliacion", h.showReconciliation)
		r.With(h.caps.Require(capability.AuditoriaPurge)).Delete("/api/auditoria", h.purgeAudit)
	})
}

// requireUser exposes the session user to capability checks.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == nil {
			httpx.RespondError(w, httpx.WithDetail(httpx.ErrUnauthorized, msgLoginRequired))
			return
		}
		ctx := capability.ContextWithUser(r.Context(), sess.User())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type screenContextKey struct{}

func (h *Handler) resolveScreen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		def, ok := h.Screens.Lookup(chi.URLParam(r, "screen"))
		if !ok {
			httpx.RespondError(w, httpx.WithDetail(httpx.ErrNotFound, "Pantalla inexistente."))
			return
		}
		h.caps.Require(def.View)(next).ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), screenContextKey{}, def)))
	})
}

func (h *Handler) requireEdit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		def := screenFrom(r.Context())
		if def.Form == nil {
			httpx.Problem(w, http.StatusMethodNotAllowed, "Read Only", msgReadOnly)
			return
		}
		h.caps.Require(def.Edit)(next).ServeHTTP(w, r)
	})
}

func screenFrom(ctx context.Context) *screen.Definition {
	def, _ := ctx.Value(screenContextKey{}).(*screen.Definition)
	return def
}

// client builds the upstream client of the session. Callers must call
// keepCookies before writing the response so rotated cookies are saved.
func (h *Handler) client(r *http.Request, sess *shared.Session) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Options{
		BaseURL:   h.APIBaseURL,
		Timeout:   h.APITimeout,
		Cookies:   sess.UpstreamCookies(),
		Transport: h.Transport,
		Observer:  h.observer(),
		RequestID: requestID(r),
	})
}

// observer avoids handing apiclient a typed nil.
func (h *Handler) observer() apiclient.Observer {
	if h.Metrics == nil {
		return nil
	}
	return h.Metrics
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func keepCookies(sess *shared.Session, client *apiclient.Client) {
	sess.SetUpstreamCookies(client.Cookies())
}

func (h *Handler) sequencer(sess *shared.Session, name string) listing.Sequencer {
	if h.Redis == nil {
		return h.memSeq.get(sess.ID, name)
	}
	return listing.NewRedisSequencer(h.Redis, listing.SequenceKey(sess.ID, name), h.SeqTTL)
}

func (h *Handler) env(ctx context.Context, sess *shared.Session, def *screen.Definition, client *apiclient.Client) (screen.Env, error) {
	env := screen.Env{Remote: client}
	if !def.NeedsCatalogs {
		return env, nil
	}
	ref, err := h.Catalogs.Load(ctx, client, catalogScope(sess))
	if err != nil {
		return env, err
	}
	env.Ref = ref
	return env, nil
}

// catalogScope keys cached reference data by the upstream identity of the
// session.
func catalogScope(sess *shared.Session) string {
	user := sess.User()
	if user == nil {
		return ""
	}
	return fmt.Sprintf("u%d:r%d", user.ID, user.RolID)
}

func (h *Handler) audit(ctx context.Context, sess *shared.Session, action, entity, id string, meta map[string]any) {
	var actor int64
	if user := sess.User(); user != nil {
		actor = user.ID
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["request_id"] = middleware.GetReqID(ctx)
	if err := h.Audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Meta:     meta,
		At:       h.Now(),
	}); err != nil {
		h.Logger.Warn("audit record", slog.Any("error", err))
	}
}
