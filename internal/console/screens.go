package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mostrador/backoffice/internal/apiclient"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/platform/httpx"
	"github.com/mostrador/backoffice/internal/screen"
	"github.com/mostrador/backoffice/internal/shared"
)

// Query parameters that move the cursor instead of filtering.
const (
	paramPage     = "page"
	paramPageSize = "page_size"
	paramSort     = "sort"
	paramDir      = "dir"
)

type listResponse struct {
	screen.Page
	Pagination shared.Pagination `json:"pagination"`
}

type saveResponse struct {
	Changed bool          `json:"changed"`
	List    *listResponse `json:"list,omitempty"`
}

// filtersOf returns the screen criteria stored in the session, or the
// screen defaults.
func filtersOf(sess *shared.Session, def *screen.Definition) *listing.Filters {
	f := def.NewFilters()
	if d, ok := sess.Screen(def.Name); ok {
		f.Restore(d)
	}
	return f
}

// parseQuery turns list query parameters into criteria changes. dir alone
// flips the current sort column.
func parseQuery(values url.Values, f *listing.Filters) (screen.Query, error) {
	q := screen.Query{Filters: map[string]string{}}
	fields := editor.FieldErrors{}
	for key, vals := range values {
		switch key {
		case paramPage, paramPageSize:
			n, err := strconv.Atoi(values.Get(key))
			if err != nil || n < 1 {
				fields[key] = "Debe ser un número entero positivo."
				continue
			}
			if key == paramPage {
				q.Page = n
			} else {
				q.PageSize = n
			}
		case paramSort:
			q.Sort = values.Get(key)
		case paramDir:
			q.Dir = values.Get(key)
		default:
			if f.Known(key) && len(vals) > 0 {
				q.Filters[key] = vals[len(vals)-1]
			}
		}
	}
	if len(fields) > 0 {
		return q, &editor.ValidationError{Message: screen.MsgInvalidFilters, Fields: fields}
	}
	if q.Sort == "" && q.Dir != "" {
		q.Sort, _ = f.Sort()
	}
	return q, nil
}

func (h *Handler) listRows(w http.ResponseWriter, r *http.Request) {
	def := screenFrom(r.Context())
	sess := shared.SessionFromContext(r.Context())

	f := filtersOf(sess, def)
	q, err := parseQuery(r.URL.Query(), f)
	if err == nil {
		err = def.Apply(f, q)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	list, err := h.load(r.Context(), sess, def, f, client)
	keepCookies(sess, client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) resetFilters(w http.ResponseWriter, r *http.Request) {
	def := screenFrom(r.Context())
	sess := shared.SessionFromContext(r.Context())
	sess.ClearScreen(def.Name)

	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	list, err := h.load(r.Context(), sess, def, def.NewFilters(), client)
	keepCookies(sess, client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

// load runs one guarded load and stores the criteria that produced it.
// Superseded or failed loads leave the stored criteria untouched.
func (h *Handler) load(ctx context.Context, sess *shared.Session, def *screen.Definition, f *listing.Filters, client *apiclient.Client) (*listResponse, error) {
	page, err := def.Load(ctx, client, f, h.sequencer(sess, def.Name))
	if err != nil {
		if errors.Is(err, screen.ErrSuperseded) {
			h.Metrics.ObserveSuperseded(def.Name)
		}
		return nil, err
	}
	sess.SetScreen(def.Name, page.Filters)
	return &listResponse{
		Page:       page,
		Pagination: shared.NewPagination(page.Page, page.PageSize, page.Total),
	}, nil
}

func (h *Handler) openRow(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) newDraft(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, "")
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request, id string) {
	def := screenFrom(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if def.Form == nil {
		h.respondError(w, r, screen.ErrReadOnly)
		return
	}
	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	env, err := h.env(r.Context(), sess, def, client)
	var draft screen.Draft
	if err == nil {
		draft, err = def.Open(r.Context(), env, id)
	}
	keepCookies(sess, client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

func (h *Handler) saveRow(w http.ResponseWriter, r *http.Request) {
	def := screenFrom(r.Context())
	sess := shared.SessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", msgBadRequest)
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", msgBadRequest)
		return
	}

	release, err := h.acquire(r.Context(), sess, def, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer release()

	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	env, err := h.env(r.Context(), sess, def, client)
	var outcome editor.Outcome
	if err == nil {
		outcome, err = def.Save(r.Context(), env, id, raw)
	}
	if err != nil {
		keepCookies(sess, client)
		h.respondError(w, r, err)
		return
	}

	action := "update"
	status := http.StatusOK
	if id == "" {
		action = "create"
		status = http.StatusCreated
	}
	h.afterWrite(r.Context(), sess, def, action, id)
	resp := saveResponse{Changed: outcome.Changed}
	if outcome.Changed {
		resp.List = h.reload(r.Context(), sess, def, client)
	}
	keepCookies(sess, client)
	httpx.JSON(w, status, resp)
}

func (h *Handler) deleteRow(w http.ResponseWriter, r *http.Request) {
	def := screenFrom(r.Context())
	sess := shared.SessionFromContext(r.Context())
	id := chi.URLParam(r, "id")
	confirmed := r.Header.Get(ConfirmHeader) == "true"

	release, err := h.acquire(r.Context(), sess, def, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer release()

	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	outcome, err := def.Delete(r.Context(), screen.Env{Remote: client}, id, confirmed)
	if err != nil {
		keepCookies(sess, client)
		h.respondError(w, r, err)
		return
	}
	h.afterWrite(r.Context(), sess, def, "delete", id)
	resp := saveResponse{Changed: outcome.Changed, List: h.reload(r.Context(), sess, def, client)}
	keepCookies(sess, client)
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) acquire(ctx context.Context, sess *shared.Session, def *screen.Definition, id string) (func(), error) {
	lockID := id
	if lockID == "" {
		lockID = "new"
	}
	release, err := h.Guard.Acquire(ctx, shared.SubmitLockKey(sess.ID, def.Name, lockID))
	if errors.Is(err, shared.ErrSubmitInFlight) {
		h.Metrics.ObserveSubmitConflict(def.Name)
		h.Logger.Info("duplicate submit refused", slog.String("screen", def.Name), slog.String("id", lockID))
	}
	if err != nil {
		return nil, fmt.Errorf("submit guard: %w", err)
	}
	return release, nil
}

func (h *Handler) afterWrite(ctx context.Context, sess *shared.Session, def *screen.Definition, action, id string) {
	if def.TouchesCatalogs {
		if err := h.Catalogs.Invalidate(ctx); err != nil {
			h.Logger.Warn("invalidate catalogs", slog.Any("error", err))
		}
	}
	h.audit(ctx, sess, action, def.Resource, id, map[string]any{"screen": def.Name})
}

// reload refreshes the list after a write with the stored criteria. The
// write already succeeded, so a failed reload only drops the list.
func (h *Handler) reload(ctx context.Context, sess *shared.Session, def *screen.Definition, client *apiclient.Client) *listResponse {
	list, err := h.load(ctx, sess, def, filtersOf(sess, def), client)
	if err != nil {
		h.Logger.Warn("reload after write", slog.String("screen", def.Name), slog.Any("error", err))
		return nil
	}
	return list
}
