package console

import (
	"errors"
	"io"
	"net/http"

	"github.com/mostrador/backoffice/internal/backoffice/auditoria"
	"github.com/mostrador/backoffice/internal/backoffice/compras"
	"github.com/mostrador/backoffice/internal/backoffice/telefonos"
	"github.com/mostrador/backoffice/internal/backoffice/tesoreria"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/platform/httpx"
	"github.com/mostrador/backoffice/internal/shared"
)

type blurRequest struct {
	Draft compras.Draft `json:"draft"`
	Field string        `json:"field"`
}

// recalculatePurchase runs the blur rules of the purchase form.
func (h *Handler) recalculatePurchase(w http.ResponseWriter, r *http.Request) {
	var req blurRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", msgBadRequest)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"draft": req.Draft.Blur(req.Field)})
}

type phoneRequest struct {
	Numero string `json:"numero"`
}

func (h *Handler) sanitizePhone(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", msgBadRequest)
		return
	}
	numero := telefonos.SanitizePhone(req.Numero)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"numero":   numero,
		"can_save": telefonos.CanSave(numero),
	})
}

func (h *Handler) showReconciliation(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	query := r.URL.Query()
	rango := tesoreria.Rango{
		Desde:      query.Get("desde"),
		Hasta:      query.Get("hasta"),
		SucursalID: query.Get("sucursal_id"),
	}
	if fields := rango.Check(); len(fields) > 0 {
		httpx.ValidationProblem(w, editor.MsgInvalidForm, fields)
		return
	}
	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	grid, err := tesoreria.Reconcile(r.Context(), client, rango)
	keepCookies(sess, client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grid)
}

func (h *Handler) purgeAudit(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	antesDe := r.URL.Query().Get("antes_de")
	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	outcome, err := auditoria.Purge(r.Context(), client, antesDe, h.Now(), r.Header.Get(ConfirmHeader) == "true")
	keepCookies(sess, client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.audit(r.Context(), sess, "purge", "auditoria", "", map[string]any{"antes_de": antesDe})
	httpx.JSON(w, http.StatusOK, outcome)
}

func (h *Handler) showCatalogs(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	client, err := h.client(r, sess)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ref, err := h.Catalogs.Load(r.Context(), client, catalogScope(sess))
	keepCookies(sess, client)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ref)
}
