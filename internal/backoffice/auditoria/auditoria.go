// Package auditoria is the read-only audit log screen and its purge.
package auditoria

import (
	"context"
	"net/url"
	"time"

	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/screen"
)

// Resource is the API collection.
const Resource = "auditoria"

// Registro is one audit record.
type Registro struct {
	ID        int64   `json:"id"`
	Fecha     string  `json:"fecha"`
	UsuarioID *int64  `json:"usuario_id"`
	Usuario   *string `json:"usuario"`
	Accion    string  `json:"accion"`
	Entidad   string  `json:"entidad"`
	EntidadID *string `json:"entidad_id"`
	Detalle   *string `json:"detalle"`
}

// NewFilters returns the default criteria: newest first, larger pages.
func NewFilters() *listing.Filters {
	return listing.NewFilters(
		[]string{"usuario_id", "accion", "entidad", "desde", "hasta"},
		nil,
		50,
	).WithDefaultSort("fecha", listing.SortDesc)
}

// CheckFilters validates the date range and the user id.
func CheckFilters(d listing.Descriptor) editor.FieldErrors {
	fields := editor.CheckDateRange("desde", d.Filters["desde"], "hasta", d.Filters["hasta"])
	if v := d.Filters["usuario_id"]; v != "" {
		if _, err := editor.NullableInt(v); err != nil {
			fields["usuario_id"] = "Debe ser un número entero."
		}
	}
	return fields
}

// Definition returns the audit log screen. It has no form.
func Definition() *screen.Definition {
	return &screen.Definition{
		Name:         "auditoria",
		Title:        "Auditoría",
		Resource:     Resource,
		Dialect:      listing.Dialect{Paging: listing.OffsetPaging, Sort: listing.OrderByDir},
		NewFilters:   NewFilters,
		SortColumns:  []string{"fecha", "usuario", "accion", "entidad"},
		CheckFilters: CheckFilters,
		View:         capability.AuditoriaView,
		Edit:         capability.AuditoriaPurge,
	}
}

// Remover is the delete side of the API client.
type Remover interface {
	Delete(ctx context.Context, path string, query url.Values) error
}

// Purge deletes every record older than antesDe once confirmed. Invalid
// dates and unconfirmed requests issue nothing.
func Purge(ctx context.Context, remote Remover, antesDe string, now time.Time, confirmed bool) (editor.Outcome, error) {
	day, err := time.Parse(time.DateOnly, antesDe)
	if err != nil {
		return editor.Outcome{}, &editor.ValidationError{
			Message: editor.MsgInvalidForm,
			Fields:  editor.FieldErrors{"antes_de": "Fecha inválida (AAAA-MM-DD)."},
		}
	}
	if day.After(now) {
		return editor.Outcome{}, &editor.ValidationError{
			Message: editor.MsgInvalidForm,
			Fields:  editor.FieldErrors{"antes_de": "La fecha no puede ser futura."},
		}
	}
	if !confirmed {
		return editor.Outcome{}, editor.ErrNotConfirmed
	}
	if err := remote.Delete(ctx, Resource, url.Values{"antes_de": {antesDe}}); err != nil {
		return editor.Outcome{}, err
	}
	return editor.Outcome{Changed: true}, nil
}
