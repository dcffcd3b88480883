// Package tesoreria covers treasury withdrawals and their reconciliation
// against the cash registers.
package tesoreria

import (
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/backoffice/money"
	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/screen"
)

// Upstream resources.
const (
	ResourceRetiros     = "retiros-tesoreria"
	ResourceRetirosCaja = "retiros-caja"
	ResourceRecepciones = "recepciones-tesoreria"
)

// Retiro is a treasury withdrawal.
type Retiro struct {
	ID           int64    `json:"id"`
	Fecha        *string  `json:"fecha"`
	SucursalID   *int64   `json:"sucursal_id"`
	Monto        *float64 `json:"monto"`
	MetodoPagoID *int64   `json:"metodo_pago_id"`
	Concepto     *string  `json:"concepto"`
	Observacion  *string  `json:"observacion"`
}

// Draft is the withdrawal form.
type Draft struct {
	Fecha        string `json:"fecha" validate:"required"`
	SucursalID   string `json:"sucursal_id" validate:"required"`
	Monto        string `json:"monto" validate:"required"`
	MetodoPagoID string `json:"metodo_pago_id"`
	Concepto     string `json:"concepto" validate:"required,max=200"`
	Observacion  string `json:"observacion" validate:"max=500"`
}

// Payload is the body sent on create and update.
type Payload struct {
	Fecha        *string  `json:"fecha"`
	SucursalID   *int64   `json:"sucursal_id"`
	Monto        *float64 `json:"monto"`
	MetodoPagoID *int64   `json:"metodo_pago_id"`
	Concepto     *string  `json:"concepto"`
	Observacion  *string  `json:"observacion"`
}

// RetiroSchema binds Retiro to Draft.
func RetiroSchema() editor.Schema[Retiro, Draft] {
	return editor.Schema[Retiro, Draft]{
		Resource: ResourceRetiros,
		Template: func() Draft { return Draft{} },
		FromEntity: func(r Retiro) Draft {
			return Draft{
				Fecha:        editor.FormDate(r.Fecha),
				SucursalID:   editor.FormInt(r.SucursalID),
				Monto:        editor.FormNumber(r.Monto),
				MetodoPagoID: editor.FormInt(r.MetodoPagoID),
				Concepto:     editor.FormString(r.Concepto),
				Observacion:  editor.FormString(r.Observacion),
			}
		},
		Check: func(d Draft) editor.FieldErrors {
			if r, ok := money.Parse(d.Monto); ok && r.Sign() <= 0 {
				return editor.FieldErrors{"monto": "El monto debe ser mayor a cero."}
			}
			return nil
		},
		Payload: func(d Draft) (any, error) {
			var c editor.Coercer
			p := Payload{
				Fecha:        c.Date("fecha", d.Fecha),
				SucursalID:   c.Int("sucursal_id", d.SucursalID),
				Monto:        c.Number("monto", d.Monto),
				MetodoPagoID: c.Int("metodo_pago_id", d.MetodoPagoID),
				Concepto:     editor.NullableString(d.Concepto),
				Observacion:  editor.NullableString(d.Observacion),
			}
			return p, c.Err()
		},
	}
}

// NewFilters returns the default criteria.
func NewFilters() *listing.Filters {
	return listing.NewFilters(
		[]string{"sucursal_id", "metodo_pago_id", "desde", "hasta"},
		nil,
		listing.DefaultPageSize,
	).WithDefaultSort("fecha", listing.SortDesc)
}

// Definition returns the withdrawals screen.
func Definition(v *validator.Validate) *screen.Definition {
	return &screen.Definition{
		Name:        "tesoreria",
		Title:       "Retiros de tesorería",
		Resource:    ResourceRetiros,
		Dialect:     listing.Dialect{Paging: listing.PagePaging, Sort: listing.OrderDir},
		NewFilters:  NewFilters,
		SortColumns: []string{"fecha", "monto", "sucursal"},
		CheckFilters: func(d listing.Descriptor) editor.FieldErrors {
			return editor.CheckDateRange("desde", d.Filters["desde"], "hasta", d.Filters["hasta"])
		},
		View: capability.TesoreriaView,
		Edit: capability.TesoreriaEdit,
		Form: screen.NewForm(func(screen.Env) editor.Schema[Retiro, Draft] { return RetiroSchema() }, v),
	}
}
