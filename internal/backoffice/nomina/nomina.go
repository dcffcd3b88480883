// Package nomina is the payroll adjustments screen.
package nomina

import (
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/backoffice/money"
	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/catalogs"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/screen"
)

// Resource is the API collection.
const Resource = "ajustes-nomina"

// Adjustment kinds.
const (
	TipoBono      = "bono"
	TipoDescuento = "descuento"
	TipoAdelanto  = "adelanto"
)

// Ajuste is a payroll adjustment.
type Ajuste struct {
	ID         int64    `json:"id"`
	EmpleadoID *int64   `json:"empleado_id"`
	PeriodoID  *int64   `json:"periodo_id"`
	Tipo       *string  `json:"tipo"`
	Monto      *float64 `json:"monto"`
	Motivo     *string  `json:"motivo"`
}

// Draft is the adjustment form.
type Draft struct {
	EmpleadoID string `json:"empleado_id" validate:"required"`
	PeriodoID  string `json:"periodo_id" validate:"required"`
	Tipo       string `json:"tipo" validate:"required,oneof=bono descuento adelanto"`
	Monto      string `json:"monto" validate:"required"`
	Motivo     string `json:"motivo" validate:"max=300"`
}

// Payload is the body sent on create and update.
type Payload struct {
	EmpleadoID *int64   `json:"empleado_id"`
	PeriodoID  *int64   `json:"periodo_id"`
	Tipo       *string  `json:"tipo"`
	Monto      *float64 `json:"monto"`
	Motivo     *string  `json:"motivo"`
}

// Schema binds Ajuste to Draft. Employees are checked against ref.
func Schema(ref catalogs.ReferenceData) editor.Schema[Ajuste, Draft] {
	return editor.Schema[Ajuste, Draft]{
		Resource: Resource,
		Template: func() Draft { return Draft{Tipo: TipoBono} },
		FromEntity: func(a Ajuste) Draft {
			return Draft{
				EmpleadoID: editor.FormInt(a.EmpleadoID),
				PeriodoID:  editor.FormInt(a.PeriodoID),
				Tipo:       editor.FormString(a.Tipo),
				Monto:      editor.FormNumber(a.Monto),
				Motivo:     editor.FormString(a.Motivo),
			}
		},
		Check: func(d Draft) editor.FieldErrors {
			fields := editor.FieldErrors{}
			if r, ok := money.Parse(d.Monto); ok && r.Sign() <= 0 {
				fields["monto"] = "El monto debe ser mayor a cero."
			}
			if id, err := editor.NullableInt(d.EmpleadoID); err == nil && id != nil {
				emp, found := ref.Empleado(*id)
				switch {
				case !found:
					fields["empleado_id"] = "Empleado inexistente."
				case !emp.Activo:
					fields["empleado_id"] = "El empleado está inactivo."
				}
			}
			return fields
		},
		Payload: func(d Draft) (any, error) {
			var c editor.Coercer
			p := Payload{
				EmpleadoID: c.Int("empleado_id", d.EmpleadoID),
				PeriodoID:  c.Int("periodo_id", d.PeriodoID),
				Tipo:       editor.NullableString(d.Tipo),
				Monto:      c.Number("monto", d.Monto),
				Motivo:     editor.NullableString(d.Motivo),
			}
			return p, c.Err()
		},
	}
}

// NewFilters returns the default criteria.
func NewFilters() *listing.Filters {
	return listing.NewFilters(
		[]string{"empleado_id", "periodo_id", "tipo", screen.SearchKey},
		nil,
		listing.DefaultPageSize,
	)
}

// Definition returns the payroll adjustments screen. Search only narrows
// the page already fetched.
func Definition(v *validator.Validate) *screen.Definition {
	return &screen.Definition{
		Name:         "nomina",
		Title:        "Ajustes de nómina",
		Resource:     Resource,
		Dialect:      listing.Dialect{Paging: listing.OffsetPaging, Sort: listing.OrderDir},
		NewFilters:   NewFilters,
		SearchFields: []string{"empleado", "motivo"},
		SortColumns:  []string{"empleado", "tipo", "monto", "periodo"},
		View:         capability.NominaView,
		Edit:         capability.NominaEdit,
		Form: screen.NewForm(func(env screen.Env) editor.Schema[Ajuste, Draft] {
			return Schema(env.Ref)
		}, v),
		NeedsCatalogs: true,
	}
}
