// Package telefonos is the phone-line assignment screen.
package telefonos

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/screen"
)

// Resource is the API collection.
const Resource = "telefonos"

// PhoneDigits is the exact length of a local number with area code.
const PhoneDigits = 10

// SanitizePhone keeps the ASCII digits of s in order, truncated to PhoneDigits.
func SanitizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == PhoneDigits {
			break
		}
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanSave reports whether the sanitized number is complete.
func CanSave(numero string) bool {
	return len(SanitizePhone(numero)) == PhoneDigits
}

// Asignacion is a phone line assigned to an employee.
type Asignacion struct {
	ID              int64   `json:"id"`
	EmpleadoID      *int64  `json:"empleado_id"`
	Numero          *string `json:"numero"`
	Compania        *string `json:"compania"`
	FechaAsignacion *string `json:"fecha_asignacion"`
	Observaciones   *string `json:"observaciones"`
}

// Draft is the assignment form.
type Draft struct {
	EmpleadoID      string `json:"empleado_id" validate:"required"`
	Numero          string `json:"numero" validate:"required"`
	Compania        string `json:"compania" validate:"max=60"`
	FechaAsignacion string `json:"fecha_asignacion"`
	Observaciones   string `json:"observaciones" validate:"max=500"`
}

// Payload is the body sent on create and update.
type Payload struct {
	EmpleadoID      *int64  `json:"empleado_id"`
	Numero          *string `json:"numero"`
	Compania        *string `json:"compania"`
	FechaAsignacion *string `json:"fecha_asignacion"`
	Observaciones   *string `json:"observaciones"`
}

// Schema binds Asignacion to Draft.
func Schema() editor.Schema[Asignacion, Draft] {
	return editor.Schema[Asignacion, Draft]{
		Resource: Resource,
		Template: func() Draft { return Draft{} },
		FromEntity: func(a Asignacion) Draft {
			return Draft{
				EmpleadoID:      editor.FormInt(a.EmpleadoID),
				Numero:          SanitizePhone(editor.FormString(a.Numero)),
				Compania:        editor.FormString(a.Compania),
				FechaAsignacion: editor.FormDate(a.FechaAsignacion),
				Observaciones:   editor.FormString(a.Observaciones),
			}
		},
		Check: func(d Draft) editor.FieldErrors {
			if d.Numero != "" && !CanSave(d.Numero) {
				return editor.FieldErrors{"numero": "El número debe tener 10 dígitos."}
			}
			return nil
		},
		Payload: func(d Draft) (any, error) {
			var c editor.Coercer
			p := Payload{
				EmpleadoID:      c.Int("empleado_id", d.EmpleadoID),
				Numero:          editor.NullableString(SanitizePhone(d.Numero)),
				Compania:        editor.NullableString(d.Compania),
				FechaAsignacion: c.Date("fecha_asignacion", d.FechaAsignacion),
				Observaciones:   editor.NullableString(d.Observaciones),
			}
			return p, c.Err()
		},
	}
}

// NewFilters returns the default criteria.
func NewFilters() *listing.Filters {
	return listing.NewFilters(
		[]string{"empleado_id", "compania", screen.SearchKey},
		nil,
		listing.DefaultPageSize,
	).WithDefaultSort("numero", listing.SortAsc)
}

// Definition returns the phone assignment screen. Saves change the
// employee catalog, which lists each employee's phone.
func Definition(v *validator.Validate) *screen.Definition {
	return &screen.Definition{
		Name:            "telefonos",
		Title:           "Teléfonos",
		Resource:        Resource,
		Dialect:         listing.Dialect{Paging: listing.OffsetPaging, Sort: listing.OrderDir},
		NewFilters:      NewFilters,
		SortColumns:     []string{"numero", "empleado", "fecha_asignacion"},
		View:            capability.TelefonosView,
		Edit:            capability.TelefonosEdit,
		Form:            screen.NewForm(func(screen.Env) editor.Schema[Asignacion, Draft] { return Schema() }, v),
		TouchesCatalogs: true,
	}
}
