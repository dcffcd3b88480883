// Package agenda is the task agenda screen.
package agenda

import (
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/screen"
)

// Resource is the API collection.
const Resource = "agenda"

// Sortable columns.
const (
	ColVencimiento = "fecha_vencimiento"
	ColTitulo      = "titulo"
	ColPrioridad   = "prioridad"
	ColEstado      = "estado"
)

// Tarea is an agenda item as the API returns it.
type Tarea struct {
	ID               int64   `json:"id"`
	Titulo           *string `json:"titulo"`
	Descripcion      *string `json:"descripcion"`
	FechaVencimiento *string `json:"fecha_vencimiento"`
	Prioridad        *string `json:"prioridad"`
	Estado           *string `json:"estado"`
	SucursalID       *int64  `json:"sucursal_id"`
}

// Draft is the agenda form.
type Draft struct {
	Titulo           string `json:"titulo" validate:"required,max=200"`
	Descripcion      string `json:"descripcion" validate:"max=2000"`
	FechaVencimiento string `json:"fecha_vencimiento"`
	Prioridad        string `json:"prioridad" validate:"required,oneof=baja media alta"`
	Estado           string `json:"estado" validate:"required,oneof=pendiente en_progreso completada"`
	SucursalID       string `json:"sucursal_id"`
}

// Payload is the body sent on create and update.
type Payload struct {
	Titulo           *string `json:"titulo"`
	Descripcion      *string `json:"descripcion"`
	FechaVencimiento *string `json:"fecha_vencimiento"`
	Prioridad        *string `json:"prioridad"`
	Estado           *string `json:"estado"`
	SucursalID       *int64  `json:"sucursal_id"`
}

// Schema binds Tarea to Draft.
func Schema() editor.Schema[Tarea, Draft] {
	return editor.Schema[Tarea, Draft]{
		Resource: Resource,
		Template: func() Draft {
			return Draft{Prioridad: "media", Estado: "pendiente"}
		},
		FromEntity: func(t Tarea) Draft {
			return Draft{
				Titulo:           editor.FormString(t.Titulo),
				Descripcion:      editor.FormString(t.Descripcion),
				FechaVencimiento: editor.FormDate(t.FechaVencimiento),
				Prioridad:        editor.FormString(t.Prioridad),
				Estado:           editor.FormString(t.Estado),
				SucursalID:       editor.FormInt(t.SucursalID),
			}
		},
		Payload: func(d Draft) (any, error) {
			var c editor.Coercer
			p := Payload{
				Titulo:           editor.NullableString(d.Titulo),
				Descripcion:      editor.NullableString(d.Descripcion),
				FechaVencimiento: c.Date("fecha_vencimiento", d.FechaVencimiento),
				Prioridad:        editor.NullableString(d.Prioridad),
				Estado:           editor.NullableString(d.Estado),
				SucursalID:       c.Int("sucursal_id", d.SucursalID),
			}
			return p, c.Err()
		},
	}
}

// NewFilters returns the default agenda criteria: soonest due first.
func NewFilters() *listing.Filters {
	return listing.NewFilters(
		[]string{"estado", "sucursal_id", "desde", "hasta", screen.SearchKey},
		nil,
		listing.DefaultPageSize,
	).WithDefaultSort(ColVencimiento, listing.SortAsc)
}

// Definition returns the agenda screen. The endpoint answers the whole
// filtered set, so paging, search and sort happen here.
func Definition(v *validator.Validate) *screen.Definition {
	return &screen.Definition{
		Name:         "agenda",
		Title:        "Agenda",
		Resource:     Resource,
		Dialect:      listing.Dialect{Paging: listing.NoPaging, Sort: listing.LocalSort},
		NewFilters:   NewFilters,
		SearchFields: []string{"titulo", "descripcion"},
		SortColumns:  []string{ColVencimiento, ColTitulo, ColPrioridad, ColEstado},
		SortRanks:    map[string]map[string]int{
			ColPrioridad: {"baja": 0, "media": 1, "alta": 2},
			ColEstado:    {"pendiente": 0, "en_progreso": 1, "completada": 2},
		},
		CheckFilters: func(d listing.Descriptor) editor.FieldErrors {
			return editor.CheckDateRange("desde", d.Filters["desde"], "hasta", d.Filters["hasta"])
		},
		View: capability.AgendaView,
		Edit: capability.AgendaEdit,
		Form: screen.NewForm(func(screen.Env) editor.Schema[Tarea, Draft] { return Schema() }, v),
	}
}
