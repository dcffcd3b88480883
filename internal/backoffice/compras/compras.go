// Package compras is the projected purchases screen.
package compras

import (
	"math/big"

	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/backoffice/money"
	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
	"github.com/mostrador/backoffice/internal/screen"
)

// Resource is the API collection.
const Resource = "compras-proyectadas"

// ivaPerMille is the 10.5% VAT applied to bruto.
const ivaPerMille = 105

// Form fields that feed the derived totals.
const (
	FieldCantidad = "cantidad"
	FieldKg       = "kg"
	FieldPrecio   = "precio"
	FieldBruto    = "bruto"
)

// CompraProyectada is a projected purchase as the API returns it.
type CompraProyectada struct {
	ID         int64    `json:"id"`
	Fecha      *string  `json:"fecha"`
	SucursalID *int64   `json:"sucursal_id"`
	Proveedor  *string  `json:"proveedor"`
	Producto   *string  `json:"producto"`
	Cantidad   *float64 `json:"cantidad"`
	Kg         *float64 `json:"kg"`
	Precio     *float64 `json:"precio"`
	Bruto      *float64 `json:"bruto"`
	Iva        *float64 `json:"iva"`
	Neto       *float64 `json:"neto"`
}

// Draft is the purchase form. Amounts travel as the text the user typed.
type Draft struct {
	Fecha      string `json:"fecha" validate:"required"`
	SucursalID string `json:"sucursal_id" validate:"required"`
	Proveedor  string `json:"proveedor" validate:"max=120"`
	Producto   string `json:"producto" validate:"required,max=120"`
	Cantidad   string `json:"cantidad"`
	Kg         string `json:"kg"`
	Precio     string `json:"precio"`
	Bruto      string `json:"bruto"`
	Iva        string `json:"iva"`
	Neto       string `json:"neto"`
}

// Blur recomputes derived totals after the user leaves field. Leaving
// cantidad, kg or precio rebuilds bruto from the three of them; leaving
// bruto keeps the typed value. Either way iva and neto follow bruto.
// Other fields, and incomplete inputs, leave the draft untouched.
func (d Draft) Blur(field string) Draft {
	switch field {
	case FieldCantidad, FieldKg, FieldPrecio:
		cantidad, ok1 := money.Parse(d.Cantidad)
		kg, ok2 := money.Parse(d.Kg)
		precio, ok3 := money.Parse(d.Precio)
		if !ok1 || !ok2 || !ok3 {
			return d
		}
		bruto := new(big.Rat).Mul(cantidad, kg)
		bruto.Mul(bruto, precio)
		d.Bruto = money.Format(bruto)
	case FieldBruto:
		if _, ok := money.Parse(d.Bruto); !ok {
			return d
		}
	default:
		return d
	}
	bruto, _ := money.Parse(d.Bruto)
	bruto = money.Round(bruto)
	iva := money.Percent(bruto, ivaPerMille, 1000)
	d.Bruto = money.Format(bruto)
	d.Iva = money.Format(iva)
	d.Neto = money.Format(new(big.Rat).Add(bruto, iva))
	return d
}

// Payload is the body sent on create and update.
type Payload struct {
	Fecha      *string  `json:"fecha"`
	SucursalID *int64   `json:"sucursal_id"`
	Proveedor  *string  `json:"proveedor"`
	Producto   *string  `json:"producto"`
	Cantidad   *float64 `json:"cantidad"`
	Kg         *float64 `json:"kg"`
	Precio     *float64 `json:"precio"`
	Bruto      *float64 `json:"bruto"`
	Iva        *float64 `json:"iva"`
	Neto       *float64 `json:"neto"`
}

// Schema binds CompraProyectada to Draft.
func Schema() editor.Schema[CompraProyectada, Draft] {
	return editor.Schema[CompraProyectada, Draft]{
		Resource: Resource,
		Template: func() Draft { return Draft{} },
		FromEntity: func(c CompraProyectada) Draft {
			return Draft{
				Fecha:      editor.FormDate(c.Fecha),
				SucursalID: editor.FormInt(c.SucursalID),
				Proveedor:  editor.FormString(c.Proveedor),
				Producto:   editor.FormString(c.Producto),
				Cantidad:   editor.FormNumber(c.Cantidad),
				Kg:         editor.FormNumber(c.Kg),
				Precio:     editor.FormNumber(c.Precio),
				Bruto:      editor.FormNumber(c.Bruto),
				Iva:        editor.FormNumber(c.Iva),
				Neto:       editor.FormNumber(c.Neto),
			}
		},
		Check: func(d Draft) editor.FieldErrors {
			fields := editor.FieldErrors{}
			for name, value := range map[string]string{
				FieldCantidad: d.Cantidad, FieldKg: d.Kg, FieldPrecio: d.Precio, FieldBruto: d.Bruto,
			} {
				if r, ok := money.Parse(value); ok && r.Sign() < 0 {
					fields[name] = "No puede ser negativo."
				}
			}
			return fields
		},
		Payload: func(d Draft) (any, error) {
			var c editor.Coercer
			p := Payload{
				Fecha:      c.Date("fecha", d.Fecha),
				SucursalID: c.Int("sucursal_id", d.SucursalID),
				Proveedor:  editor.NullableString(d.Proveedor),
				Producto:   editor.NullableString(d.Producto),
				Cantidad:   c.Number(FieldCantidad, d.Cantidad),
				Kg:         c.Number(FieldKg, d.Kg),
				Precio:     c.Number(FieldPrecio, d.Precio),
				Bruto:      c.Number(FieldBruto, d.Bruto),
				Iva:        c.Number("iva", d.Iva),
				Neto:       c.Number("neto", d.Neto),
			}
			return p, c.Err()
		},
	}
}

// NewFilters returns the default criteria: newest first.
func NewFilters() *listing.Filters {
	return listing.NewFilters(
		[]string{"sucursal_id", "desde", "hasta", "producto"},
		nil,
		listing.DefaultPageSize,
	).WithDefaultSort("fecha", listing.SortDesc)
}

// Definition returns the projected purchases screen.
func Definition(v *validator.Validate) *screen.Definition {
	return &screen.Definition{
		Name:        "compras",
		Title:       "Compras proyectadas",
		Resource:    Resource,
		Dialect:     listing.Dialect{Paging: listing.PagePaging, Sort: listing.OrderByDir},
		NewFilters:  NewFilters,
		SortColumns: []string{"fecha", "producto", "neto"},
		CheckFilters: func(d listing.Descriptor) editor.FieldErrors {
			return editor.CheckDateRange("desde", d.Filters["desde"], "hasta", d.Filters["hasta"])
		},
		View: capability.ComprasView,
		Edit: capability.ComprasEdit,
		Form: screen.NewForm(func(screen.Env) editor.Schema[CompraProyectada, Draft] { return Schema() }, v),
	}
}
