package tesoreria

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mostrador/backoffice/internal/backoffice/money"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
)

// MaxRangeDays bounds the reconciliation grid.
const MaxRangeDays = 62

// Reconciliation statuses.
const (
	EstadoOK       = "ok"
	EstadoFaltante = "faltante"
	EstadoSobrante = "sobrante"
	EstadoSinDatos = "sin_movimientos"
)

// Rango selects the days to reconcile.
type Rango struct {
	Desde      string `json:"desde"`
	Hasta      string `json:"hasta"`
	SucursalID string `json:"sucursal_id,omitempty"`
}

// Check validates the range before any request is issued.
func (r Rango) Check() editor.FieldErrors {
	fields := editor.FieldErrors{}
	if r.Desde == "" {
		fields["desde"] = "Campo obligatorio."
	}
	if r.Hasta == "" {
		fields["hasta"] = "Campo obligatorio."
	}
	if len(fields) > 0 {
		return fields
	}
	if order := editor.CheckDateRange("desde", r.Desde, "hasta", r.Hasta); len(order) > 0 {
		return order
	}
	if r.SucursalID != "" {
		if _, err := strconv.ParseInt(r.SucursalID, 10, 64); err != nil {
			fields["sucursal_id"] = "Debe ser un número entero."
			return fields
		}
	}
	from, _ := time.Parse(time.DateOnly, r.Desde)
	to, _ := time.Parse(time.DateOnly, r.Hasta)
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxRangeDays {
		fields["hasta"] = fmt.Sprintf("El rango no puede superar %d días.", MaxRangeDays)
	}
	return fields
}

// Fila is one day of the grid. Amounts carry two decimals.
type Fila struct {
	Fecha      string `json:"fecha"`
	RetiroCaja string `json:"retiro_caja"`
	Recibido   string `json:"recibido"`
	Diferencia string `json:"diferencia"`
	Estado     string `json:"estado"`
}

// Conciliacion is the reconciliation grid plus its totals.
type Conciliacion struct {
	Rango   Rango  `json:"rango"`
	Filas   []Fila `json:"filas"`
	Totales Fila   `json:"totales"`
}

// Reconcile compares, day by day, what the cash registers withdrew with
// what treasury received. Both sides are fetched concurrently and the grid
// fails if either fetch fails.
func Reconcile(ctx context.Context, src listing.Source, r Rango) (Conciliacion, error) {
	if fields := r.Check(); len(fields) > 0 {
		return Conciliacion{}, &editor.ValidationError{Message: editor.MsgInvalidForm, Fields: fields}
	}

	query := listing.Descriptor{Filters: map[string]string{"desde": r.Desde, "hasta": r.Hasta}}
	if r.SucursalID != "" {
		query.Filters["sucursal_id"] = r.SucursalID
	}
	values := query.Values(listing.Dialect{Paging: listing.NoPaging, Sort: listing.LocalSort})

	var caja, recibido map[string]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		caja, err = sumByDay(gctx, src, ResourceRetirosCaja, values)
		return err
	})
	g.Go(func() error {
		var err error
		recibido, err = sumByDay(gctx, src, ResourceRecepciones, values)
		return err
	})
	if err := g.Wait(); err != nil {
		return Conciliacion{}, err
	}

	from, _ := time.Parse(time.DateOnly, r.Desde)
	to, _ := time.Parse(time.DateOnly, r.Hasta)
	out := Conciliacion{Rango: r}
	var totalCaja, totalRecibido int64
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		c, cok := caja[key]
		rec, rok := recibido[key]
		out.Filas = append(out.Filas, fila(key, c, rec, cok || rok))
		totalCaja += c
		totalRecibido += rec
	}
	out.Totales = fila("total", totalCaja, totalRecibido, true)
	return out, nil
}

func fila(fecha string, caja, recibido int64, movimientos bool) Fila {
	diff := recibido - caja
	estado := EstadoOK
	switch {
	case !movimientos:
		estado = EstadoSinDatos
	case diff < 0:
		estado = EstadoFaltante
	case diff > 0:
		estado = EstadoSobrante
	}
	return Fila{
		Fecha:      fecha,
		RetiroCaja: money.FormatCents(caja),
		Recibido:   money.FormatCents(recibido),
		Diferencia: money.FormatCents(diff),
		Estado:     estado,
	}
}

type movimiento struct {
	Fecha string      `json:"fecha"`
	Monto json.Number `json:"monto"`
}

func sumByDay(ctx context.Context, src listing.Source, resource string, values url.Values) (map[string]int64, error) {
	body, err := src.Get(ctx, resource, values)
	if err != nil {
		return nil, err
	}
	page, err := listing.Unwrap(body)
	if err != nil {
		return nil, err
	}
	rows, err := listing.DecodeRows[movimiento](page.Rows)
	if err != nil {
		return nil, err
	}
	sums := make(map[string]int64)
	for _, m := range rows {
		f, err := m.Monto.Float64()
		if err != nil {
			continue
		}
		amount, ok := money.FromFloat(f)
		if !ok {
			continue
		}
		day := editor.FormDate(&m.Fecha)
		sums[day] += money.Cents(amount)
	}
	return sums, nil
}
