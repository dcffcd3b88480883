package tesoreria

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/backoffice/internal/editor"
)

type mapSource struct {
	mu      sync.Mutex
	bodies  map[string]string
	fail    map[string]error
	queries map[string]url.Values
}

func (s *mapSource) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queries == nil {
		s.queries = map[string]url.Values{}
	}
	s.queries[path] = query
	if err := s.fail[path]; err != nil {
		return nil, err
	}
	return []byte(s.bodies[path]), nil
}

func TestReconcileBuildsOneRowPerDay(t *testing.T) {
	src := &mapSource{bodies: map[string]string{
		ResourceRetirosCaja: `{"rows":[
			{"fecha":"2024-03-01T10:00:00Z","monto":"1000.50"},
			{"fecha":"2024-03-01","monto":499.5},
			{"fecha":"2024-03-02","monto":200},
			{"fecha":"2024-03-03","monto":300}
		]}`,
		ResourceRecepciones: `[
			{"fecha":"2024-03-01","monto":1500},
			{"fecha":"2024-03-02","monto":150},
			{"fecha":"2024-03-03","monto":350.25}
		]`,
	}}

	got, err := Reconcile(context.Background(), src, Rango{Desde: "2024-03-01", Hasta: "2024-03-04", SucursalID: "2"})
	require.NoError(t, err)
	require.Len(t, got.Filas, 4)

	assert.Equal(t, Fila{Fecha: "2024-03-01", RetiroCaja: "1500.00", Recibido: "1500.00", Diferencia: "0.00", Estado: EstadoOK}, got.Filas[0])
	assert.Equal(t, Fila{Fecha: "2024-03-02", RetiroCaja: "200.00", Recibido: "150.00", Diferencia: "-50.00", Estado: EstadoFaltante}, got.Filas[1])
	assert.Equal(t, EstadoSobrante, got.Filas[2].Estado)
	assert.Equal(t, "50.25", got.Filas[2].Diferencia)
	assert.Equal(t, EstadoSinDatos, got.Filas[3].Estado)
	assert.Equal(t, "2000.00", got.Totales.RetiroCaja)
	assert.Equal(t, "2000.25", got.Totales.Recibido)

	assert.Equal(t, "2", src.queries[ResourceRetirosCaja].Get("sucursal_id"))
	assert.Equal(t, "2024-03-04", src.queries[ResourceRecepciones].Get("hasta"))
	assert.Empty(t, src.queries[ResourceRecepciones].Get("limit"))
}

func TestReconcileFailsWhenEitherSideFails(t *testing.T) {
	boom := errors.New("tesoreria caída")
	src := &mapSource{
		bodies: map[string]string{ResourceRetirosCaja: `[]`},
		fail:   map[string]error{ResourceRecepciones: boom},
	}
	_, err := Reconcile(context.Background(), src, Rango{Desde: "2024-03-01", Hasta: "2024-03-01"})
	assert.ErrorIs(t, err, boom)
}

func TestRangeValidationHappensBeforeFetching(t *testing.T) {
	cases := []struct {
		name  string
		rango Rango
		field string
	}{
		{name: "missing", rango: Rango{Hasta: "2024-03-01"}, field: "desde"},
		{name: "reversed", rango: Rango{Desde: "2024-03-02", Hasta: "2024-03-01"}, field: "hasta"},
		{name: "too long", rango: Rango{Desde: "2024-01-01", Hasta: "2024-03-05"}, field: "hasta"},
		{name: "branch", rango: Rango{Desde: "2024-01-01", Hasta: "2024-01-02", SucursalID: "x"}, field: "sucursal_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &mapSource{}
			_, err := Reconcile(context.Background(), src, tc.rango)
			var verr *editor.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
			assert.Empty(t, src.queries)
		})
	}

	assert.Empty(t, Rango{Desde: "2024-01-01", Hasta: "2024-03-02"}.Check())
}

func TestRetiroMontoMustBePositive(t *testing.T) {
	s := RetiroSchema()
	assert.Contains(t, s.Check(Draft{Monto: "0"}), "monto")
	assert.Empty(t, s.Check(Draft{Monto: "10"}))

	body, err := s.Payload(Draft{Fecha: "2024-03-01", SucursalID: "1", Monto: "10.5", Concepto: "Depósito"})
	require.NoError(t, err)
	p := body.(Payload)
	assert.Equal(t, 10.5, *p.Monto)
	assert.Nil(t, p.MetodoPagoID)
}
