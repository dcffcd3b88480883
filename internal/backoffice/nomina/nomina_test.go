package nomina

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/backoffice/internal/catalogs"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/screen"
)

var ref = catalogs.ReferenceData{Empleados: []catalogs.Empleado{
	{ID: 1, Nombre: "Ana", Activo: true},
	{ID: 2, Nombre: "Beto", Activo: false},
}}

type countingRemote struct{ writes int }

func (r *countingRemote) GetJSON(context.Context, string, url.Values, any) error { return nil }
func (r *countingRemote) PostJSON(context.Context, string, any, any) error {
	r.writes++
	return nil
}
func (r *countingRemote) PutJSON(context.Context, string, any, any) error {
	r.writes++
	return nil
}
func (r *countingRemote) Delete(context.Context, string, url.Values) error { return nil }

func TestCheckUsesInjectedEmployees(t *testing.T) {
	s := Schema(ref)
	assert.Empty(t, s.Check(Draft{EmpleadoID: "1", Monto: "100"}))
	assert.Equal(t, "El empleado está inactivo.", s.Check(Draft{EmpleadoID: "2", Monto: "100"})["empleado_id"])
	assert.Equal(t, "Empleado inexistente.", s.Check(Draft{EmpleadoID: "9", Monto: "100"})["empleado_id"])
	assert.Contains(t, s.Check(Draft{EmpleadoID: "1", Monto: "-5"}), "monto")
}

func TestSaveThroughScreen(t *testing.T) {
	def := Definition(nil)
	remote := &countingRemote{}
	env := screen.Env{Remote: remote, Ref: ref}
	ctx := context.Background()

	_, err := def.Save(ctx, env, "", []byte(`{"empleado_id":"1","periodo_id":"3","tipo":"premio","monto":"10","motivo":""}`))
	var verr *editor.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Valor no permitido.", verr.Fields["tipo"])
	assert.Zero(t, remote.writes)

	out, err := def.Save(ctx, env, "", []byte(`{"empleado_id":"1","periodo_id":"3","tipo":"adelanto","monto":"1500.50","motivo":""}`))
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, 1, remote.writes)
}

func TestPayloadNullsEmptyMotivo(t *testing.T) {
	body, err := Schema(ref).Payload(Draft{EmpleadoID: "1", PeriodoID: "3", Tipo: TipoDescuento, Monto: "20"})
	require.NoError(t, err)
	p := body.(Payload)
	assert.Nil(t, p.Motivo)
	assert.Equal(t, 20.0, *p.Monto)
}
