package backoffice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/backoffice/internal/capability"
)

func TestScreensRegisterAndRespectCapabilities(t *testing.T) {
	reg, err := Screens(nil)
	require.NoError(t, err)

	table := capability.DefaultTable()
	names := func(rol int) []string {
		var out []string
		for _, e := range reg.Visible(table, &capability.User{RolID: rol}) {
			out = append(out, e.Name)
		}
		return out
	}
	assert.Equal(t, []string{"agenda", "compras", "telefonos", "tesoreria", "nomina", "auditoria"}, names(capability.RoleAdmin))
	assert.Equal(t, []string{"agenda"}, names(capability.RoleCajero))
	assert.Equal(t, []string{"agenda", "compras", "tesoreria", "auditoria"}, names(capability.RoleTesoreria))
}
