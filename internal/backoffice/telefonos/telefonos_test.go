package telefonos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "351555123A4", want: "3515551234"},
		{in: "(351) 555-1234", want: "3515551234"},
		{in: "35155512345678", want: "3515551234"},
		{in: "٣٥١", want: ""},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizePhone(tc.in), tc.in)
	}
}

func TestCanSaveOnlyWithTenDigits(t *testing.T) {
	assert.False(t, CanSave("351555123"))
	assert.True(t, CanSave("351555123A4"))
	assert.True(t, CanSave("3515551234"))
	assert.False(t, CanSave(""))
}

func TestCheckBlocksShortNumbers(t *testing.T) {
	s := Schema()
	assert.Contains(t, s.Check(Draft{EmpleadoID: "1", Numero: "351"}), "numero")
	assert.Empty(t, s.Check(Draft{EmpleadoID: "1", Numero: "351-555-1234"}))
}

func TestPayloadSendsSanitizedNumber(t *testing.T) {
	body, err := Schema().Payload(Draft{EmpleadoID: "4", Numero: "351 555 1234"})
	require.NoError(t, err)
	p := body.(Payload)
	assert.Equal(t, "3515551234", *p.Numero)
	assert.Equal(t, int64(4), *p.EmpleadoID)
	assert.Nil(t, p.FechaAsignacion)
}
