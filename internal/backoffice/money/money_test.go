package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := map[string]string{
		"4.995":  "5.00",
		"0.525":  "0.53",
		"0.524":  "0.52",
		"-0.525": "-0.53",
		"10,5":   "10.50",
		"600":    "600.00",
	}
	for in, want := range cases {
		r, ok := Parse(in)
		require.True(t, ok, in)
		assert.Equal(t, want, Format(r), in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, ok := Parse("")
	assert.False(t, ok)
	_, ok = Parse("cien")
	assert.False(t, ok)
	for _, in := range []string{"1e900000", "1/3", "NaN", "0x10", "9999999999999999"} {
		_, ok = Parse(in)
		assert.False(t, ok, in)
	}
}

func TestFromFloat(t *testing.T) {
	r, ok := FromFloat(100.1)
	require.True(t, ok)
	assert.Equal(t, int64(10010), Cents(r))
	_, ok = FromFloat(math.Inf(1))
	assert.False(t, ok)
}

func TestPercentAndCents(t *testing.T) {
	bruto, _ := Parse("500")
	assert.Equal(t, "52.50", Format(Percent(bruto, 105, 1000)))
	amount, _ := Parse("12.345")
	assert.Equal(t, int64(1235), Cents(amount))
	assert.Equal(t, "-3.05", FormatCents(-305))
}
