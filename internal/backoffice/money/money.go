// Package money does the exact decimal arithmetic behind amounts shown with
// two decimals.
package money

import (
	"math"
	"math/big"

	"github.com/mostrador/backoffice/internal/editor"
)

// Parse reads a decimal typed by a user, with the same grammar forms are
// saved with. A decimal comma is accepted.
func Parse(s string) (*big.Rat, bool) {
	s, err := editor.Decimal(s)
	if err != nil || s == "" {
		return nil, false
	}
	return new(big.Rat).SetString(s)
}

// FromFloat converts an amount decoded from the API. Non-finite values are
// rejected.
func FromFloat(f float64) (*big.Rat, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return new(big.Rat).SetFloat64(f), true
}

// Round rounds half away from zero to two decimals.
func Round(r *big.Rat) *big.Rat {
	return new(big.Rat).SetFrac(cents(r), big.NewInt(100))
}

// Cents returns r rounded to whole cents.
func Cents(r *big.Rat) int64 {
	return cents(r).Int64()
}

// FromCents builds an amount from whole cents.
func FromCents(c int64) *big.Rat {
	return big.NewRat(c, 100)
}

// Format renders r with exactly two decimals.
func Format(r *big.Rat) string {
	return Round(r).FloatString(2)
}

// FormatCents renders whole cents with exactly two decimals.
func FormatCents(c int64) string {
	return FromCents(c).FloatString(2)
}

// Percent returns r * num / den, rounded to cents.
func Percent(r *big.Rat, num, den int64) *big.Rat {
	return Round(new(big.Rat).Mul(r, big.NewRat(num, den)))
}

func cents(r *big.Rat) *big.Int {
	scaled := new(big.Rat).Mul(r, big.NewRat(100, 1))
	num := new(big.Int).Abs(scaled.Num())
	den := scaled.Denom()
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Lsh(m, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if scaled.Sign() < 0 {
		q.Neg(q)
	}
	return q
}
