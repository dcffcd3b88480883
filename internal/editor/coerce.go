package editor

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNotNumber is returned for form values that are neither empty nor numeric.
var ErrNotNumber = errors.New("editor: not a number")

// ErrNotDate is returned for form values that are neither empty nor a date.
var ErrNotDate = errors.New("editor: not a date")

// decimalPattern is the only numeric grammar forms accept: no exponents,
// fractions, hex or non-finite values. Either '.' or ',' separates decimals.
var decimalPattern = regexp.MustCompile(`^-?\d{1,15}(?:[.,]\d{1,17})?$`)

// Decimal trims s and returns it with a '.' separator, or ErrNotNumber when
// it is not a plain decimal. An empty value is returned as "" with no error.
func Decimal(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if !decimalPattern.MatchString(s) {
		return "", ErrNotNumber
	}
	return strings.Replace(s, ",", ".", 1), nil
}

// NullableNumber converts a form value for submission: "" becomes nil, never 0.
func NullableNumber(s string) (*float64, error) {
	s, err := Decimal(s)
	if err != nil || s == "" {
		return nil, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, ErrNotNumber
	}
	return &v, nil
}

// NullableInt converts an id-like form value; "" becomes nil.
func NullableInt(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, ErrNotNumber
	}
	return &v, nil
}

// NullableDate validates a YYYY-MM-DD form value; "" becomes nil.
func NullableDate(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return nil, ErrNotDate
	}
	return &s, nil
}

// NullableString submits "" as null.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FormNumber renders a nullable number as a controlled form value.
func FormNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormInt renders a nullable id as a controlled form value.
func FormInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// FormString renders a nullable string as a controlled form value.
func FormString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// FormDate keeps the date part of API timestamps ("2024-01-05T00:00:00Z").
func FormDate(v *string) string {
	s := FormString(v)
	if len(s) > len(time.DateOnly) && s[len(time.DateOnly)] == 'T' {
		return s[:len(time.DateOnly)]
	}
	return s
}

// Coercer collects conversion failures per field while a payload is built.
type Coercer struct {
	Fields FieldErrors
}

// Number converts field value s, recording a failure under name.
func (c *Coercer) Number(name, s string) *float64 {
	v, err := NullableNumber(s)
	if err != nil {
		c.fail(name, "Debe ser un número.")
	}
	return v
}

// Int converts field value s, recording a failure under name.
func (c *Coercer) Int(name, s string) *int64 {
	v, err := NullableInt(s)
	if err != nil {
		c.fail(name, "Debe ser un número entero.")
	}
	return v
}

// Date converts field value s, recording a failure under name.
func (c *Coercer) Date(name, s string) *string {
	v, err := NullableDate(s)
	if err != nil {
		c.fail(name, "Fecha inválida (AAAA-MM-DD).")
	}
	return v
}

// Err returns a ValidationError when any conversion failed.
func (c *Coercer) Err() error {
	if len(c.Fields) == 0 {
		return nil
	}
	return &ValidationError{Message: MsgInvalidForm, Fields: c.Fields}
}

func (c *Coercer) fail(name, msg string) {
	if c.Fields == nil {
		c.Fields = FieldErrors{}
	}
	c.Fields[name] = msg
}
