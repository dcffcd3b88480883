package editor

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MsgInvalidForm is the inline banner shown when local validation fails.
const MsgInvalidForm = "Revise los campos marcados antes de guardar."

// FieldErrors maps a draft field (its json name) to an inline message.
type FieldErrors map[string]string

// ValidationError is returned by Submit when the draft fails local checks.
// No request is issued in that case.
type ValidationError struct {
	Message string
	Fields  FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("editor: invalid draft: %s", strings.Join(keys, ", "))
}

// NewValidator returns a validator that reports fields by their json name.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate runs struct-tag validation and maps failures to inline messages.
func Validate(v *validator.Validate, draft any) FieldErrors {
	fields := FieldErrors{}
	err := v.Struct(draft)
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo obligatorio."
	case "numeric", "number":
		return "Debe ser un número."
	case "gt":
		return fmt.Sprintf("Debe ser mayor a %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Debe ser mayor o igual a %s.", fe.Param())
	case "len":
		return fmt.Sprintf("Debe tener %s caracteres.", fe.Param())
	case "max":
		return fmt.Sprintf("Máximo %s caracteres.", fe.Param())
	case "oneof":
		return "Valor no permitido."
	case "datetime":
		return "Fecha inválida (AAAA-MM-DD)."
	default:
		return "Valor inválido."
	}
}

// CheckDateRange reports a date-order violation between two optional dates.
func CheckDateRange(fromField, from, toField, to string) FieldErrors {
	fields := FieldErrors{}
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse(time.DateOnly, from); err != nil {
			fields[fromField] = "Fecha inválida (AAAA-MM-DD)."
		}
	}
	if to != "" {
		if end, err = time.Parse(time.DateOnly, to); err != nil {
			fields[toField] = "Fecha inválida (AAAA-MM-DD)."
		}
	}
	if len(fields) == 0 && from != "" && to != "" && end.Before(start) {
		fields[toField] = "La fecha final no puede ser anterior a la inicial."
	}
	return fields
}

func merge(dst, src FieldErrors) FieldErrors {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
	return dst
}
