// Package backoffice assembles the console's screens.
package backoffice

import (
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/backoffice/internal/backoffice/agenda"
	"github.com/mostrador/backoffice/internal/backoffice/auditoria"
	"github.com/mostrador/backoffice/internal/backoffice/compras"
	"github.com/mostrador/backoffice/internal/backoffice/nomina"
	"github.com/mostrador/backoffice/internal/backoffice/telefonos"
	"github.com/mostrador/backoffice/internal/backoffice/tesoreria"
	"github.com/mostrador/backoffice/internal/screen"
)

// Screens registers every screen in navigation order.
func Screens(v *validator.Validate) (*screen.Registry, error) {
	return screen.NewRegistry(
		agenda.Definition(v),
		compras.Definition(v),
		telefonos.Definition(v),
		tesoreria.Definition(v),
		nomina.Definition(v),
		auditoria.Definition(),
	)
}
