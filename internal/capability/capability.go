// Package capability answers "may this user do that" from a data-driven
// role table instead of numeric role checks scattered through handlers.
package capability

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Capability is an atomic permission.
type Capability string

// Back-office capabilities.
const (
	AgendaView         Capability = "agenda.view"
	AgendaEdit         Capability = "agenda.edit"
	ComprasView        Capability = "compras.view"
	ComprasEdit        Capability = "compras.edit"
	TelefonosView      Capability = "telefonos.view"
	TelefonosEdit      Capability = "telefonos.edit"
	TesoreriaView      Capability = "tesoreria.view"
	TesoreriaEdit      Capability = "tesoreria.edit"
	TesoreriaReconcile Capability = "tesoreria.reconcile"
	AuditoriaView      Capability = "auditoria.view"
	AuditoriaPurge     Capability = "auditoria.purge"
	NominaView         Capability = "nomina.view"
	NominaEdit         Capability = "nomina.edit"
	CatalogsView       Capability = "catalogs.view"
)

// Wildcard grants every capability.
const Wildcard Capability = "*"

// Role ids used by the business API.
const (
	RoleAdmin     = 1
	RoleEncargado = 2
	RoleCajero    = 3
	RoleTesoreria = 4
	RoleRRHH      = 5
)

// User is the authenticated actor as reported by the business API.
type User struct {
	ID         int64  `json:"id"`
	Nombre     string `json:"nombre"`
	Usuario    string `json:"usuario,omitempty"`
	RolID      int    `json:"rol_id"`
	SucursalID *int64 `json:"sucursal_id,omitempty"`
}

// Table maps role ids to granted capabilities.
type Table struct {
	grants map[int]map[Capability]struct{}
}

// NewTable builds a table from role grants.
func NewTable(grants map[int][]Capability) *Table {
	t := &Table{grants: make(map[int]map[Capability]struct{}, len(grants))}
	for role, caps := range grants {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			c = Capability(strings.ToLower(strings.TrimSpace(string(c))))
			if c != "" {
				set[c] = struct{}{}
			}
		}
		t.grants[role] = set
	}
	return t
}

// DefaultTable mirrors the chain's standard roles.
func DefaultTable() *Table {
	return NewTable(map[int][]Capability{
		RoleAdmin: {Wildcard},
		RoleEncargado: {
			AgendaView, AgendaEdit, ComprasView, ComprasEdit,
			TelefonosView, TesoreriaView, NominaView, CatalogsView,
		},
		RoleCajero: {AgendaView, CatalogsView},
		RoleTesoreria: {
			AgendaView, TesoreriaView, TesoreriaEdit, TesoreriaReconcile,
			AuditoriaView, ComprasView, CatalogsView,
		},
		RoleRRHH: {
			AgendaView, NominaView, NominaEdit, TelefonosView, TelefonosEdit, CatalogsView,
		},
	})
}

type fileRole struct {
	Name         string   `yaml:"name"`
	Capabilities []string `yaml:"capabilities"`
}

type fileTable struct {
	Roles map[int]fileRole `yaml:"roles"`
}

// LoadTable reads a YAML role table:
//
//	roles:
//	  1: {name: admin, capabilities: ["*"]}
//	  3: {name: cajero, capabilities: [agenda.view]}
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capability: read table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable decodes a YAML role table.
func ParseTable(raw []byte) (*Table, error) {
	var parsed fileTable
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("capability: parse table: %w", err)
	}
	if len(parsed.Roles) == 0 {
		return nil, fmt.Errorf("capability: table declares no roles")
	}
	grants := make(map[int][]Capability, len(parsed.Roles))
	for role, def := range parsed.Roles {
		for _, c := range def.Capabilities {
			grants[role] = append(grants[role], Capability(c))
		}
		if _, ok := grants[role]; !ok {
			grants[role] = nil
		}
	}
	return NewTable(grants), nil
}

// HasCapability reports whether user holds c. A nil user holds nothing.
func (t *Table) HasCapability(user *User, c Capability) bool {
	if t == nil || user == nil {
		return false
	}
	set := t.grants[user.RolID]
	if _, ok := set[Wildcard]; ok {
		return true
	}
	_, ok := set[c]
	return ok
}

// HasAny reports whether user holds at least one of caps.
func (t *Table) HasAny(user *User, caps ...Capability) bool {
	for _, c := range caps {
		if t.HasCapability(user, c) {
			return true
		}
	}
	return false
}

// Capabilities lists what user may do, sorted, with the wildcard expanded.
func (t *Table) Capabilities(user *User) []Capability {
	if t == nil || user == nil {
		return nil
	}
	set := t.grants[user.RolID]
	var out []Capability
	if _, ok := set[Wildcard]; ok {
		out = append(out, All()...)
	} else {
		for c := range set {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All lists every known capability.
func All() []Capability {
	return []Capability{
		AgendaView, AgendaEdit, ComprasView, ComprasEdit, TelefonosView, TelefonosEdit,
		TesoreriaView, TesoreriaEdit, TesoreriaReconcile, AuditoriaView, AuditoriaPurge,
		NominaView, NominaEdit, CatalogsView,
	}
}

type userContextKey struct{}

// ContextWithUser stores the authenticated user in context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user, nil when anonymous.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}
