package screen

import (
	"fmt"

	"github.com/mostrador/backoffice/internal/capability"
)

// Registry indexes screens by name in registration order.
type Registry struct {
	byName map[string]*Definition
	order  []string
}

// NewRegistry registers defs, rejecting duplicates and incomplete ones.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d == nil || d.Name == "" || d.Resource == "" || d.NewFilters == nil {
			return nil, fmt.Errorf("screen: incomplete definition %+v", d)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("screen: duplicate %q", d.Name)
		}
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Lookup returns the named screen.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Entry is a navigation item.
type Entry struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Editable bool   `json:"editable"`
}

// Visible lists the screens user may open, for the navigation shell.
func (r *Registry) Visible(table *capability.Table, user *capability.User) []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		d := r.byName[name]
		if !table.HasCapability(user, d.View) {
			continue
		}
		out = append(out, Entry{
			Name:     d.Name,
			Title:    d.Title,
			Editable: d.Form != nil && table.HasCapability(user, d.Edit),
		})
	}
	return out
}

// Names lists the registered screens in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
