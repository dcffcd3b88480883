// Package screen composes the list, fetcher and editor pieces into one
// back-office screen.
package screen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/mostrador/backoffice/internal/capability"
	"github.com/mostrador/backoffice/internal/catalogs"
	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
)

// SearchKey is the filter holding free-text search.
const SearchKey = "search"

// MsgInvalidFilters is shown when filter values cannot be sent upstream.
const MsgInvalidFilters = "Revise los filtros antes de buscar."

// ErrSuperseded reports a load discarded because a newer one was issued.
var ErrSuperseded = errors.New("screen: superseded by a newer load")

// ErrReadOnly reports a write on a screen without a form.
var ErrReadOnly = errors.New("screen: read-only")

// Definition describes one list-and-modal screen.
type Definition struct {
	Name     string
	Title    string
	Resource string
	Dialect  listing.Dialect

	// NewFilters returns the default criteria of the screen.
	NewFilters func() *listing.Filters
	// SearchFields, when set, make the search filter page-local: it is not
	// sent upstream and is matched against these row keys instead.
	SearchFields []string
	// SortColumns lists the columns a user may sort by.
	SortColumns []string
	// SortRanks orders enumerated columns by rank when sorting locally.
	SortRanks map[string]map[string]int
	// CheckFilters validates criteria before any request is issued.
	CheckFilters func(listing.Descriptor) editor.FieldErrors

	View capability.Capability
	Edit capability.Capability

	// Form is nil for read-only screens.
	Form Form
	// NeedsCatalogs asks for reference data to be loaded before the form runs.
	NeedsCatalogs bool
	// TouchesCatalogs marks screens whose writes change reference data.
	TouchesCatalogs bool
}

// Query carries the criteria changes of one list request. A key present in
// Filters with an empty value clears that filter.
type Query struct {
	Filters  map[string]string
	Sort     string
	Dir      string
	Page     int
	PageSize int
}

// Page is the rendered list.
type Page struct {
	Rows       []listing.Row      `json:"rows"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
	Filters    listing.Descriptor `json:"filters"`
	Generation uint64             `json:"generation"`
}

// Apply folds q into f. A criteria change sends the cursor to the first
// page, so an explicit page only applies when nothing else changed.
func (d *Definition) Apply(f *listing.Filters, q Query) error {
	changed := false
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f.SetFilter(k, q.Filters[k]) {
			changed = true
		}
	}
	if q.Sort != "" {
		if !slices.Contains(d.SortColumns, q.Sort) {
			return &editor.ValidationError{
				Message: MsgInvalidFilters,
				Fields:  editor.FieldErrors{"sort": fmt.Sprintf("No se puede ordenar por %q.", q.Sort)},
			}
		}
		if f.SetSort(q.Sort, q.Dir) {
			changed = true
		}
	}
	if q.PageSize > 0 {
		f.SetPageSize(q.PageSize)
	}
	if q.Page > 0 && !changed {
		f.SetPage(q.Page)
	}
	return nil
}

// Load fetches and renders the page for the criteria in f.
func (d *Definition) Load(ctx context.Context, src listing.Source, f *listing.Filters, seq listing.Sequencer) (Page, error) {
	desc := f.Descriptor()
	if d.CheckFilters != nil {
		if fields := d.CheckFilters(desc); len(fields) > 0 {
			return Page{}, &editor.ValidationError{Message: MsgInvalidFilters, Fields: fields}
		}
	}

	upstream := desc
	view := listing.View{}
	if len(d.SearchFields) > 0 {
		upstream.Filters = make(map[string]string, len(desc.Filters))
		for k, v := range desc.Filters {
			if k != SearchKey {
				upstream.Filters[k] = v
			}
		}
		view.Search = desc.Filters[SearchKey]
		view.SearchFields = d.SearchFields
	}
	if d.Dialect.Sort == listing.LocalSort {
		view.SortField = desc.SortKey
		view.SortDir = desc.SortDir
		view.SortRanks = d.SortRanks[desc.SortKey]
	}

	fetcher := listing.NewFetcher(src, d.Resource, d.Dialect, seq)
	res := fetcher.Load(ctx, upstream)
	switch {
	case res.Superseded:
		return Page{}, ErrSuperseded
	case res.Err != nil:
		return Page{}, res.Err
	}

	result := res.Page
	result.Rows = view.Apply(result.Rows)
	if d.Dialect.Paging == listing.NoPaging {
		result = listing.Cut(result, desc, listing.NoPaging)
	}
	return Page{
		Rows:       result.Rows,
		Total:      result.Total,
		Page:       desc.Page,
		PageSize:   desc.PageSize,
		TotalPages: result.TotalPages(desc.PageSize),
		Filters:    desc,
		Generation: res.Generation,
	}, nil
}

// Env is what a form needs from the request.
type Env struct {
	Remote editor.Remote
	Ref    catalogs.ReferenceData
}

// Open returns the draft of a new record (id "") or of an existing one.
func (d *Definition) Open(ctx context.Context, env Env, id string) (Draft, error) {
	if d.Form == nil {
		return Draft{}, ErrReadOnly
	}
	return d.Form.Open(ctx, env, id)
}

// Save submits a draft the client kept. Changed tells the caller to reload
// the list rather than patch it.
func (d *Definition) Save(ctx context.Context, env Env, id string, raw []byte) (editor.Outcome, error) {
	if d.Form == nil {
		return editor.Outcome{}, ErrReadOnly
	}
	return d.Form.Save(ctx, env, id, raw)
}

// Delete removes one record once confirmed.
func (d *Definition) Delete(ctx context.Context, env Env, id string, confirmed bool) (editor.Outcome, error) {
	if d.Form == nil {
		return editor.Outcome{}, ErrReadOnly
	}
	return editor.Delete(ctx, env.Remote, d.Resource, id, func(string) bool { return confirmed })
}
