// Package listing holds the list side of a back-office screen: filter state,
// the query descriptor sent upstream, the page of rows that comes back and the
// fetcher that keeps only the newest response.
package listing

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Default pagination.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// PagingStyle names the pagination parameters an endpoint understands.
type PagingStyle int

const (
	// OffsetPaging sends limit/offset.
	OffsetPaging PagingStyle = iota
	// PagePaging sends page/pageSize.
	PagePaging
	// NoPaging sends nothing; the whole result set comes back and is cut locally.
	NoPaging
)

// SortStyle names the sort parameters an endpoint understands.
type SortStyle int

const (
	// OrderDir sends order/dir.
	OrderDir SortStyle = iota
	// OrderByDir sends order_by/order_dir.
	OrderByDir
	// LocalSort never sends the sort; it is applied to the fetched page.
	LocalSort
)

// Dialect captures the query conventions of one list endpoint.
type Dialect struct {
	Paging PagingStyle
	Sort   SortStyle
}

// Descriptor is the canonical set of filter, sort and pagination parameters
// driving one list fetch. Empty filter values are never present.
type Descriptor struct {
	Filters  map[string]string `json:"filters"`
	SortKey  string            `json:"sort_key,omitempty"`
	SortDir  string            `json:"sort_dir,omitempty"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Values serializes the descriptor for an endpoint speaking dialect d.
func (d Descriptor) Values(dialect Dialect) url.Values {
	values := url.Values{}
	for key, value := range d.Filters {
		if value == "" {
			continue
		}
		values.Set(key, value)
	}
	if d.SortKey != "" {
		switch dialect.Sort {
		case OrderDir:
			values.Set("order", d.SortKey)
			values.Set("dir", d.SortDir)
		case OrderByDir:
			values.Set("order_by", d.SortKey)
			values.Set("order_dir", d.SortDir)
		}
	}
	switch dialect.Paging {
	case OffsetPaging:
		values.Set("limit", strconv.Itoa(d.PageSize))
		values.Set("offset", strconv.Itoa((d.Page-1)*d.PageSize))
	case PagePaging:
		values.Set("page", strconv.Itoa(d.Page))
		values.Set("pageSize", strconv.Itoa(d.PageSize))
	}
	return values
}

// Filters owns the current criteria of one screen. It is plain state and
// cannot fail.
type Filters struct {
	keys     map[string]struct{}
	defaults map[string]string
	values   map[string]string

	defaultSortKey  string
	defaultSortDir  string
	defaultPageSize int

	sortKey  string
	sortDir  string
	page     int
	pageSize int
}

// NewFilters declares the filter keys of a screen and their defaults.
func NewFilters(keys []string, defaults map[string]any, pageSize int) *Filters {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	f := &Filters{
		keys:            make(map[string]struct{}, len(keys)),
		defaults:        make(map[string]string, len(defaults)),
		defaultPageSize: pageSize,
	}
	for _, k := range keys {
		f.keys[k] = struct{}{}
	}
	for k, v := range defaults {
		f.keys[k] = struct{}{}
		if s := FormatValue(v); s != "" {
			f.defaults[k] = s
		}
	}
	f.Reset()
	return f
}

// WithDefaultSort sets the sort restored by Reset and applies it.
func (f *Filters) WithDefaultSort(key, dir string) *Filters {
	f.defaultSortKey = key
	f.defaultSortDir = normalizeDir(dir)
	f.sortKey = f.defaultSortKey
	f.sortDir = f.defaultSortDir
	return f
}

// Reset restores defaults and the first page.
func (f *Filters) Reset() {
	f.values = make(map[string]string, len(f.defaults))
	for k, v := range f.defaults {
		f.values[k] = v
	}
	f.sortKey = f.defaultSortKey
	f.sortDir = f.defaultSortDir
	f.page = DefaultPage
	f.pageSize = f.defaultPageSize
}

// Keys returns the declared filter keys in sorted order.
func (f *Filters) Keys() []string {
	keys := make([]string, 0, len(f.keys))
	for k := range f.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Known reports whether name is a declared filter key.
func (f *Filters) Known(name string) bool {
	_, ok := f.keys[name]
	return ok
}

// SetFilter stores value under a declared key. A changed value sends the
// cursor back to the first page; unknown keys and unchanged values are
// ignored. It reports whether anything changed.
func (f *Filters) SetFilter(name string, value any) bool {
	if !f.Known(name) {
		return false
	}
	next := FormatValue(value)
	if f.values[name] == next {
		return false
	}
	if next == "" {
		delete(f.values, name)
	} else {
		f.values[name] = next
	}
	f.page = DefaultPage
	return true
}

// Value returns the current value of a filter, "" when unset.
func (f *Filters) Value(name string) string {
	return f.values[name]
}

// SetSort changes the sort column and direction. Sorting is a filter
// criterion, so a change sends the cursor back to the first page.
func (f *Filters) SetSort(key, dir string) bool {
	dir = normalizeDir(dir)
	if key == "" {
		dir = ""
	}
	if f.sortKey == key && f.sortDir == dir {
		return false
	}
	f.sortKey = key
	f.sortDir = dir
	f.page = DefaultPage
	return true
}

// ToggleSort selects key ascending, or flips the direction when key is
// already the sort column.
func (f *Filters) ToggleSort(key string) {
	if f.sortKey == key && f.sortDir == SortAsc {
		f.SetSort(key, SortDesc)
		return
	}
	f.SetSort(key, SortAsc)
}

// Sort returns the current sort column and direction.
func (f *Filters) Sort() (string, string) {
	return f.sortKey, f.sortDir
}

// SetPage moves the cursor without touching any other criterion.
func (f *Filters) SetPage(page int) {
	if page < 1 {
		page = DefaultPage
	}
	f.page = page
}

// SetPageSize changes the page size without touching the cursor.
func (f *Filters) SetPageSize(size int) {
	if size <= 0 {
		size = f.defaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	f.pageSize = size
}

// Page returns the current page number and page size.
func (f *Filters) Page() (int, int) {
	return f.page, f.pageSize
}

// Descriptor builds the canonical query descriptor.
func (f *Filters) Descriptor() Descriptor {
	filters := make(map[string]string, len(f.values))
	for k, v := range f.values {
		if v != "" {
			filters[k] = v
		}
	}
	return Descriptor{
		Filters:  filters,
		SortKey:  f.sortKey,
		SortDir:  f.sortDir,
		Page:     f.page,
		PageSize: f.pageSize,
	}
}

// Restore replaces the current criteria with a previously built descriptor.
// Keys that are no longer declared are dropped.
func (f *Filters) Restore(d Descriptor) {
	f.values = make(map[string]string, len(d.Filters))
	for k, v := range d.Filters {
		if f.Known(k) && v != "" {
			f.values[k] = v
		}
	}
	f.sortKey = d.SortKey
	f.sortDir = d.SortDir
	if f.sortKey != "" {
		f.sortDir = normalizeDir(d.SortDir)
	}
	f.SetPage(d.Page)
	f.SetPageSize(d.PageSize)
}

// MarshalJSON persists the current criteria as a descriptor.
func (f *Filters) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Descriptor())
}

// FormatValue renders a filter scalar the way it travels in a query string.
// nil and empty strings both mean "no filter".
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case *int64:
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.DateOnly)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func normalizeDir(dir string) string {
	if dir == SortDesc {
		return SortDesc
	}
	return SortAsc
}
