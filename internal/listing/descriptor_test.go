package listing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agendaFilters() *Filters {
	return NewFilters([]string{"search", "sucursal_id", "estado", "desde"}, map[string]any{"estado": "pendiente"}, 10).
		WithDefaultSort("fecha_vencimiento", SortAsc)
}

func TestFilterChangeResetsPage(t *testing.T) {
	f := agendaFilters()
	f.SetPage(4)

	changed := f.SetFilter("search", "carbón")
	require.True(t, changed)
	page, size := f.Page()
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	f.SetPage(3)
	f.SetSort("titulo", SortDesc)
	page, _ = f.Page()
	assert.Equal(t, 1, page, "sort is a filter criterion")
}

func TestPaginationDoesNotResetCursor(t *testing.T) {
	f := agendaFilters()
	f.SetPage(5)
	f.SetPageSize(50)
	page, size := f.Page()
	assert.Equal(t, 5, page)
	assert.Equal(t, 50, size)

	f.SetPageSize(10_000)
	_, size = f.Page()
	assert.Equal(t, MaxPageSize, size)
}

func TestSameValueAndUnknownKeysAreNoops(t *testing.T) {
	f := agendaFilters()
	f.SetPage(2)
	assert.False(t, f.SetFilter("estado", "pendiente"))
	assert.False(t, f.SetFilter("bogus", "x"))
	page, _ := f.Page()
	assert.Equal(t, 2, page)
}

func TestDescriptorOmitsEmptyValues(t *testing.T) {
	f := NewFilters([]string{"branch", "search", "activo"}, nil, 20)
	f.SetFilter("branch", "")
	f.SetFilter("search", "abc")
	f.SetFilter("activo", nil)

	d := f.Descriptor()
	assert.Equal(t, map[string]string{"search": "abc"}, d.Filters)

	values := d.Values(Dialect{Paging: NoPaging, Sort: LocalSort})
	assert.Equal(t, "search=abc", values.Encode())
}

func TestClearingFilterRemovesKey(t *testing.T) {
	f := agendaFilters()
	require.True(t, f.SetFilter("estado", ""))
	_, ok := f.Descriptor().Filters["estado"]
	assert.False(t, ok)
}

func TestDialects(t *testing.T) {
	f := agendaFilters()
	f.SetFilter("sucursal_id", int64(3))
	f.SetPage(3)

	offset := f.Descriptor().Values(Dialect{Paging: OffsetPaging, Sort: OrderDir})
	assert.Equal(t, "20", offset.Get("offset"))
	assert.Equal(t, "10", offset.Get("limit"))
	assert.Equal(t, "fecha_vencimiento", offset.Get("order"))
	assert.Equal(t, "asc", offset.Get("dir"))
	assert.Equal(t, "3", offset.Get("sucursal_id"))

	paged := f.Descriptor().Values(Dialect{Paging: PagePaging, Sort: OrderByDir})
	assert.Equal(t, "3", paged.Get("page"))
	assert.Equal(t, "10", paged.Get("pageSize"))
	assert.Equal(t, "fecha_vencimiento", paged.Get("order_by"))
	assert.Equal(t, "asc", paged.Get("order_dir"))
	assert.Empty(t, paged.Get("offset"))

	local := f.Descriptor().Values(Dialect{Paging: NoPaging, Sort: LocalSort})
	assert.Empty(t, local.Get("order"))
	assert.Empty(t, local.Get("page"))
}

func TestToggleSort(t *testing.T) {
	f := agendaFilters()
	f.ToggleSort("fecha_vencimiento")
	key, dir := f.Sort()
	assert.Equal(t, "fecha_vencimiento", key)
	assert.Equal(t, SortDesc, dir)

	f.ToggleSort("fecha_vencimiento")
	_, dir = f.Sort()
	assert.Equal(t, SortAsc, dir)

	f.ToggleSort("titulo")
	key, dir = f.Sort()
	assert.Equal(t, "titulo", key)
	assert.Equal(t, SortAsc, dir)
}

func TestResetAndRestore(t *testing.T) {
	f := agendaFilters()
	f.SetFilter("search", "x")
	f.SetPage(3)

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var d Descriptor
	require.NoError(t, json.Unmarshal(raw, &d))

	g := agendaFilters()
	g.Restore(d)
	assert.Equal(t, f.Descriptor(), g.Descriptor())

	g.Reset()
	assert.Equal(t, map[string]string{"estado": "pendiente"}, g.Descriptor().Filters)
	page, _ := g.Page()
	assert.Equal(t, 1, page)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "false", FormatValue(false))
	assert.Equal(t, "12.5", FormatValue(12.5))
	assert.Equal(t, "2024-01-05", FormatValue(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", FormatValue(time.Time{}))
	var missing *int64
	assert.Equal(t, "", FormatValue(missing))
}
