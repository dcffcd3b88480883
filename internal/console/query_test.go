package console

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/backoffice/internal/backoffice/agenda"
	"github.com/mostrador/backoffice/internal/editor"
)

func TestParseQuery(t *testing.T) {
	f := agenda.NewFilters()

	q, err := parseQuery(url.Values{
		"estado":    {"pendiente"},
		"search":    {"a", "balanza"},
		"page":      {"3"},
		"page_size": {"50"},
		"bogus":     {"x"},
	}, f)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"estado": "pendiente", "search": "balanza"}, q.Filters)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 50, q.PageSize)
	assert.Empty(t, q.Sort)

	q, err = parseQuery(url.Values{"dir": {"desc"}}, f)
	require.NoError(t, err)
	assert.Equal(t, agenda.ColVencimiento, q.Sort)
	assert.Equal(t, "desc", q.Dir)

	q, err = parseQuery(url.Values{"estado": {""}}, f)
	require.NoError(t, err)
	assert.Contains(t, q.Filters, "estado")

	_, err = parseQuery(url.Values{"page": {"0"}, "page_size": {"x"}}, f)
	var verr *editor.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "page")
	assert.Contains(t, verr.Fields, "page_size")
}
