package auditoria

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/backoffice/internal/editor"
	"github.com/mostrador/backoffice/internal/listing"
)

type recordingRemover struct {
	paths   []string
	queries []url.Values
}

func (r *recordingRemover) Delete(ctx context.Context, path string, query url.Values) error {
	r.paths = append(r.paths, path)
	r.queries = append(r.queries, query)
	return nil
}

func TestCheckFilters(t *testing.T) {
	assert.Empty(t, CheckFilters(listing.Descriptor{Filters: map[string]string{"desde": "2024-01-01", "hasta": "2024-01-31"}}))
	assert.Contains(t, CheckFilters(listing.Descriptor{Filters: map[string]string{"desde": "2024-02-01", "hasta": "2024-01-31"}}), "hasta")
	assert.Contains(t, CheckFilters(listing.Descriptor{Filters: map[string]string{"usuario_id": "ana"}}), "usuario_id")
}

func TestPurgeNeedsConfirmationAndValidDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	remote := &recordingRemover{}
	ctx := context.Background()

	var verr *editor.ValidationError
	_, err := Purge(ctx, remote, "ayer", now, true)
	require.ErrorAs(t, err, &verr)
	_, err = Purge(ctx, remote, "2024-07-01", now, true)
	require.ErrorAs(t, err, &verr)
	_, err = Purge(ctx, remote, "2024-01-01", now, false)
	assert.ErrorIs(t, err, editor.ErrNotConfirmed)
	assert.Empty(t, remote.paths)

	out, err := Purge(ctx, remote, "2024-01-01", now, true)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, []string{Resource}, remote.paths)
	assert.Equal(t, "2024-01-01", remote.queries[0].Get("antes_de"))
}

func TestDefinitionIsReadOnly(t *testing.T) {
	def := Definition()
	assert.Nil(t, def.Form)
	_, size := def.NewFilters().Page()
	assert.Equal(t, 50, size)
}
