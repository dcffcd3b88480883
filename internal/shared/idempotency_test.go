package shared

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitGuardRefusesConcurrentWrites(t *testing.T) {
	client, mr := newTestRedis(t)
	guard := NewSubmitGuard(client, time.Minute)
	ctx := context.Background()
	key := SubmitLockKey("sess", "agenda", "")
	assert.Equal(t, "submit:sess:agenda:new:lock", key)

	release, err := guard.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	other, err := guard.Acquire(ctx, SubmitLockKey("sess", "agenda", "4"))
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists(key))
	release2, err := guard.Acquire(ctx, key)
	require.NoError(t, err)
	release2()
}

func TestSubmitGuardExpiredLockIsNotReleasedByOldOwner(t *testing.T) {
	client, mr := newTestRedis(t)
	guard := NewSubmitGuard(client, time.Second)
	ctx := context.Background()
	key := SubmitLockKey("sess", "nomina", "1")

	stale, err := guard.Acquire(ctx, key)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := guard.Acquire(ctx, key)
	require.NoError(t, err)
	stale()
	assert.True(t, mr.Exists(key))
	fresh()
	assert.False(t, mr.Exists(key))
}

func TestNilGuardIsPermissive(t *testing.T) {
	var guard *SubmitGuard
	release, err := guard.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, Pagination{Page: 2, PerPage: 20, Total: 45, TotalPages: 3, HasPrev: true, HasNext: true}, p)
	assert.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 0, TotalPages: 0}, NewPagination(0, 0, -1))
}
