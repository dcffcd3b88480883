package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMemorySequencersKeepOneCounterPerSessionScreen(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := newMemorySequencers(time.Hour, clock.now)
	ctx := context.Background()

	seq := m.get("s1", "agenda")
	_, err := seq.Next(ctx)
	require.NoError(t, err)
	latest, err := m.get("s1", "agenda").Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest)

	latest, err = m.get("s1", "compras").Latest(ctx)
	require.NoError(t, err)
	assert.Zero(t, latest)
	assert.Equal(t, 1, m.size())
}

func TestMemorySequencersForgetAndSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := newMemorySequencers(time.Hour, clock.now)

	m.get("s1", "agenda")
	m.get("s2", "agenda")
	m.forget("s1")
	assert.Equal(t, 1, m.size())

	clock.t = clock.t.Add(30 * time.Minute)
	m.get("s3", "agenda")
	assert.Equal(t, 2, m.size())

	clock.t = clock.t.Add(45 * time.Minute)
	m.get("s3", "compras")
	assert.Equal(t, 1, m.size(), "s2 idle for over an hour is swept")
}
