package console

import (
	"sync"
	"time"

	"github.com/mostrador/backoffice/internal/listing"
)

// memorySequencers keeps in-process counters per session screen for
// single-instance deployments without redis. Sessions idle for longer than
// ttl are swept, and logout drops a session at once.
type memorySequencers struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	sessions  map[string]*sessionSequencers
}

type sessionSequencers struct {
	used    time.Time
	screens map[string]*listing.MemorySequencer
}

func newMemorySequencers(ttl time.Duration, now func() time.Time) *memorySequencers {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &memorySequencers{ttl: ttl, now: now, lastSweep: now(), sessions: make(map[string]*sessionSequencers)}
}

func (m *memorySequencers) get(sessionID, screen string) *listing.MemorySequencer {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	entry, ok := m.sessions[sessionID]
	if !ok {
		entry = &sessionSequencers{screens: make(map[string]*listing.MemorySequencer)}
		m.sessions[sessionID] = entry
	}
	entry.used = now
	seq, ok := entry.screens[screen]
	if !ok {
		seq = &listing.MemorySequencer{}
		entry.screens[screen] = seq
	}
	return seq
}

func (m *memorySequencers) forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *memorySequencers) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweep runs at most once per ttl; callers hold mu.
func (m *memorySequencers) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, entry := range m.sessions {
		if now.Sub(entry.used) >= m.ttl {
			delete(m.sessions, id)
		}
	}
}
