package session

import (
	"sync"
	"time"
)

const sweepEvery = time.Minute

type entry struct {
	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

// Manager keeps quiz states in memory, one per visitor session ID. States
// idle for longer than ttl are dropped.
type Manager struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]*entry
	lastSweep time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{ttl: ttl, now: time.Now, entries: map[string]*entry{}}
}

// WithClock swaps the time source. Tests use it.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Now() time.Time { return m.now() }

// With runs fn against the visitor's state while holding that visitor's lock.
// The state is created on first use.
func (m *Manager) With(id string, fn func(st *State)) {
	now := m.now()
	m.mu.Lock()
	m.sweepLocked(now)
	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}
	e.lastSeen = now
	m.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// Drop discards a visitor's state. The next With starts a fresh session.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) sweepLocked(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < sweepEvery {
		return
	}
	m.lastSweep = now
	for id, e := range m.entries {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.entries, id)
		}
	}
}
