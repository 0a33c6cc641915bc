package conversation

import (
	"sync"
	"time"
)

// Manager owns the per-session conversation contexts. Contexts are created
// on first acquire and evicted after sitting idle; while held, a session's
// lock serializes message handling for that session.
type Manager struct {
	mu       sync.Mutex
	window   int
	now      func() time.Time
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu   sync.Mutex
	conv *Context
}

// Session is a locked handle on one conversation context. Release must be
// called once handling of the current message is finished.
type Session struct {
	entry *sessionEntry
	once  sync.Once
}

func NewManager(window int, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		window:   window,
		now:      now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Acquire returns the session's context, creating it on first use, with the
// per-session lock held. Concurrent acquires of the same session block
// until the previous holder releases.
func (m *Manager) Acquire(sessionID string) *Session {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{conv: NewContext(sessionID, m.window, m.now())}
		m.sessions[sessionID] = entry
	}
	m.mu.Unlock()

	entry.mu.Lock()
	entry.conv.Touch(m.now())
	return &Session{entry: entry}
}

func (s *Session) Context() *Context {
	return s.entry.conv
}

func (s *Session) Release() {
	s.once.Do(s.entry.mu.Unlock)
}

// EvictIdle drops sessions whose last activity is older than maxIdle and
// reports how many were removed. Held sessions are skipped.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().UTC().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, entry := range m.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		idle := entry.conv.LastActive().Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
