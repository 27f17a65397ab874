// Package cooldown throttles proactive messages so users are not spammed.
package cooldown

import (
	"sync"
	"time"

	"github.com/nativeiq/nativeiq/internal/session"
)

// Manager tracks per-user cooldown windows. Expired entries are removed
// lazily on the next check.
type Manager struct {
	until map[string]time.Time
	mu    sync.Mutex
	now   func() time.Time
}

// NewManager creates an empty cooldown manager.
func NewManager() *Manager {
	return &Manager{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

// SetCooldown suppresses proactive messages to userID for the given
// number of seconds.
func (m *Manager) SetCooldown(userID string, seconds int) {
	if seconds <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until[userID] = m.now().Add(time.Duration(seconds) * time.Second)
}

// IsOnCooldown reports whether userID is still inside a cooldown window.
func (m *Manager) IsOnCooldown(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline, ok := m.until[userID]
	if !ok {
		return false
	}
	if m.now().After(deadline) {
		delete(m.until, userID)
		return false
	}
	return true
}

// HasRecentUserActivity reports whether the user executed an action
// within the given window. This is a separate guard from the cooldown:
// a user who just scheduled a meeting does not need a proactive nudge.
func HasRecentUserActivity(sess *session.Session, window time.Duration) bool {
	last := sess.LastActivity()
	if last.IsZero() {
		return false
	}
	return time.Since(last) < window
}
