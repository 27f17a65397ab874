package cooldown

import (
	"testing"
	"time"

	"github.com/nativeiq/nativeiq/internal/session"
)

func TestCooldownWindow(t *testing.T) {
	m := NewManager()
	clock := time.Now()
	m.now = func() time.Time { return clock }

	if m.IsOnCooldown("alice") {
		t.Error("fresh user should not be on cooldown")
	}

	m.SetCooldown("alice", 300)
	if !m.IsOnCooldown("alice") {
		t.Error("user should be on cooldown right after set")
	}
	if m.IsOnCooldown("bob") {
		t.Error("cooldown leaked to another user")
	}

	clock = clock.Add(301 * time.Second)
	if m.IsOnCooldown("alice") {
		t.Error("cooldown should have expired")
	}

	// Lazy delete: the expired entry is gone.
	m.mu.Lock()
	_, present := m.until["alice"]
	m.mu.Unlock()
	if present {
		t.Error("expired entry not removed")
	}
}

func TestSetCooldownIgnoresNonPositive(t *testing.T) {
	m := NewManager()
	m.SetCooldown("alice", 0)
	m.SetCooldown("alice", -5)
	if m.IsOnCooldown("alice") {
		t.Error("non-positive duration should not set a cooldown")
	}
}

func TestHasRecentUserActivity(t *testing.T) {
	sess := session.NewSession("alice")
	if HasRecentUserActivity(sess, time.Hour) {
		t.Error("no activity recorded yet")
	}

	sess.SetLastMeeting(session.Meeting{Title: "sync", ScheduledAt: time.Now().Add(-10 * time.Minute)})
	if !HasRecentUserActivity(sess, time.Hour) {
		t.Error("meeting 10m ago is recent activity within 1h")
	}
	if HasRecentUserActivity(sess, 5*time.Minute) {
		t.Error("meeting 10m ago is outside a 5m window")
	}
}
