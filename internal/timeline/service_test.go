package timeline

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestService(t *testing.T) *TimelineService {
	t.Helper()
	svc, err := NewTimelineService(filepath.Join(t.TempDir(), "timeline.db"))
	if err != nil {
		t.Fatalf("open timeline: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestRecordAndQueryEvents(t *testing.T) {
	svc := newTestService(t)

	svc.RecordEvent(TimelineEvent{UserID: "alice", Channel: "telegram", EventType: EventMessage, ContentText: "hello"})
	svc.RecordEvent(TimelineEvent{UserID: "alice", Channel: "telegram", EventType: EventAction, ContentText: "scheduled meeting"})
	svc.RecordEvent(TimelineEvent{UserID: "bob", Channel: "slack", EventType: EventMessage, ContentText: "hi"})

	events, err := svc.RecentEvents("alice", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.UserID != "alice" {
			t.Errorf("event leaked from another user: %+v", ev)
		}
	}
}

func TestApprovalLifecycle(t *testing.T) {
	svc := newTestService(t)

	id := svc.RecordApproval("alice", "alice", "schedule_meeting", `{"title":"sync"}`, "")
	if id == "" {
		t.Fatal("empty approval id")
	}

	pending, err := svc.PendingApprovals()
	if err != nil {
		t.Fatalf("PendingApprovals: %v", err)
	}
	if len(pending) != 1 || pending[0].Tool != "schedule_meeting" {
		t.Fatalf("pending = %+v", pending)
	}

	svc.ResolveApproval(id, ApprovalApproved)
	pending, _ = svc.PendingApprovals()
	if len(pending) != 0 {
		t.Errorf("approval still pending after resolve: %+v", pending)
	}

	// Resolving again must not flip the status.
	svc.ResolveApproval(id, ApprovalDenied)
	var status string
	if err := svc.db.QueryRow(`SELECT status FROM approval_requests WHERE approval_id = ?`, id).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != ApprovalApproved {
		t.Errorf("status = %q, want approved to stick", status)
	}
}

func TestStartupExpiresLeftoverPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timeline.db")

	svc, err := NewTimelineService(path)
	if err != nil {
		t.Fatal(err)
	}
	svc.RecordApproval("alice", "alice", "email_tool", "{}", "schedule_meeting")
	svc.Close()

	// A restart cannot recover in-memory pending slots.
	svc2, err := NewTimelineService(path)
	if err != nil {
		t.Fatal(err)
	}
	defer svc2.Close()

	pending, err := svc2.PendingApprovals()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("leftover approvals not expired: %+v", pending)
	}
}

func TestProactiveSendCount(t *testing.T) {
	svc := newTestService(t)

	svc.RecordProactiveSend("alice", "telegram", "you have a gap at 3pm")
	svc.RecordProactiveSend("alice", "telegram", "standup in 10 minutes")

	count, err := svc.ProactiveSendCount("alice", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ProactiveSendCount: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	svc := newTestService(t)

	if _, ok := svc.GetSetting("mode"); ok {
		t.Error("unexpected setting present")
	}
	if err := svc.SetSetting("mode", "active"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetSetting("mode", "paused"); err != nil {
		t.Fatal(err)
	}
	if v, ok := svc.GetSetting("mode"); !ok || v != "paused" {
		t.Errorf("setting = %q ok=%v", v, ok)
	}
}
