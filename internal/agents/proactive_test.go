package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nativeiq/nativeiq/internal/bdi"
	"github.com/nativeiq/nativeiq/internal/cooldown"
	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/tools"
)

type sentMessage struct {
	userID string
	text   string
}

// runProactiveTick drives the scheduler sub-sequence: perceive, desires,
// deliberate, act. Learn is intentionally never called on this path.
func runProactiveTick(t *testing.T, p *Proactive, userID string) *bdi.Result {
	t.Helper()
	ctx := context.Background()
	agentCtx := map[string]any{KeyUserID: userID, KeyChannel: "test"}

	beliefs, err := p.Perceive(ctx, nil, agentCtx)
	if err != nil {
		t.Fatalf("perceive: %v", err)
	}
	desires, err := p.UpdateDesires(ctx, beliefs, agentCtx)
	if err != nil {
		t.Fatalf("desires: %v", err)
	}
	intentions, err := p.Deliberate(ctx, beliefs, desires, nil)
	if err != nil {
		t.Fatalf("deliberate: %v", err)
	}
	if len(intentions) == 0 {
		return nil
	}
	result, err := p.Act(ctx, intentions[0], agentCtx)
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	return result
}

func TestProactiveSendsReminderAndSetsCooldown(t *testing.T) {
	cal := tools.NewFakeCalendar()
	cal.CreateEvent(context.Background(), tools.CalendarEvent{Title: "Board sync", Time: "Friday 10am"})

	sessions := session.NewMemoryStore()
	cooldowns := cooldown.NewManager()
	var sent []sentMessage
	send := func(ctx context.Context, userID, text string) error {
		sent = append(sent, sentMessage{userID, text})
		return nil
	}

	p := NewProactive(cal, sessions, cooldowns, nil, send, 60, time.Hour, nil)

	result := runProactiveTick(t, p, "u1")
	if result == nil || !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if len(sent) != 1 || sent[0].userID != "u1" {
		t.Fatalf("sent = %+v", sent)
	}
	if !strings.Contains(sent[0].text, "Board sync") {
		t.Fatalf("text = %q", sent[0].text)
	}
	if !cooldowns.IsOnCooldown("u1") {
		t.Fatal("cooldown must be set after a proactive send")
	}

	// Second tick inside the cooldown window stays quiet.
	if result := runProactiveTick(t, p, "u1"); result != nil {
		t.Fatalf("cooldown ignored, result = %+v", result)
	}
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
}

func TestProactiveSuppressedByRecentActivity(t *testing.T) {
	cal := tools.NewFakeCalendar()
	cal.CreateEvent(context.Background(), tools.CalendarEvent{Title: "1:1", Time: "3pm"})

	sessions := session.NewMemoryStore()
	sess := sessions.GetOrCreate("u1")
	sess.SetLastMeeting(session.Meeting{Title: "Just now", ScheduledAt: time.Now()})
	if err := sessions.Save(sess); err != nil {
		t.Fatal(err)
	}

	var sent []sentMessage
	send := func(ctx context.Context, userID, text string) error {
		sent = append(sent, sentMessage{userID, text})
		return nil
	}
	p := NewProactive(cal, sessions, cooldown.NewManager(), nil, send, 60, time.Hour, nil)

	if result := runProactiveTick(t, p, "u1"); result != nil {
		t.Fatalf("recent activity ignored, result = %+v", result)
	}
	if len(sent) != 0 {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestProactiveQuietWithEmptyCalendar(t *testing.T) {
	p := NewProactive(tools.NewFakeCalendar(), session.NewMemoryStore(), cooldown.NewManager(), nil,
		func(ctx context.Context, userID, text string) error {
			t.Fatal("must not send")
			return nil
		}, 60, time.Hour, nil)

	if result := runProactiveTick(t, p, "u1"); result != nil {
		t.Fatalf("result = %+v", result)
	}
}
