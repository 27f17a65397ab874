package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nativeiq/nativeiq/internal/approval"
	"github.com/nativeiq/nativeiq/internal/bus"
	"github.com/nativeiq/nativeiq/internal/config"
	"github.com/nativeiq/nativeiq/internal/events"
	"github.com/nativeiq/nativeiq/internal/provider"
	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/tools"
)

type loopFixture struct {
	loop     *Loop
	calendar *tools.FakeCalendar
	mailer   *tools.FakeMailer
	sessions session.Store
	events   *events.MemoryPublisher
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	return newLoopFixtureWithModel(t, nil)
}

func newLoopFixtureWithModel(t *testing.T, model provider.LanguageModel) *loopFixture {
	t.Helper()

	cal := tools.NewFakeCalendar()
	mail := tools.NewFakeMailer()
	reg := tools.NewRegistry()
	reg.Register(tools.NewScheduleMeetingTool(cal))
	reg.Register(tools.NewUpcomingMeetingsTool(cal))
	reg.Register(tools.NewEmailTool(mail))

	sessions := session.NewMemoryStore()
	approvals := approval.NewManager(reg, sessions, nil, time.Minute, config.DefaultChainKeywords)
	pub := events.NewMemoryPublisher()

	loop := NewLoop(LoopOptions{
		Bus:       bus.NewMessageBus(),
		Model:     model,
		Registry:  reg,
		Sessions:  sessions,
		Approvals: approvals,
		Events:    pub,
	})
	return &loopFixture{loop: loop, calendar: cal, mailer: mail, sessions: sessions, events: pub}
}

func (f *loopFixture) say(t *testing.T, userID, text string) string {
	t.Helper()
	return f.loop.Handle(context.Background(), &bus.InboundMessage{
		Channel: "test",
		UserID:  userID,
		ChatID:  userID,
		Content: text,
	})
}

func TestLoopMeetingApprovalRoundTrip(t *testing.T) {
	f := newLoopFixture(t)

	reply := f.say(t, "u1", `Schedule a meeting with bob@example.com tomorrow at 3pm about "Planning"`)
	if !strings.Contains(reply, "(yes/no)") {
		t.Fatalf("expected an approval prompt, got %q", reply)
	}
	if events, _ := f.calendar.UpcomingEvents(context.Background(), 10); len(events) != 0 {
		t.Fatal("meeting created before approval")
	}

	reply = f.say(t, "u1", "yes")
	if !strings.Contains(reply, "Planning") {
		t.Fatalf("approval reply = %q", reply)
	}
	events, _ := f.calendar.UpcomingEvents(context.Background(), 10)
	if len(events) != 1 {
		t.Fatalf("calendar events = %d, want 1", len(events))
	}

	sess := f.sessions.GetOrCreate("u1")
	if m, ok := sess.LastMeeting(); !ok || m.Title != "Planning" {
		t.Fatalf("last meeting = %+v ok=%v", m, ok)
	}
}

func TestLoopDenyDropsAction(t *testing.T) {
	f := newLoopFixture(t)

	f.say(t, "u1", "Can you schedule a meeting tomorrow at 10am?")
	reply := f.say(t, "u1", "no")
	if !strings.Contains(reply, "won't") {
		t.Fatalf("deny reply = %q", reply)
	}
	if events, _ := f.calendar.UpcomingEvents(context.Background(), 10); len(events) != 0 {
		t.Fatal("denied meeting was created")
	}
}

func TestLoopStatusQueryBypassesApproval(t *testing.T) {
	f := newLoopFixture(t)
	f.calendar.CreateEvent(context.Background(), tools.CalendarEvent{Title: "Standup", Time: "9am"})

	reply := f.say(t, "u1", "What are my upcoming meetings?")
	if strings.Contains(reply, "(yes/no)") {
		t.Fatalf("read-only query was approval-gated: %q", reply)
	}
	if !strings.Contains(reply, "Standup") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestLoopChattyMessageGetsNoReply(t *testing.T) {
	f := newLoopFixture(t)
	if reply := f.say(t, "u1", "good morning"); reply != "" {
		t.Fatalf("reply = %q, want silence", reply)
	}
}

func TestLoopFollowUpAfterApprovalStaysQuiet(t *testing.T) {
	f := newLoopFixture(t)

	f.say(t, "u1", `Schedule a meeting with bob@example.com tomorrow at 3pm about "Planning"`)
	f.say(t, "u1", "yes")

	// The meeting request lives on in the pipeline's carried beliefs; a
	// later unrelated message must not resurface the approval prompt.
	reply := f.say(t, "u1", "Thanks, that is all for today.")
	if strings.Contains(reply, "(yes/no)") {
		t.Fatalf("settled action proposed again: %q", reply)
	}
	if reply != "" {
		t.Fatalf("reply = %q, want silence without a model", reply)
	}
	if events, _ := f.calendar.UpcomingEvents(context.Background(), 10); len(events) != 1 {
		t.Fatalf("calendar events = %d, want the single approved one", len(events))
	}
}

func TestLoopConversationalFallback(t *testing.T) {
	mock := provider.NewMockProvider("Doing fine. What can I do for you?")
	f := newLoopFixtureWithModel(t, mock)

	reply := f.say(t, "u1", "How are you?")
	if reply != mock.Reply {
		t.Fatalf("reply = %q, want the model's answer", reply)
	}
	if strings.Contains(reply, "pattern") {
		t.Fatalf("stage internals leaked into the reply: %q", reply)
	}
}

func TestLoopEmailWithoutRecipientAsksWho(t *testing.T) {
	f := newLoopFixture(t)

	reply := f.say(t, "u1", "Please send him an email about the budget")
	if !strings.Contains(reply, "Who should receive") {
		t.Fatalf("reply = %q, want a recipient question", reply)
	}
	if strings.Contains(reply, "(yes/no)") {
		t.Fatalf("clarification was approval-gated: %q", reply)
	}

	// No pending action was stored, so an affirmative goes nowhere.
	if reply := f.say(t, "u1", "yes"); strings.Contains(reply, "email") {
		t.Fatalf("stray approval sent something: %q", reply)
	}
	if len(f.mailer.Sent) != 0 {
		t.Fatalf("mailer sent %d emails, want 0", len(f.mailer.Sent))
	}
}

func TestLoopPublishesAuditTrail(t *testing.T) {
	f := newLoopFixture(t)

	f.say(t, "u1", "Please schedule a meeting tomorrow at 9am")
	f.say(t, "u1", "yes")

	var types []string
	for _, ev := range f.events.Events() {
		types = append(types, ev.Type)
	}
	joined := strings.Join(types, ",")
	for _, want := range []string{events.TypeMessageReceived, events.TypeApprovalRequest, events.TypeApprovalResolved} {
		if !strings.Contains(joined, want) {
			t.Fatalf("audit trail %v missing %s", types, want)
		}
	}
}

func TestLoopRunRepliesOverBus(t *testing.T) {
	f := newLoopFixture(t)
	b := f.loop.bus

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go f.loop.Run(ctx)

	b.PublishInbound(&bus.InboundMessage{
		Channel: "test",
		UserID:  "u1",
		ChatID:  "c1",
		Content: "Schedule a meeting tomorrow at 9am",
	})

	got := make(chan *bus.OutboundMessage, 1)
	b.Subscribe("test", func(msg *bus.OutboundMessage) { got <- msg })
	go b.DispatchOutbound(ctx)

	select {
	case msg := <-got:
		if !strings.Contains(msg.Content, "(yes/no)") {
			t.Fatalf("outbound = %q", msg.Content)
		}
		if msg.ChatID != "c1" {
			t.Fatalf("chat id = %q", msg.ChatID)
		}
	case <-ctx.Done():
		t.Fatal("no outbound message before timeout")
	}
}
