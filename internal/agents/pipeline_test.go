package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/nativeiq/nativeiq/internal/contacts"
	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/tools"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *tools.FakeCalendar, session.Store) {
	t.Helper()

	cal := tools.NewFakeCalendar()
	reg := tools.NewRegistry()
	reg.Register(tools.NewScheduleMeetingTool(cal))
	reg.Register(tools.NewUpcomingMeetingsTool(cal))
	reg.Register(tools.NewEmailTool(tools.NewFakeMailer()))
	reg.Register(tools.NewDriveSearchTool(tools.NewFakeDrive(
		tools.DriveFile{ID: "f1", Name: "Q3 budget.xlsx", Owner: "u1"},
	)))

	sessions := session.NewMemoryStore()
	coord := NewCoordinator(
		NewObserver(nil, nil),
		NewAnalyzer(nil),
		NewDecision(reg, sessions, contacts.NewResolver(), nil),
		NewExecution(reg, nil),
		nil,
	)
	return coord, cal, sessions
}

func TestPipelineMeetingRequestNeedsApproval(t *testing.T) {
	coord, cal, _ := newTestCoordinator(t)

	msg := `Schedule a meeting with bob@example.com tomorrow at 3pm about "Q3 Planning"`
	out := coord.Run(context.Background(), "u1", []string{msg}, nil)

	if out.Final == nil {
		t.Fatal("expected a final result")
	}
	if !out.Final.RequiresPermission {
		t.Fatal("side-effecting meeting action must require approval")
	}
	if out.Final.ToolName != "schedule_meeting" {
		t.Fatalf("tool = %q, want schedule_meeting", out.Final.ToolName)
	}
	if got := tools.GetString(out.Final.Parameters, "title", ""); got != "Q3 Planning" {
		t.Fatalf("title = %q", got)
	}
	attendees := tools.GetStringSlice(out.Final.Parameters, "attendees")
	if len(attendees) != 1 || attendees[0] != "bob@example.com" {
		t.Fatalf("attendees = %v", attendees)
	}
	if !strings.Contains(out.Final.PermissionMessage, "(yes/no)") {
		t.Fatalf("permission message = %q", out.Final.PermissionMessage)
	}

	// Nothing may touch the calendar before approval.
	events, _ := cal.UpcomingEvents(context.Background(), 10)
	if len(events) != 0 {
		t.Fatalf("calendar has %d events before approval", len(events))
	}
}

func TestPipelineStatusQueryRunsImmediately(t *testing.T) {
	coord, cal, _ := newTestCoordinator(t)
	cal.CreateEvent(context.Background(), tools.CalendarEvent{Title: "Standup", Time: "9am"})

	out := coord.Run(context.Background(), "u1", []string{"What are my upcoming meetings?"}, nil)

	if out.Final == nil || !out.Final.Success {
		t.Fatalf("final = %+v", out.Final)
	}
	if out.Final.RequiresPermission {
		t.Fatal("read-only status query must not be approval-gated")
	}
	if out.Final.ToolName != "get_upcoming_meetings" {
		t.Fatalf("tool = %q", out.Final.ToolName)
	}
	if !strings.Contains(out.Final.Output, "Standup") {
		t.Fatalf("output = %q", out.Final.Output)
	}
}

func TestPipelineEmailRecipientResolvedFromContacts(t *testing.T) {
	coord, _, sessions := newTestCoordinator(t)

	sess := sessions.GetOrCreate("u1")
	sess.AddContact(session.Contact{Name: "Alice", Email: "alice@example.com", Source: "meeting"})
	if err := sessions.Save(sess); err != nil {
		t.Fatal(err)
	}

	out := coord.Run(context.Background(), "u1", []string{`Send an email to Alice about "Budget review"`}, nil)

	if out.Final == nil || !out.Final.RequiresPermission {
		t.Fatalf("final = %+v", out.Final)
	}
	if out.Final.ToolName != "email_tool" {
		t.Fatalf("tool = %q", out.Final.ToolName)
	}
	if got := tools.GetString(out.Final.Parameters, "recipient", ""); got != "alice@example.com" {
		t.Fatalf("recipient = %q", got)
	}
	if got := tools.GetString(out.Final.Parameters, "subject", ""); got != "Budget review" {
		t.Fatalf("subject = %q", got)
	}
}

func TestPipelineSmallTalkProducesNoAction(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	out := coord.Run(context.Background(), "u1", []string{"good morning"}, nil)

	if out.Final != nil && out.Final.ToolName != "" {
		t.Fatalf("unexpected action %q", out.Final.ToolName)
	}
	if _, ok := out.Context[KeyObserverPatterns]; !ok {
		t.Fatal("observer stage should still publish its beliefs")
	}
	for _, role := range []string{"observer", "analyzer", "decision", "execution"} {
		if r, ok := out.Reports[role]; !ok || !r.Success {
			t.Fatalf("stage %s report = %+v", role, r)
		}
	}
}

func TestPipelineFollowUpDoesNotRepropose(t *testing.T) {
	coord, cal, _ := newTestCoordinator(t)

	first := coord.Run(context.Background(), "u1", []string{"Can we schedule a meeting tomorrow at 3pm?"}, nil)
	if first.Final == nil || !first.Final.RequiresPermission {
		t.Fatalf("first message final = %+v, want approval request", first.Final)
	}

	// The meeting pattern is still in the observer's carried beliefs, but
	// an unrelated follow-up on the same coordinator must not resurface it.
	second := coord.Run(context.Background(), "u1", []string{"Thanks, that is all for today."}, nil)
	if second.Final != nil {
		t.Fatalf("follow-up final = %+v, want none", second.Final)
	}
	if events, _ := cal.UpcomingEvents(context.Background(), 10); len(events) != 0 {
		t.Fatalf("calendar has %d events, none were approved", len(events))
	}
}

func TestPipelineMeetingWithoutTimeAsksForOne(t *testing.T) {
	coord, cal, _ := newTestCoordinator(t)

	out := coord.Run(context.Background(), "u1", []string{"Schedule a meeting with the design team"}, nil)

	if out.Final == nil {
		t.Fatal("expected a clarification result")
	}
	if out.Final.RequiresPermission || out.Final.ToolName != "" {
		t.Fatalf("underspecified request proposed an action: %+v", out.Final)
	}
	if !strings.Contains(out.Final.Output, "when") {
		t.Fatalf("clarification = %q, want a question about the time", out.Final.Output)
	}
	if events, _ := cal.UpcomingEvents(context.Background(), 10); len(events) != 0 {
		t.Fatal("clarification must not touch the calendar")
	}
}

func TestPipelineEmailWithoutRecipientAsksForOne(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	out := coord.Run(context.Background(), "u1", []string{"Please send him an email about the budget"}, nil)

	if out.Final == nil {
		t.Fatal("expected a clarification result")
	}
	if out.Final.RequiresPermission || out.Final.ToolName != "" {
		t.Fatalf("email with no resolvable recipient proposed an action: %+v", out.Final)
	}
	if !strings.Contains(out.Final.Output, "Who should receive") {
		t.Fatalf("clarification = %q", out.Final.Output)
	}
}

func TestPipelineDocumentRequestSearchesDrive(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	out := coord.Run(context.Background(), "u1", []string{`Find "Q3 budget" in my drive`}, nil)

	if out.Final == nil || !out.Final.Success {
		t.Fatalf("final = %+v", out.Final)
	}
	if out.Final.RequiresPermission {
		t.Fatal("read-only drive search must not be approval-gated")
	}
	if out.Final.ToolName != "drive_search" {
		t.Fatalf("tool = %q, want drive_search", out.Final.ToolName)
	}
	if !strings.Contains(out.Final.Output, "Q3 budget.xlsx") {
		t.Fatalf("output = %q", out.Final.Output)
	}
}

func TestPipelineStagesShareContext(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	out := coord.Run(context.Background(), "u1", []string{"Can we schedule a meeting tomorrow?"}, nil)

	if out.Context[KeyUserID] != "u1" {
		t.Fatalf("user id = %v", out.Context[KeyUserID])
	}
	if _, ok := out.Context[KeyAnalyzerOpportunities]; !ok {
		t.Fatal("analyzer beliefs missing from context")
	}
	if _, ok := out.Context[KeyDecisionResult]; !ok {
		t.Fatal("decision result missing from context")
	}
}
