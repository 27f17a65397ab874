package tools

import (
	"context"
	"strings"
	"testing"
)

func newTestRegistry() (*Registry, *FakeCalendar, *FakeMailer) {
	cal := NewFakeCalendar()
	mail := NewFakeMailer()
	reg := NewRegistry()
	reg.Register(NewScheduleMeetingTool(cal))
	reg.Register(NewUpcomingMeetingsTool(cal))
	reg.Register(NewEmailTool(mail))
	reg.Register(NewDriveSearchTool(NewFakeDrive(
		DriveFile{ID: "1", Name: "Q3 Roadmap.pdf", Owner: "alice"},
		DriveFile{ID: "2", Name: "Budget.xlsx", Owner: "bob"},
	)))
	return reg, cal, mail
}

func TestRegistryApprovalTiers(t *testing.T) {
	reg, _, _ := newTestRegistry()

	cases := map[string]bool{
		"schedule_meeting":      true,
		"email_tool":            true,
		"get_upcoming_meetings": false,
		"drive_search":          false,
		"unknown_tool":          true,
	}
	for name, want := range cases {
		if got := reg.RequiresApproval(name); got != want {
			t.Errorf("RequiresApproval(%s) = %v, want %v", name, got, want)
		}
	}
}

func TestScheduleMeetingCreatesEvent(t *testing.T) {
	reg, cal, _ := newTestRegistry()

	out, err := reg.Execute(context.Background(), "schedule_meeting", map[string]any{
		"title":     "Q3 Review",
		"time":      "tomorrow 2pm",
		"attendees": []any{"bob@corp.com"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Q3 Review") || !strings.Contains(out, "bob@corp.com") {
		t.Errorf("summary = %q", out)
	}

	events, _ := cal.UpcomingEvents(context.Background(), 0)
	if len(events) != 1 || events[0].Title != "Q3 Review" {
		t.Errorf("events = %+v", events)
	}
}

func TestEmailToolSendsAndValidates(t *testing.T) {
	reg, _, mail := newTestRegistry()

	if _, err := reg.Execute(context.Background(), "email_tool", map[string]any{"subject": "hi"}); err == nil {
		t.Error("expected error for missing recipient")
	}

	out, err := reg.Execute(context.Background(), "email_tool", map[string]any{
		"recipient": "bob@corp.com",
		"subject":   "Meeting Invite: Q3 Review",
		"body":      "see you there",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "bob@corp.com") {
		t.Errorf("result = %q", out)
	}
	if len(mail.Sent) != 1 || mail.Sent[0].Subject != "Meeting Invite: Q3 Review" {
		t.Errorf("sent = %+v", mail.Sent)
	}
}

func TestDriveSearchMatchesSubstring(t *testing.T) {
	reg, _, _ := newTestRegistry()

	out, err := reg.Execute(context.Background(), "drive_search", map[string]any{"query": "roadmap"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Q3 Roadmap.pdf") || strings.Contains(out, "Budget") {
		t.Errorf("results = %q", out)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg, _, _ := newTestRegistry()
	if _, err := reg.Execute(context.Background(), "nope", nil); err == nil {
		t.Error("expected error for unknown tool")
	}
}
