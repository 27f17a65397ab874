package contacts

import (
	"testing"

	"github.com/nativeiq/nativeiq/internal/session"
)

func TestResolvePassesThroughEmail(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")

	got := r.Resolve("bob@corp.com", "send it to bob", sess)
	if got != "bob@corp.com" {
		t.Errorf("got %q", got)
	}
}

func TestResolveCapitalizedNameFromBody(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")
	sess.AddContact(session.Contact{Name: "Sarah", Email: "sarah@corp.com", Source: "meeting"})

	got := r.Resolve("her", "Send the notes to Sarah, please.", sess)
	if got != "sarah@corp.com" {
		t.Errorf("got %q, want sarah@corp.com", got)
	}
}

func TestResolveCandidateNameLookup(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")
	sess.AddContact(session.Contact{Name: "Sarah", Email: "sarah@corp.com", Source: "meeting"})

	got := r.Resolve("sarah", "send the notes over", sess)
	if got != "sarah@corp.com" {
		t.Errorf("got %q, want sarah@corp.com", got)
	}
}

func TestResolveSingleAttendeeFallback(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")
	sess.SetLastMeeting(session.Meeting{Title: "sync", Attendees: []string{"dave@corp.com"}})

	got := r.Resolve("him", "send him the invite", sess)
	if got != "dave@corp.com" {
		t.Errorf("got %q, want dave@corp.com", got)
	}
}

func TestResolveMultipleAttendeesSubstringMatch(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")
	sess.SetLastMeeting(session.Meeting{
		Title:     "sync",
		Attendees: []string{"alice@corp.com", "dave@corp.com"},
	})

	if got := r.Resolve("dave", "send it", sess); got != "dave@corp.com" {
		t.Errorf("substring match got %q", got)
	}
	// No substring hit falls back to the first attendee.
	if got := r.Resolve("zoe", "send it", sess); got != "alice@corp.com" {
		t.Errorf("first-attendee fallback got %q", got)
	}
}

func TestResolvePlaceholderFallsThroughToContacts(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")
	sess.AddContact(session.Contact{Name: "Sarah", Email: "sarah@corp.com", Source: "meeting"})

	// A stand-in address from extraction must not win over a real contact.
	got := r.Resolve("user@example.com", "Forward the report to Sarah", sess)
	if got != "sarah@corp.com" {
		t.Errorf("got %q, want the contact-book hit", got)
	}
}

func TestIsPlaceholder(t *testing.T) {
	for addr, want := range map[string]bool{
		"user@example.com":     true,
		"someone@example.org":  true,
		"recipient@domain.com": true,
		"bob@example.com":      false,
		"user@corp.com":        false,
		"sarah.jones@corp.com": false,
		"not-an-email":         false,
	} {
		if got := IsPlaceholder(addr); got != want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestResolveFirstOfSeveralContactsWins(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")
	sess.AddContact(session.Contact{Name: "Sam", Email: "sam.ops@corp.com", Source: "meeting"})
	sess.AddContact(session.Contact{Name: "Sam", Email: "sam.hr@corp.com", Source: "email"})

	if got := r.Resolve("sam", "send it over", sess); got != "sam.ops@corp.com" {
		t.Errorf("got %q, want the first stored contact", got)
	}
}

func TestResolveUnresolvedReturnsInput(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")

	if got := r.Resolve("mystery", "no contacts here", sess); got != "mystery" {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestResolveBodyNameBeatsAttendees(t *testing.T) {
	r := NewResolver()
	sess := session.NewSession("u1")
	sess.AddContact(session.Contact{Name: "Sarah", Email: "sarah@corp.com", Source: "meeting"})
	sess.SetLastMeeting(session.Meeting{Title: "sync", Attendees: []string{"dave@corp.com"}})

	got := r.Resolve("them", "Forward this to Sarah today", sess)
	if got != "sarah@corp.com" {
		t.Errorf("got %q, contact book should outrank attendees", got)
	}
}
