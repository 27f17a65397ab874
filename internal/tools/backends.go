package tools

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CalendarEvent is a scheduled meeting as seen by the calendar backend.
type CalendarEvent struct {
	ID        string
	Title     string
	Time      string
	Attendees []string
	CreatedAt time.Time
}

// CalendarAPI is the boundary to the user's calendar.
type CalendarAPI interface {
	CreateEvent(ctx context.Context, event CalendarEvent) (CalendarEvent, error)
	UpcomingEvents(ctx context.Context, limit int) ([]CalendarEvent, error)
}

// OutgoingEmail is a message handed to the mail backend.
type OutgoingEmail struct {
	To      string
	Subject string
	Body    string
}

// MailAPI is the boundary to the user's mail account.
type MailAPI interface {
	Send(ctx context.Context, email OutgoingEmail) error
}

// DriveFile is a document returned by a drive search.
type DriveFile struct {
	ID    string
	Name  string
	Owner string
}

// DriveAPI is the boundary to the user's document store.
type DriveAPI interface {
	Search(ctx context.Context, query string, limit int) ([]DriveFile, error)
}

// FakeCalendar is an in-memory CalendarAPI for tests and offline runs.
type FakeCalendar struct {
	mu     sync.Mutex
	events []CalendarEvent
	nextID int
	Err    error
}

// NewFakeCalendar creates an empty in-memory calendar.
func NewFakeCalendar() *FakeCalendar {
	return &FakeCalendar{}
}

func (f *FakeCalendar) CreateEvent(ctx context.Context, event CalendarEvent) (CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return CalendarEvent{}, f.Err
	}
	f.nextID++
	event.ID = "evt_" + strconv.Itoa(f.nextID)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	f.events = append(f.events, event)
	return event, nil
}

func (f *FakeCalendar) UpcomingEvents(ctx context.Context, limit int) ([]CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]CalendarEvent, len(f.events))
	copy(out, f.events)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FakeMailer is an in-memory MailAPI that records sent messages.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []OutgoingEmail
	Err  error
}

// NewFakeMailer creates an empty in-memory mailer.
func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

func (f *FakeMailer) Send(ctx context.Context, email OutgoingEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Sent = append(f.Sent, email)
	return nil
}

// FakeDrive is an in-memory DriveAPI matching on file name substrings.
type FakeDrive struct {
	Files []DriveFile
	Err   error
}

// NewFakeDrive creates a drive fake seeded with files.
func NewFakeDrive(files ...DriveFile) *FakeDrive {
	return &FakeDrive{Files: files}
}

func (f *FakeDrive) Search(ctx context.Context, query string, limit int) ([]DriveFile, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	q := strings.ToLower(query)
	var out []DriveFile
	for _, file := range f.Files {
		if q == "" || strings.Contains(strings.ToLower(file.Name), q) {
			out = append(out, file)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
