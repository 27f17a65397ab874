package tools

import (
	"context"
	"fmt"
	"strings"
)

// ScheduleMeetingTool creates a calendar event. High risk: it only runs
// after the user approves the proposal.
type ScheduleMeetingTool struct {
	calendar CalendarAPI
}

// NewScheduleMeetingTool creates the schedule_meeting tool.
func NewScheduleMeetingTool(calendar CalendarAPI) *ScheduleMeetingTool {
	return &ScheduleMeetingTool{calendar: calendar}
}

func (t *ScheduleMeetingTool) Name() string { return "schedule_meeting" }

func (t *ScheduleMeetingTool) Description() string {
	return "Schedule a meeting on the user's calendar with a title, time and attendee list."
}

func (t *ScheduleMeetingTool) Tier() int { return TierHighRisk }

func (t *ScheduleMeetingTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Meeting title",
			},
			"time": map[string]any{
				"type":        "string",
				"description": "When the meeting takes place, e.g. 'tomorrow 2pm'",
			},
			"attendees": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Attendee email addresses",
			},
		},
		"required": []string{"title", "time"},
	}
}

func (t *ScheduleMeetingTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	title := GetString(params, "title", "Meeting")
	when := GetString(params, "time", "")
	attendees := GetStringSlice(params, "attendees")

	event, err := t.calendar.CreateEvent(ctx, CalendarEvent{
		Title:     title,
		Time:      when,
		Attendees: attendees,
	})
	if err != nil {
		return "", fmt.Errorf("schedule meeting: %w", err)
	}

	summary := fmt.Sprintf("Scheduled %q at %s", event.Title, event.Time)
	if len(event.Attendees) > 0 {
		summary += " with " + strings.Join(event.Attendees, ", ")
	}
	return summary, nil
}

// UpcomingMeetingsTool lists calendar events. Read-only, never gated
// behind approval.
type UpcomingMeetingsTool struct {
	calendar CalendarAPI
}

// NewUpcomingMeetingsTool creates the get_upcoming_meetings tool.
func NewUpcomingMeetingsTool(calendar CalendarAPI) *UpcomingMeetingsTool {
	return &UpcomingMeetingsTool{calendar: calendar}
}

func (t *UpcomingMeetingsTool) Name() string { return "get_upcoming_meetings" }

func (t *UpcomingMeetingsTool) Description() string {
	return "List the user's upcoming meetings."
}

func (t *UpcomingMeetingsTool) Tier() int { return TierReadOnly }

func (t *UpcomingMeetingsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of meetings to return",
			},
		},
	}
}

func (t *UpcomingMeetingsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	limit := GetInt(params, "limit", 5)

	events, err := t.calendar.UpcomingEvents(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("list meetings: %w", err)
	}
	if len(events) == 0 {
		return "No upcoming meetings.", nil
	}

	var sb strings.Builder
	for i, ev := range events {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s at %s", ev.Title, ev.Time)
		if len(ev.Attendees) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(ev.Attendees, ", "))
		}
	}
	return sb.String(), nil
}
