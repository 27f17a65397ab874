package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nativeiq/nativeiq/internal/bdi"
	"github.com/nativeiq/nativeiq/internal/cooldown"
	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/timeline"
	"github.com/nativeiq/nativeiq/internal/tools"
)

// SendFunc delivers an agent-initiated message to a user.
type SendFunc func(ctx context.Context, userID, text string) error

// Proactive nudges users about upcoming meetings outside the synchronous
// pipeline. It runs from the scheduler loop, one user per invocation, and
// every send is double-guarded: the per-user cooldown must be clear AND the
// user must not have been active recently.
type Proactive struct {
	calendar       tools.CalendarAPI
	sessions       session.Store
	cooldowns      *cooldown.Manager
	timeline       *timeline.TimelineService
	send           SendFunc
	cooldownSecs   int
	activityWindow time.Duration
	log            *slog.Logger
}

func NewProactive(calendar tools.CalendarAPI, sessions session.Store, cooldowns *cooldown.Manager, tl *timeline.TimelineService, send SendFunc, cooldownSecs int, activityWindow time.Duration, log *slog.Logger) *Proactive {
	if log == nil {
		log = slog.Default()
	}
	if cooldownSecs <= 0 {
		cooldownSecs = 90
	}
	if activityWindow <= 0 {
		activityWindow = time.Hour
	}
	return &Proactive{
		calendar:       calendar,
		sessions:       sessions,
		cooldowns:      cooldowns,
		timeline:       tl,
		send:           send,
		cooldownSecs:   cooldownSecs,
		activityWindow: activityWindow,
		log:            log,
	}
}

func (p *Proactive) Role() string { return "proactive" }

func (p *Proactive) Perceive(ctx context.Context, messages []string, agentCtx map[string]any) ([]bdi.Belief, error) {
	if p.calendar == nil {
		return nil, nil
	}
	events, err := p.calendar.UpcomingEvents(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("upcoming events: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	titles := make([]string, 0, len(events))
	for _, ev := range events {
		titles = append(titles, fmt.Sprintf("%s at %s", ev.Title, ev.Time))
	}
	return []bdi.Belief{
		bdi.NewBelief(bdi.BeliefContext, "calendar", map[string]any{
			"upcoming": titles,
			"count":    len(events),
		}, 0.8),
	}, nil
}

func (p *Proactive) UpdateDesires(ctx context.Context, beliefs []bdi.Belief, agentCtx map[string]any) ([]bdi.Desire, error) {
	userID, _ := agentCtx[KeyUserID].(string)
	if userID == "" || len(beliefs) == 0 {
		return nil, nil
	}
	if p.cooldowns != nil && p.cooldowns.IsOnCooldown(userID) {
		return nil, nil
	}
	if p.sessions != nil {
		if sess := p.sessions.GetOrCreate(userID); cooldown.HasRecentUserActivity(sess, p.activityWindow) {
			return nil, nil
		}
	}
	return []bdi.Desire{
		bdi.NewDesire("remind_upcoming_meetings", 5, map[string]any{"user_id": userID}),
	}, nil
}

func (p *Proactive) Deliberate(ctx context.Context, beliefs []bdi.Belief, desires []bdi.Desire, intentions []bdi.Intention) ([]bdi.Intention, error) {
	if len(desires) == 0 {
		return nil, nil
	}
	var titles []string
	for _, b := range beliefs {
		if b.Source != "calendar" {
			continue
		}
		if list, ok := b.Content["upcoming"].([]string); ok {
			titles = list
		}
	}
	if len(titles) == 0 {
		return nil, nil
	}
	userID, _ := desires[0].Conditions["user_id"].(string)
	text := "Heads up, you have " + pluralMeetings(len(titles)) + " coming up: " + strings.Join(titles, "; ") + "."
	return []bdi.Intention{
		bdi.NewIntention(desires[0].ID, bdi.ActionSendProactiveMessage, map[string]any{
			"user_id": userID,
			"message": text,
		}),
	}, nil
}

func (p *Proactive) Act(ctx context.Context, intention bdi.Intention, agentCtx map[string]any) (*bdi.Result, error) {
	if intention.Action != bdi.ActionSendProactiveMessage {
		return &bdi.Result{Success: true}, nil
	}
	userID := tools.GetString(intention.Parameters, "user_id", "")
	text := tools.GetString(intention.Parameters, "message", "")
	if userID == "" || text == "" || p.send == nil {
		return &bdi.Result{Success: false, Error: "nothing to send"}, nil
	}

	if err := p.send(ctx, userID, text); err != nil {
		return nil, fmt.Errorf("proactive send: %w", err)
	}
	if p.cooldowns != nil {
		p.cooldowns.SetCooldown(userID, p.cooldownSecs)
	}
	if p.timeline != nil {
		channel, _ := agentCtx[KeyChannel].(string)
		p.timeline.RecordProactiveSend(userID, channel, text)
	}
	p.log.Info("Proactive message sent", "user", userID)
	return &bdi.Result{Success: true, Output: text}, nil
}

// Learn is a no-op; the scheduler path stops after Act.
func (p *Proactive) Learn(ctx context.Context, beliefs []bdi.Belief, intentions []bdi.Intention, agentCtx map[string]any) error {
	return nil
}

func pluralMeetings(n int) string {
	if n == 1 {
		return "a meeting"
	}
	return fmt.Sprintf("%d meetings", n)
}
