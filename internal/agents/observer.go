// Package agents implements the BDI strategies that form the message
// pipeline: observer, analyzer, decision and execution, plus the
// scheduler-driven proactive agent.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nativeiq/nativeiq/internal/bdi"
	"github.com/nativeiq/nativeiq/internal/provider"
)

// Pattern names the observer can emit.
const (
	PatternMeetingRequest  = "meeting_request"
	PatternEmailRequest    = "email_request"
	PatternDocumentRequest = "document_request"
	PatternStatusQuery     = "status_query"
	PatternQuestion        = "question"
)

// Observer watches raw conversation and turns it into observation and
// pattern beliefs for the downstream stages.
type Observer struct {
	model provider.LanguageModel
	log   *slog.Logger

	observed int
}

// NewObserver creates the observer strategy. The model may be nil, in
// which case pattern detection is purely keyword based.
func NewObserver(model provider.LanguageModel, log *slog.Logger) *Observer {
	if log == nil {
		log = slog.Default()
	}
	return &Observer{model: model, log: log}
}

func (o *Observer) Role() string { return "observer" }

func (o *Observer) Perceive(ctx context.Context, messages []string, agentCtx map[string]any) ([]bdi.Belief, error) {
	var beliefs []bdi.Belief

	for _, msg := range messages {
		beliefs = append(beliefs, bdi.NewBelief(bdi.BeliefObservation, "communication", map[string]any{
			"message": msg,
		}, 0.9))
	}

	patterns := o.detectPatterns(ctx, messages)
	for _, p := range patterns {
		beliefs = append(beliefs, bdi.NewBelief(bdi.BeliefPattern, "pattern:"+p, map[string]any{
			"pattern": p,
		}, 0.8))
	}

	return beliefs, nil
}

// detectPatterns asks the language model to classify the conversation and
// falls back to keyword matching when the call fails.
func (o *Observer) detectPatterns(ctx context.Context, messages []string) []string {
	if o.model != nil && len(messages) > 0 {
		prompt := "Classify the user messages below. Reply with a comma-separated subset of: " +
			"meeting_request, email_request, document_request, status_query, question. Reply none if nothing applies.\n\n" +
			strings.Join(messages, "\n")
		reply, err := o.model.Complete(ctx, "You label conversational intents.", prompt)
		if err == nil {
			if patterns := parsePatternList(reply); len(patterns) > 0 {
				return patterns
			}
		} else {
			o.log.Debug("pattern model unavailable, using keywords", "error", err)
		}
	}
	return keywordPatterns(messages)
}

func parsePatternList(reply string) []string {
	known := map[string]struct{}{
		PatternMeetingRequest:  {},
		PatternEmailRequest:    {},
		PatternDocumentRequest: {},
		PatternStatusQuery:     {},
		PatternQuestion:        {},
	}
	var out []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(reply, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if _, ok := known[p]; !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func keywordPatterns(messages []string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, msg := range messages {
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "upcoming") && strings.Contains(lower, "meeting"),
			strings.Contains(lower, "my calendar"),
			strings.Contains(lower, "what meetings"):
			add(PatternStatusQuery)
		case strings.Contains(lower, "schedule") || strings.Contains(lower, "meeting") || strings.Contains(lower, "set up a call"):
			add(PatternMeetingRequest)
		}
		if strings.Contains(lower, "email") || strings.Contains(lower, "send invite") {
			add(PatternEmailRequest)
		}
		if strings.Contains(lower, "document") || strings.Contains(lower, "attach") ||
			strings.Contains(lower, "drive") || strings.Contains(lower, "find the file") {
			add(PatternDocumentRequest)
		}
		if strings.Contains(msg, "?") {
			add(PatternQuestion)
		}
	}
	return out
}

func (o *Observer) UpdateDesires(ctx context.Context, beliefs []bdi.Belief, agentCtx map[string]any) ([]bdi.Desire, error) {
	for _, b := range beliefs {
		if b.Type == bdi.BeliefPattern && b.Valid() {
			return []bdi.Desire{bdi.NewDesire("analyze_communication", 5, nil)}, nil
		}
	}
	return nil, nil
}

func (o *Observer) Deliberate(ctx context.Context, beliefs []bdi.Belief, desires []bdi.Desire, intentions []bdi.Intention) ([]bdi.Intention, error) {
	if len(desires) == 0 {
		return nil, nil
	}
	var patterns []string
	for _, b := range beliefs {
		if b.Type == bdi.BeliefPattern {
			if p, ok := b.Content["pattern"].(string); ok {
				patterns = append(patterns, p)
			}
		}
	}
	return []bdi.Intention{
		bdi.NewIntention(desires[0].ID, bdi.ActionAnalyzeCommunication, map[string]any{
			"patterns": patterns,
		}),
	}, nil
}

func (o *Observer) Act(ctx context.Context, intention bdi.Intention, agentCtx map[string]any) (*bdi.Result, error) {
	patterns, _ := intention.Parameters["patterns"].([]string)
	return &bdi.Result{
		Success: true,
		Output:  fmt.Sprintf("observed patterns: %s", strings.Join(patterns, ", ")),
	}, nil
}

func (o *Observer) Learn(ctx context.Context, beliefs []bdi.Belief, intentions []bdi.Intention, agentCtx map[string]any) error {
	for _, b := range beliefs {
		if b.Type == bdi.BeliefObservation {
			o.observed++
		}
	}
	o.log.Debug("observer learned", "total_observations", o.observed)
	return nil
}
