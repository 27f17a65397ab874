package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nativeiq/nativeiq/internal/bdi"
)

// Opportunity kinds the analyzer can surface.
const (
	OpportunityScheduleMeeting = "schedule_meeting"
	OpportunitySendEmail       = "send_email"
	OpportunityDocumentLookup  = "document_lookup"
	OpportunityStatusReport    = "status_report"
)

// Analyzer turns the observer's patterns into scored automation
// opportunities.
type Analyzer struct {
	log *slog.Logger
}

// NewAnalyzer creates the analyzer strategy.
func NewAnalyzer(log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{log: log}
}

func (a *Analyzer) Role() string { return "analyzer" }

func (a *Analyzer) Perceive(ctx context.Context, messages []string, agentCtx map[string]any) ([]bdi.Belief, error) {
	upstream, _ := agentCtx[KeyObserverPatterns].([]bdi.Belief)

	// Only patterns observed this turn become opportunities; patterns the
	// observer still remembers from earlier messages already had theirs.
	var beliefs []bdi.Belief
	for _, b := range freshBeliefs(upstream, agentCtx) {
		if b.Type != bdi.BeliefPattern || !b.Valid() {
			continue
		}
		pattern, _ := b.Content["pattern"].(string)
		if kind, score := opportunityFor(pattern); kind != "" {
			beliefs = append(beliefs, bdi.NewBelief(bdi.BeliefKnowledge, "opportunity:"+kind, map[string]any{
				"opportunity": kind,
				"score":       score,
			}, score))
		}
	}
	return beliefs, nil
}

func opportunityFor(pattern string) (string, float64) {
	switch pattern {
	case PatternMeetingRequest:
		return OpportunityScheduleMeeting, 0.9
	case PatternEmailRequest:
		return OpportunitySendEmail, 0.85
	case PatternDocumentRequest:
		return OpportunityDocumentLookup, 0.75
	case PatternStatusQuery:
		return OpportunityStatusReport, 0.7
	default:
		return "", 0
	}
}

func (a *Analyzer) UpdateDesires(ctx context.Context, beliefs []bdi.Belief, agentCtx map[string]any) ([]bdi.Desire, error) {
	if len(beliefs) == 0 {
		return nil, nil
	}
	return []bdi.Desire{bdi.NewDesire("evaluate_opportunities", 5, nil)}, nil
}

func (a *Analyzer) Deliberate(ctx context.Context, beliefs []bdi.Belief, desires []bdi.Desire, intentions []bdi.Intention) ([]bdi.Intention, error) {
	if len(desires) == 0 {
		return nil, nil
	}
	var kinds []string
	for _, b := range beliefs {
		if kind, ok := b.Content["opportunity"].(string); ok {
			kinds = append(kinds, kind)
		}
	}
	return []bdi.Intention{
		bdi.NewIntention(desires[0].ID, bdi.ActionEvaluateOpportunity, map[string]any{
			"opportunities": kinds,
		}),
	}, nil
}

func (a *Analyzer) Act(ctx context.Context, intention bdi.Intention, agentCtx map[string]any) (*bdi.Result, error) {
	kinds, _ := intention.Parameters["opportunities"].([]string)
	return &bdi.Result{
		Success: true,
		Output:  fmt.Sprintf("found %d automation opportunities", len(kinds)),
	}, nil
}

func (a *Analyzer) Learn(ctx context.Context, beliefs []bdi.Belief, intentions []bdi.Intention, agentCtx map[string]any) error {
	a.log.Debug("analyzer learned", "opportunities", len(beliefs))
	return nil
}
