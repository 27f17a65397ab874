package agents

import (
	"context"
	"log/slog"
	"time"

	"github.com/nativeiq/nativeiq/internal/bdi"
)

// Context keys each stage publishes its output under. Downstream stages
// read them straight out of the shared agent context.
const (
	KeyObserverPatterns      = "observer_patterns"
	KeyAnalyzerOpportunities = "analyzer_opportunities"
	KeyDecisionResult        = "decision_result"
	KeyUserID                = "user_id"
	KeyLatestMessage         = "latest_message"
	KeyChannel               = "channel"
	KeyTickStarted           = "tick_started"
)

// freshBeliefs filters an upstream belief list down to the beliefs
// perceived during the current pipeline run. The full carried list stays
// visible in the context for memory and audit, but only the current turn
// may trigger new work; without this, a meeting request would keep
// re-proposing itself on every later message. Contexts without a tick
// timestamp pass everything through.
func freshBeliefs(beliefs []bdi.Belief, agentCtx map[string]any) []bdi.Belief {
	started, ok := agentCtx[KeyTickStarted].(time.Time)
	if !ok {
		return beliefs
	}
	var out []bdi.Belief
	for _, b := range beliefs {
		if !b.Timestamp.Before(started) {
			out = append(out, b)
		}
	}
	return out
}

// Coordinator runs the four-stage agent chain over a batch of messages.
// Stages run in order; a failed stage leaves its context key absent and
// the remaining stages still run against whatever upstream produced.
type Coordinator struct {
	observer  *bdi.Agent
	analyzer  *bdi.Agent
	decision  *bdi.Agent
	execution *bdi.Agent
	log       *slog.Logger
}

// PipelineResult carries the per-stage reports, the shared context the
// stages wrote into, and the final actionable result.
type PipelineResult struct {
	Reports map[string]bdi.Report
	Final   *bdi.Result
	Context map[string]any
}

func NewCoordinator(observer *Observer, analyzer *Analyzer, decision *Decision, execution *Execution, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		observer:  bdi.NewAgent("observer-1", observer),
		analyzer:  bdi.NewAgent("analyzer-1", analyzer),
		decision:  bdi.NewAgent("decision-1", decision),
		execution: bdi.NewAgent("execution-1", execution),
		log:       log,
	}
}

// Run pushes the messages through observer, analyzer, decision and
// execution. Only decision and execution results can become the final
// result: the earlier stages' Act outputs are working notes for the
// context map, never a user-facing reply. Among those two, the last
// non-nil result wins, so a decision that needs approval is not
// overwritten by an execution stage that had nothing cleared to run.
func (c *Coordinator) Run(ctx context.Context, userID string, messages []string, agentCtx map[string]any) PipelineResult {
	if agentCtx == nil {
		agentCtx = map[string]any{}
	}
	agentCtx[KeyUserID] = userID
	agentCtx[KeyTickStarted] = time.Now()
	if len(messages) > 0 {
		agentCtx[KeyLatestMessage] = messages[len(messages)-1]
	}

	out := PipelineResult{
		Reports: make(map[string]bdi.Report, 4),
		Context: agentCtx,
	}

	stages := []struct {
		agent *bdi.Agent
		key   string
		final bool
	}{
		{c.observer, KeyObserverPatterns, false},
		{c.analyzer, KeyAnalyzerOpportunities, false},
		{c.decision, "", true}, // publishes its result under decision_result below
		{c.execution, "", true},
	}

	for _, stage := range stages {
		report := stage.agent.Process(ctx, messages, agentCtx)
		out.Reports[report.Role] = report
		if !report.Success {
			c.log.Warn("Pipeline stage failed", "stage", report.Role, "error", report.Error)
			continue
		}
		if stage.key != "" {
			agentCtx[stage.key] = report.Beliefs
		}
		if report.Result != nil {
			agentCtx[report.Role+"_result"] = report.Result
			if stage.final {
				out.Final = report.Result
			}
		}
	}
	return out
}
