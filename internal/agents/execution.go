package agents

import (
	"context"
	"log/slog"

	"github.com/nativeiq/nativeiq/internal/bdi"
	"github.com/nativeiq/nativeiq/internal/tools"
)

// Execution runs the read-only actions the decision stage cleared. Actions
// flagged for approval never reach this stage; they wait in the approval
// manager instead.
type Execution struct {
	registry *tools.Registry
	log      *slog.Logger
}

// NewExecution creates the execution strategy.
func NewExecution(registry *tools.Registry, log *slog.Logger) *Execution {
	if log == nil {
		log = slog.Default()
	}
	return &Execution{registry: registry, log: log}
}

func (e *Execution) Role() string { return "execution" }

func (e *Execution) Perceive(ctx context.Context, messages []string, agentCtx map[string]any) ([]bdi.Belief, error) {
	decision, _ := agentCtx[KeyDecisionResult].(*bdi.Result)
	if decision == nil || decision.ToolName == "" || decision.RequiresPermission {
		return nil, nil
	}
	return []bdi.Belief{
		bdi.NewBelief(bdi.BeliefContext, "cleared_action", map[string]any{
			"tool":       decision.ToolName,
			"parameters": decision.Parameters,
		}, 1.0),
	}, nil
}

func (e *Execution) UpdateDesires(ctx context.Context, beliefs []bdi.Belief, agentCtx map[string]any) ([]bdi.Desire, error) {
	if len(beliefs) == 0 {
		return nil, nil
	}
	return []bdi.Desire{bdi.NewDesire("execute_cleared_action", 9, nil)}, nil
}

func (e *Execution) Deliberate(ctx context.Context, beliefs []bdi.Belief, desires []bdi.Desire, intentions []bdi.Intention) ([]bdi.Intention, error) {
	if len(desires) == 0 {
		return nil, nil
	}
	for _, b := range beliefs {
		if b.Source != "cleared_action" {
			continue
		}
		tool, _ := b.Content["tool"].(string)
		params, _ := b.Content["parameters"].(map[string]any)
		return []bdi.Intention{
			bdi.NewIntention(desires[0].ID, bdi.ActionExecuteAutomation, map[string]any{
				"tool":       tool,
				"parameters": params,
			}),
		}, nil
	}
	return nil, nil
}

func (e *Execution) Act(ctx context.Context, intention bdi.Intention, agentCtx map[string]any) (*bdi.Result, error) {
	tool, _ := intention.Parameters["tool"].(string)
	params, _ := intention.Parameters["parameters"].(map[string]any)

	output, err := e.registry.Execute(ctx, tool, params)
	if err != nil {
		return &bdi.Result{
			Success:  false,
			ToolName: tool,
			Error:    err.Error(),
		}, nil
	}
	return &bdi.Result{
		Success:  true,
		ToolName: tool,
		Intent:   tool,
		Output:   output,
	}, nil
}

func (e *Execution) Learn(ctx context.Context, beliefs []bdi.Belief, intentions []bdi.Intention, agentCtx map[string]any) error {
	e.log.Debug("execution learned", "executed", len(intentions))
	return nil
}
