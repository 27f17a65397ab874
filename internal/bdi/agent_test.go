package bdi

import (
	"context"
	"errors"
	"testing"
)

// scriptStrategy is a controllable strategy for exercising the agent core.
type scriptStrategy struct {
	perceiveErr   error
	actErr        error
	learnErr      error
	actSuccess    bool
	beliefs       []Belief
	intentions    []Intention
	actedOn       []ActionKind
	deliberatedOn []Belief
	learnedCalled bool
}

func (s *scriptStrategy) Role() string { return "script" }

func (s *scriptStrategy) Perceive(ctx context.Context, messages []string, agentCtx map[string]any) ([]Belief, error) {
	if s.perceiveErr != nil {
		return nil, s.perceiveErr
	}
	return s.beliefs, nil
}

func (s *scriptStrategy) UpdateDesires(ctx context.Context, beliefs []Belief, agentCtx map[string]any) ([]Desire, error) {
	return []Desire{NewDesire("goal", 1, nil)}, nil
}

func (s *scriptStrategy) Deliberate(ctx context.Context, beliefs []Belief, desires []Desire, intentions []Intention) ([]Intention, error) {
	s.deliberatedOn = beliefs
	out := s.intentions
	s.intentions = nil // only emit once
	return out, nil
}

func (s *scriptStrategy) Act(ctx context.Context, intention Intention, agentCtx map[string]any) (*Result, error) {
	s.actedOn = append(s.actedOn, intention.Action)
	if s.actErr != nil {
		return nil, s.actErr
	}
	return &Result{Success: s.actSuccess}, nil
}

func (s *scriptStrategy) Learn(ctx context.Context, beliefs []Belief, intentions []Intention, agentCtx map[string]any) error {
	s.learnedCalled = true
	return s.learnErr
}

func TestProcessHappyPath(t *testing.T) {
	strat := &scriptStrategy{
		actSuccess: true,
		beliefs:    []Belief{NewBelief(BeliefObservation, "comm", nil, 0.9)},
		intentions: []Intention{NewIntention("d", ActionExecuteAutomation, nil)},
	}
	agent := NewAgent("exec_001", strat)

	report := agent.Process(context.Background(), []string{"hello"}, nil)
	if !report.Success {
		t.Fatalf("expected success, got error %q", report.Error)
	}
	if report.Status != StatusIdle {
		t.Fatalf("expected idle after tick, got %s", report.Status)
	}
	if report.BeliefsCount != 1 {
		t.Fatalf("expected 1 belief, got %d", report.BeliefsCount)
	}
	if report.IntentionsCount != 0 {
		t.Fatalf("expected no pending intentions, got %d", report.IntentionsCount)
	}
	if !strat.learnedCalled {
		t.Fatal("learn stage not invoked")
	}
}

func TestProcessFIFOSelection(t *testing.T) {
	first := NewIntention("d1", ActionAnalyzeCommunication, nil)
	second := NewIntention("d2", ActionSuggestAutomation, nil)
	strat := &scriptStrategy{actSuccess: true, intentions: []Intention{first, second}}
	agent := NewAgent("obs_001", strat)

	agent.Process(context.Background(), nil, nil)
	agent.Process(context.Background(), nil, nil)

	if len(strat.actedOn) != 2 {
		t.Fatalf("expected 2 acts, got %d", len(strat.actedOn))
	}
	if strat.actedOn[0] != ActionAnalyzeCommunication || strat.actedOn[1] != ActionSuggestAutomation {
		t.Fatalf("intentions executed out of order: %v", strat.actedOn)
	}
}

func TestProcessDeliberatesOnlyOnFreshBeliefs(t *testing.T) {
	strat := &scriptStrategy{
		actSuccess: true,
		beliefs:    []Belief{NewBelief(BeliefPattern, "pattern:meeting", nil, 0.8)},
	}
	agent := NewAgent("obs_001", strat)
	agent.Process(context.Background(), []string{"schedule it"}, nil)

	// The first tick's pattern is carried, but the second tick deliberates
	// over its own perception alone.
	strat.beliefs = []Belief{NewBelief(BeliefObservation, "comm", nil, 0.9)}
	agent.Process(context.Background(), []string{"thanks"}, nil)

	if len(strat.deliberatedOn) != 1 || strat.deliberatedOn[0].Source != "comm" {
		t.Fatalf("deliberated on %+v, want only this tick's belief", strat.deliberatedOn)
	}
	if len(agent.Beliefs()) != 2 {
		t.Fatalf("carried beliefs = %d, want both ticks remembered", len(agent.Beliefs()))
	}
}

func TestProcessDropsSettledIntentions(t *testing.T) {
	strat := &scriptStrategy{actSuccess: true}
	agent := NewAgent("exec_001", strat)

	for i := 0; i < 3; i++ {
		strat.intentions = []Intention{NewIntention("d", ActionExecuteAutomation, nil)}
		agent.Process(context.Background(), nil, nil)
	}

	if len(strat.actedOn) != 3 {
		t.Fatalf("acts = %d, want one per tick", len(strat.actedOn))
	}
	agent.mu.Lock()
	carried := len(agent.intentions)
	agent.mu.Unlock()
	if carried != 0 {
		t.Fatalf("completed intentions carried across ticks: %d", carried)
	}
}

func TestProcessStageErrorSetsErrorStatus(t *testing.T) {
	strat := &scriptStrategy{perceiveErr: errors.New("llm unavailable")}
	agent := NewAgent("obs_001", strat)

	report := agent.Process(context.Background(), []string{"x"}, nil)
	if report.Success {
		t.Fatal("expected failure")
	}
	if agent.Status() != StatusError {
		t.Fatalf("expected error status, got %s", agent.Status())
	}

	// The next successful tick clears the error.
	strat.perceiveErr = nil
	strat.actSuccess = true
	report = agent.Process(context.Background(), nil, nil)
	if !report.Success || agent.Status() != StatusIdle {
		t.Fatalf("error status not cleared: success=%v status=%s", report.Success, agent.Status())
	}
}

func TestProcessActErrorMarksIntentionFailed(t *testing.T) {
	strat := &scriptStrategy{
		actErr:     errors.New("tool exploded"),
		intentions: []Intention{NewIntention("d", ActionExecuteAutomation, nil)},
	}
	agent := NewAgent("exec_001", strat)

	report := agent.Process(context.Background(), nil, nil)
	if report.Success {
		t.Fatal("expected failure")
	}
	if report.IntentionsCount != 0 {
		t.Fatalf("failed intention still pending: %d", report.IntentionsCount)
	}
}

func TestProcessLearnErrorDoesNotFailTick(t *testing.T) {
	strat := &scriptStrategy{learnErr: errors.New("counter store down"), actSuccess: true}
	agent := NewAgent("obs_001", strat)

	report := agent.Process(context.Background(), nil, nil)
	if !report.Success {
		t.Fatalf("learn error should not fail tick: %q", report.Error)
	}
	if agent.Status() != StatusIdle {
		t.Fatalf("expected idle, got %s", agent.Status())
	}
}
