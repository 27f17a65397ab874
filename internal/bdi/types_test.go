package bdi

import (
	"testing"
	"time"
)

func TestConsolidateDropsInvalid(t *testing.T) {
	beliefs := []Belief{
		NewBelief(BeliefObservation, "comm", map[string]any{"x": 1}, 0.9),
		NewBelief(BeliefPattern, "comm", map[string]any{"x": 2}, 0.05),
		NewBelief(BeliefKnowledge, "decision", map[string]any{"x": 3}, 0.1),
	}

	out := Consolidate(beliefs)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving belief, got %d", len(out))
	}
	for _, b := range out {
		if !b.Valid() {
			t.Fatalf("invalid belief survived consolidation: %+v", b)
		}
	}
}

func TestConsolidateDeduplicatesKeepingNewest(t *testing.T) {
	old := NewBelief(BeliefObservation, "comm", map[string]any{"v": "old"}, 0.8)
	old.Timestamp = time.Now().Add(-time.Hour)
	fresh := NewBelief(BeliefObservation, "comm", map[string]any{"v": "new"}, 0.8)
	other := NewBelief(BeliefObservation, "relationship", map[string]any{"v": "keep"}, 0.8)

	out := Consolidate([]Belief{old, other, fresh})
	if len(out) != 2 {
		t.Fatalf("expected 2 beliefs, got %d", len(out))
	}

	seen := map[string]bool{}
	for _, b := range out {
		k := string(b.Type) + "_" + b.Source
		if seen[k] {
			t.Fatalf("duplicate (type, source) key survived: %s", k)
		}
		seen[k] = true
		if b.Source == "comm" && b.Content["v"] != "new" {
			t.Fatalf("expected newest belief to win, got %v", b.Content["v"])
		}
	}
}

func TestIntentionNextStepOrderedScan(t *testing.T) {
	i := NewIntention("d1", ActionExecuteAutomation, nil)
	i.Plan = []PlanStep{
		{ID: "a", Status: StepCompleted},
		{ID: "b", Status: StepFailed},
		{ID: "c", Status: StepPending},
	}

	// Failed steps are revisited before pending ones: the scan returns the
	// first step that is not completed.
	step := i.NextStep()
	if step == nil || step.ID != "b" {
		t.Fatalf("expected step b, got %+v", step)
	}

	if !i.UpdateStep("b", StepCompleted) {
		t.Fatal("UpdateStep returned false for existing step")
	}
	step = i.NextStep()
	if step == nil || step.ID != "c" {
		t.Fatalf("expected step c, got %+v", step)
	}

	i.UpdateStep("c", StepCompleted)
	if i.NextStep() != nil {
		t.Fatal("expected nil after all steps completed")
	}
}

func TestDesireAchievableRequiresValidBelief(t *testing.T) {
	d := NewDesire("detect_patterns", 5, nil)
	if d.Achievable(nil) {
		t.Fatal("desire achievable with no beliefs")
	}
	weak := []Belief{NewBelief(BeliefObservation, "comm", nil, 0.05)}
	if d.Achievable(weak) {
		t.Fatal("desire achievable with only invalid beliefs")
	}
	ok := append(weak, NewBelief(BeliefObservation, "comm", nil, 0.5))
	if !d.Achievable(ok) {
		t.Fatal("desire not achievable with a valid belief")
	}
}
