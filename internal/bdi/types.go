// Package bdi implements the belief-desire-intention data model and the
// generic agent core shared by all agent roles.
package bdi

import (
	"time"

	"github.com/google/uuid"
)

// BeliefType classifies what kind of knowledge a belief carries.
type BeliefType string

const (
	BeliefObservation BeliefType = "observation"
	BeliefPattern     BeliefType = "pattern"
	BeliefContext     BeliefType = "context"
	BeliefKnowledge   BeliefType = "knowledge"
)

// minConfidence is the validity floor: beliefs at or below it are dropped
// during consolidation.
const minConfidence = 0.1

// Belief is a timestamped, confidence-scored observation or inference held
// by an agent.
type Belief struct {
	ID         string         `json:"id"`
	Type       BeliefType     `json:"type"`
	Content    map[string]any `json:"content"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Source     string         `json:"source"`
}

// NewBelief creates a belief with a fresh ID and the current timestamp.
func NewBelief(t BeliefType, source string, content map[string]any, confidence float64) Belief {
	return Belief{
		ID:         uuid.NewString(),
		Type:       t,
		Content:    content,
		Confidence: confidence,
		Timestamp:  time.Now(),
		Source:     source,
	}
}

// Valid reports whether the belief is still usable.
func (b Belief) Valid() bool {
	return b.Confidence > minConfidence
}

// key identifies a belief for deduplication.
func (b Belief) key() string {
	return string(b.Type) + "_" + b.Source
}

// Consolidate drops invalid beliefs and deduplicates by (type, source),
// keeping the belief with the most recent timestamp. Relative order of the
// surviving keys follows first appearance in the input.
func Consolidate(beliefs []Belief) []Belief {
	index := make(map[string]int, len(beliefs))
	out := make([]Belief, 0, len(beliefs))
	for _, b := range beliefs {
		if !b.Valid() {
			continue
		}
		k := b.key()
		if i, ok := index[k]; ok {
			if b.Timestamp.After(out[i].Timestamp) {
				out[i] = b
			}
			continue
		}
		index[k] = len(out)
		out = append(out, b)
	}
	return out
}

// Desire is a goal an agent might pursue, with a priority and activation
// conditions. Desires are regenerated every tick and not persisted.
type Desire struct {
	ID         string         `json:"id"`
	Goal       string         `json:"goal"`
	Priority   int            `json:"priority"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Deadline   *time.Time     `json:"deadline,omitempty"`
}

// NewDesire creates a desire with a fresh ID.
func NewDesire(goal string, priority int, conditions map[string]any) Desire {
	return Desire{
		ID:         uuid.NewString(),
		Goal:       goal,
		Priority:   priority,
		Conditions: conditions,
	}
}

// Achievable reports whether the desire can be pursued given the current
// beliefs. The default policy only requires at least one valid belief;
// strategies with stricter needs check conditions themselves.
func (d Desire) Achievable(beliefs []Belief) bool {
	for _, b := range beliefs {
		if b.Valid() {
			return true
		}
	}
	return false
}

// ActionKind is the closed set of actions an intention can commit to.
// Strategies switch over it exhaustively; adding a kind is a compile-time
// visible change.
type ActionKind int

const (
	ActionNone ActionKind = iota
	// Observer role.
	ActionAnalyzeCommunication
	ActionScanPatterns
	ActionSuggestAutomation
	// Analyzer role.
	ActionEvaluateOpportunity
	ActionRankAutomations
	// Decision role.
	ActionApproveAutomation
	ActionDeferAutomation
	// Execution role.
	ActionExecuteAutomation
	ActionMonitorExecutions
	// Proactive role.
	ActionSendProactiveMessage
)

var actionNames = map[ActionKind]string{
	ActionNone:                 "none",
	ActionAnalyzeCommunication: "analyze_communication",
	ActionScanPatterns:         "scan_patterns",
	ActionSuggestAutomation:    "suggest_automation",
	ActionEvaluateOpportunity:  "evaluate_opportunity",
	ActionRankAutomations:      "rank_automations",
	ActionApproveAutomation:    "approve_automation",
	ActionDeferAutomation:      "defer_automation",
	ActionExecuteAutomation:    "execute_automation",
	ActionMonitorExecutions:    "monitor_executions",
	ActionSendProactiveMessage: "send_proactive_message",
}

func (k ActionKind) String() string {
	if s, ok := actionNames[k]; ok {
		return s
	}
	return "unknown"
}

// StepStatus is the lifecycle state of a single plan step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// PlanStep is one ordered step in an intention's plan.
type PlanStep struct {
	ID     string     `json:"id"`
	Status StepStatus `json:"status"`
}

// IntentionStatus is the lifecycle state of an intention.
type IntentionStatus string

const (
	IntentionPending   IntentionStatus = "pending"
	IntentionActive    IntentionStatus = "active"
	IntentionCompleted IntentionStatus = "completed"
	IntentionFailed    IntentionStatus = "failed"
)

// Intention is a committed plan to satisfy a desire.
type Intention struct {
	ID         string          `json:"id"`
	DesireID   string          `json:"desire_id"`
	Action     ActionKind      `json:"action"`
	Parameters map[string]any  `json:"parameters,omitempty"`
	Plan       []PlanStep      `json:"plan,omitempty"`
	Status     IntentionStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewIntention creates a pending intention with a fresh ID.
func NewIntention(desireID string, action ActionKind, params map[string]any) Intention {
	return Intention{
		ID:         uuid.NewString(),
		DesireID:   desireID,
		Action:     action,
		Parameters: params,
		Status:     IntentionPending,
		CreatedAt:  time.Now(),
	}
}

// NextStep returns the first plan step that is not completed, or nil when
// the plan is exhausted. This is a plain ordered scan, not a priority queue.
func (i *Intention) NextStep() *PlanStep {
	for idx := range i.Plan {
		if i.Plan[idx].Status != StepCompleted {
			return &i.Plan[idx]
		}
	}
	return nil
}

// UpdateStep sets the status of the plan step with the given ID. Returns
// false when no step matches.
func (i *Intention) UpdateStep(stepID string, status StepStatus) bool {
	for idx := range i.Plan {
		if i.Plan[idx].ID == stepID {
			i.Plan[idx].Status = status
			return true
		}
	}
	return false
}

// AgentStatus is the coarse lifecycle state of an agent.
type AgentStatus string

const (
	StatusIdle       AgentStatus = "idle"
	StatusProcessing AgentStatus = "processing"
	StatusLearning   AgentStatus = "learning"
	StatusError      AgentStatus = "error"
)

// State is the transient per-tick state threaded through the four BDI
// stages. It is owned exclusively by one Process invocation.
type State struct {
	Messages   []string
	Beliefs    []Belief
	Desires    []Desire
	Intentions []Intention
	Context    map[string]any
	Status     AgentStatus
}

// Result is the outcome of executing one intention. Execution-role results
// carry the permission fields consumed by the approval manager.
type Result struct {
	Success            bool           `json:"success"`
	Output             string         `json:"output,omitempty"`
	Error              string         `json:"error,omitempty"`
	RequiresPermission bool           `json:"requires_permission,omitempty"`
	Intent             string         `json:"intent,omitempty"`
	ToolName           string         `json:"tool_name,omitempty"`
	Parameters         map[string]any `json:"parameters,omitempty"`
	PermissionMessage  string         `json:"permission_message,omitempty"`
	StatusQuery        bool           `json:"status_query,omitempty"`
}
