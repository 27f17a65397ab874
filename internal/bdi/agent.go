package bdi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Strategy supplies the role-specific behavior for the four BDI stages.
// Implementations must be safe to call from a single goroutine at a time;
// the Agent serializes ticks.
type Strategy interface {
	// Role returns the role name, e.g. "observer".
	Role() string
	// Perceive maps incoming messages and context to new beliefs.
	Perceive(ctx context.Context, messages []string, agentCtx map[string]any) ([]Belief, error)
	// UpdateDesires regenerates the desire set from the beliefs perceived
	// this tick. Beliefs carried from earlier ticks are memory, not
	// triggers: they never re-activate a desire on their own.
	UpdateDesires(ctx context.Context, beliefs []Belief, agentCtx map[string]any) ([]Desire, error)
	// Deliberate produces new intentions from this tick's beliefs; they are
	// appended to the carried set, never replacing it.
	Deliberate(ctx context.Context, beliefs []Belief, desires []Desire, intentions []Intention) ([]Intention, error)
	// Act executes a single intention.
	Act(ctx context.Context, intention Intention, agentCtx map[string]any) (*Result, error)
	// Learn updates persistent role knowledge from the tick's outcome.
	Learn(ctx context.Context, beliefs []Belief, intentions []Intention, agentCtx map[string]any) error
}

// Report summarizes one Process invocation.
type Report struct {
	AgentID         string      `json:"agent_id"`
	Role            string      `json:"role"`
	Status          AgentStatus `json:"status"`
	Success         bool        `json:"success"`
	Error           string      `json:"error,omitempty"`
	BeliefsCount    int         `json:"beliefs_count"`
	IntentionsCount int         `json:"intentions_count"`
	Result          *Result     `json:"result,omitempty"`
	Beliefs         []Belief    `json:"-"`
}

// Agent is the generic BDI processing engine. Every role is an Agent with a
// different Strategy.
type Agent struct {
	id       string
	strategy Strategy

	mu           sync.Mutex
	beliefs      []Belief
	desires      []Desire
	intentions   []Intention
	status       AgentStatus
	lastActivity time.Time
}

// NewAgent creates an idle agent for the given strategy.
func NewAgent(id string, strategy Strategy) *Agent {
	return &Agent{
		id:           id,
		strategy:     strategy,
		status:       StatusIdle,
		lastActivity: time.Now(),
	}
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Role returns the strategy role name.
func (a *Agent) Role() string { return a.strategy.Role() }

// Status returns the current agent status.
func (a *Agent) Status() AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Beliefs returns a copy of the carried belief set.
func (a *Agent) Beliefs() []Belief {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Belief, len(a.beliefs))
	copy(out, a.beliefs)
	return out
}

// Process runs one perceive → deliberate → act → learn tick. A failing
// stage stops the tick: the error is logged, the agent status is set to
// Error and the report carries success=false. Nothing is retried here;
// retries happen by the caller submitting a later input. A successful tick
// clears a previous Error status.
func (a *Agent) Process(ctx context.Context, messages []string, agentCtx map[string]any) Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	if agentCtx == nil {
		agentCtx = map[string]any{}
	}
	state := State{
		Messages:   messages,
		Beliefs:    append([]Belief(nil), a.beliefs...),
		Desires:    append([]Desire(nil), a.desires...),
		Intentions: append([]Intention(nil), a.intentions...),
		Context:    agentCtx,
		Status:     StatusProcessing,
	}
	a.status = StatusProcessing

	report := a.runTick(ctx, &state)

	// Carry consolidated state into the next tick. Settled intentions are
	// dropped here: only pending and active work survives, so a long-lived
	// agent does not accumulate its entire action history.
	a.beliefs = state.Beliefs
	a.desires = state.Desires
	a.intentions = unsettled(state.Intentions)
	a.lastActivity = time.Now()

	report.AgentID = a.id
	report.Role = a.strategy.Role()
	report.Status = a.status
	report.BeliefsCount = len(state.Beliefs)
	report.IntentionsCount = countPending(state.Intentions)
	report.Beliefs = append([]Belief(nil), state.Beliefs...)
	return report
}

func (a *Agent) runTick(ctx context.Context, state *State) (report Report) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Agent tick panicked", "agent", a.id, "panic", r)
			a.status = StatusError
			report = Report{Success: false, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	// Perceive.
	newBeliefs, err := a.strategy.Perceive(ctx, state.Messages, state.Context)
	if err != nil {
		return a.stageFailed("perceive", err)
	}
	fresh := Consolidate(newBeliefs)
	state.Beliefs = Consolidate(append(state.Beliefs, newBeliefs...))

	// Deliberate. Only this tick's perception drives desires and
	// intentions; carried beliefs inform Learn and downstream readers but
	// must not re-trigger an action that was already proposed.
	desires, err := a.strategy.UpdateDesires(ctx, fresh, state.Context)
	if err != nil {
		return a.stageFailed("deliberate", err)
	}
	state.Desires = desires
	newIntentions, err := a.strategy.Deliberate(ctx, fresh, state.Desires, state.Intentions)
	if err != nil {
		return a.stageFailed("deliberate", err)
	}
	state.Intentions = append(state.Intentions, newIntentions...)

	// Act: first pending intention in list order. The Desire priority field
	// is deliberately not consulted here; selection is FIFO.
	var result *Result
	if selected := selectPending(state.Intentions); selected >= 0 {
		intention := state.Intentions[selected]
		result, err = a.strategy.Act(ctx, intention, state.Context)
		if err != nil {
			state.Intentions[selected].Status = IntentionFailed
			return a.stageFailed("act", err)
		}
		if result != nil && result.Success {
			state.Intentions[selected].Status = IntentionCompleted
		} else {
			state.Intentions[selected].Status = IntentionFailed
		}
	}

	// Learn. A learn failure is logged but does not fail the tick; the
	// agent still settles back to idle.
	if err := a.strategy.Learn(ctx, state.Beliefs, state.Intentions, state.Context); err != nil {
		slog.Warn("Agent learn stage failed", "agent", a.id, "error", err)
	}

	a.status = StatusIdle
	state.Status = StatusIdle
	return Report{Success: true, Result: result}
}

func (a *Agent) stageFailed(stage string, err error) Report {
	slog.Error("Agent stage failed", "agent", a.id, "stage", stage, "error", err)
	a.status = StatusError
	return Report{Success: false, Error: fmt.Sprintf("%s: %v", stage, err)}
}

func selectPending(intentions []Intention) int {
	for i := range intentions {
		if intentions[i].Status == IntentionPending {
			return i
		}
	}
	return -1
}

func unsettled(intentions []Intention) []Intention {
	out := intentions[:0]
	for _, in := range intentions {
		if in.Status == IntentionPending || in.Status == IntentionActive {
			out = append(out, in)
		}
	}
	return out
}

func countPending(intentions []Intention) int {
	n := 0
	for i := range intentions {
		if intentions[i].Status == IntentionPending {
			n++
		}
	}
	return n
}
