// Package provider implements language model clients for the analysis stages.
package provider

import (
	"context"
	"fmt"
	"time"
)

// LanguageModel is the capability the analysis stages depend on. Callers
// never talk to a vendor SDK directly; they ask for a completion and fall
// back to keyword heuristics when the call fails.
type LanguageModel interface {
	// Complete sends a system and user prompt and returns the raw text reply.
	Complete(ctx context.Context, system, user string) (string, error)
	// Name identifies the backing model for logging.
	Name() string
}

// ChatRequest contains the parameters for a chat completion request.
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatResponse contains the response from a chat completion request.
type ChatResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Timed wraps a LanguageModel with a per-call deadline so a stalled
// upstream cannot wedge an agent tick.
type Timed struct {
	inner   LanguageModel
	timeout time.Duration
}

// WithTimeout wraps model so every Complete call carries a deadline.
func WithTimeout(model LanguageModel, timeout time.Duration) *Timed {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Timed{inner: model, timeout: timeout}
}

func (t *Timed) Name() string { return t.inner.Name() }

func (t *Timed) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.inner.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	return out, nil
}
