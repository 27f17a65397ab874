// Package agent implements the core message loop: it consumes inbound
// messages off the bus, settles approval replies first, and routes
// everything else through the agent pipeline.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nativeiq/nativeiq/internal/agents"
	"github.com/nativeiq/nativeiq/internal/approval"
	"github.com/nativeiq/nativeiq/internal/bdi"
	"github.com/nativeiq/nativeiq/internal/bus"
	"github.com/nativeiq/nativeiq/internal/contacts"
	"github.com/nativeiq/nativeiq/internal/events"
	"github.com/nativeiq/nativeiq/internal/provider"
	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/timeline"
	"github.com/nativeiq/nativeiq/internal/tools"
)

// LoopOptions contains the loop's collaborators. Timeline and Events may
// be nil.
type LoopOptions struct {
	Bus       *bus.MessageBus
	Model     provider.LanguageModel
	Registry  *tools.Registry
	Sessions  session.Store
	Approvals *approval.Manager
	Timeline  *timeline.TimelineService
	Events    events.Publisher
	Resolver  *contacts.Resolver
}

// Loop is the core message processing engine.
type Loop struct {
	bus       *bus.MessageBus
	model     provider.LanguageModel
	registry  *tools.Registry
	sessions  session.Store
	approvals *approval.Manager
	timeline  *timeline.TimelineService
	events    events.Publisher
	resolver  *contacts.Resolver
	running   atomic.Bool

	// One pipeline per user, so belief state never bleeds across users.
	mu        sync.Mutex
	pipelines map[string]*agents.Coordinator
}

// NewLoop creates a message loop.
func NewLoop(opts LoopOptions) *Loop {
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Resolver == nil {
		opts.Resolver = contacts.NewResolver()
	}
	return &Loop{
		bus:       opts.Bus,
		model:     opts.Model,
		registry:  opts.Registry,
		sessions:  opts.Sessions,
		approvals: opts.Approvals,
		timeline:  opts.Timeline,
		events:    opts.Events,
		resolver:  opts.Resolver,
		pipelines: make(map[string]*agents.Coordinator),
	}
}

// Run consumes inbound messages until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	slog.Info("Agent loop started")

	for l.running.Load() {
		msg, err := l.bus.ConsumeInbound(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to consume message", "error", err)
			continue
		}

		response := l.Handle(ctx, msg)
		if response != "" {
			l.bus.PublishOutbound(&bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				UserID:  msg.UserID,
				TraceID: msg.TraceID,
				Content: response,
			})
		}
	}
	return nil
}

// Stop signals Run to exit after the current message.
func (l *Loop) Stop() {
	l.running.Store(false)
}

// Handle processes a single inbound message and returns the reply text,
// empty when the assistant has nothing to say.
func (l *Loop) Handle(ctx context.Context, msg *bus.InboundMessage) string {
	if msg.TraceID == "" {
		msg.TraceID = uuid.NewString()
	}
	if l.timeline != nil {
		l.timeline.RecordEvent(timeline.TimelineEvent{
			TraceID:     msg.TraceID,
			UserID:      msg.UserID,
			Channel:     msg.Channel,
			EventType:   timeline.EventMessage,
			ContentText: msg.Content,
		})
	}
	_ = l.events.Publish(ctx, events.Event{
		Type:    events.TypeMessageReceived,
		UserID:  msg.UserID,
		TraceID: msg.TraceID,
	})

	// A pending approval intercepts the reply before the pipeline sees it.
	notice := ""
	if result, handled := l.approvals.HandleReply(ctx, msg.UserID, msg.Content); result != nil {
		if handled {
			_ = l.events.Publish(ctx, events.Event{
				Type:    events.TypeApprovalResolved,
				UserID:  msg.UserID,
				TraceID: msg.TraceID,
				Tool:    result.Intent,
				Detail:  map[string]any{"approved": result.Approved, "executed": result.Executed},
			})
			l.recordAction(msg, result.Response)
			return result.Response
		}
		// Expired: tell the user, then process the text normally.
		notice = result.Response
	}

	out := l.pipeline(msg.UserID).Run(ctx, msg.UserID, []string{msg.Content}, map[string]any{
		agents.KeyChannel: msg.Channel,
	})
	_ = l.events.Publish(ctx, events.Event{
		Type:    events.TypePipelineResult,
		UserID:  msg.UserID,
		TraceID: msg.TraceID,
		Detail:  pipelineDetail(out),
	})

	response := l.respond(msg, out.Final)
	if response == "" {
		response = l.converse(ctx, msg.Content)
	}
	if notice != "" {
		if response == "" {
			return notice
		}
		response = notice + "\n\n" + response
	}
	return response
}

// respond converts the pipeline's final result into reply text, storing
// a pending action when the result needs approval.
func (l *Loop) respond(msg *bus.InboundMessage, final *bdi.Result) string {
	switch {
	case final == nil:
		return ""

	case final.RequiresPermission:
		prompt := l.approvals.Propose(msg.UserID, approval.PendingAction{
			Intent:            final.ToolName,
			Parameters:        final.Parameters,
			OriginalMessage:   msg.Content,
			PermissionMessage: final.PermissionMessage,
		})
		_ = l.events.Publish(context.Background(), events.Event{
			Type:    events.TypeApprovalRequest,
			UserID:  msg.UserID,
			TraceID: msg.TraceID,
			Tool:    final.ToolName,
		})
		return prompt

	case !final.Success && final.Error != "":
		return fmt.Sprintf("I couldn't finish that: %s", final.Error)

	case final.Output != "":
		l.recordAction(msg, final.Output)
		return final.Output
	}
	return ""
}

// converse answers messages the pipeline found nothing actionable in.
// Small talk and open questions go to the language model; without one the
// assistant stays quiet rather than echoing stage internals.
func (l *Loop) converse(ctx context.Context, content string) string {
	if l.model == nil {
		return ""
	}
	reply, err := l.model.Complete(ctx,
		"You are a concise personal assistant. Answer the user's message directly in one or two sentences.",
		content)
	if err != nil {
		slog.Warn("Conversational reply failed", "error", err)
		return ""
	}
	return strings.TrimSpace(reply)
}

func (l *Loop) recordAction(msg *bus.InboundMessage, output string) {
	if l.timeline == nil || output == "" {
		return
	}
	l.timeline.RecordEvent(timeline.TimelineEvent{
		TraceID:     msg.TraceID,
		UserID:      msg.UserID,
		Channel:     msg.Channel,
		EventType:   timeline.EventAction,
		ContentText: output,
	})
}

// pipeline returns the user's coordinator, creating it on first contact.
func (l *Loop) pipeline(userID string) *agents.Coordinator {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.pipelines[userID]; ok {
		return c
	}
	c := agents.NewCoordinator(
		agents.NewObserver(l.model, nil),
		agents.NewAnalyzer(nil),
		agents.NewDecision(l.registry, l.sessions, l.resolver, nil),
		agents.NewExecution(l.registry, nil),
		nil,
	)
	l.pipelines[userID] = c
	return c
}

func pipelineDetail(out agents.PipelineResult) map[string]any {
	detail := map[string]any{}
	for role, report := range out.Reports {
		detail[role] = report.Success
	}
	if out.Final != nil {
		detail["tool"] = out.Final.ToolName
		detail["requires_permission"] = out.Final.RequiresPermission
	}
	return detail
}
