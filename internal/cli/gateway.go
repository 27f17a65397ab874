package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nativeiq/nativeiq/internal/agent"
	"github.com/nativeiq/nativeiq/internal/agents"
	"github.com/nativeiq/nativeiq/internal/approval"
	"github.com/nativeiq/nativeiq/internal/bus"
	"github.com/nativeiq/nativeiq/internal/channels"
	"github.com/nativeiq/nativeiq/internal/config"
	"github.com/nativeiq/nativeiq/internal/contacts"
	"github.com/nativeiq/nativeiq/internal/cooldown"
	"github.com/nativeiq/nativeiq/internal/events"
	"github.com/nativeiq/nativeiq/internal/provider"
	"github.com/nativeiq/nativeiq/internal/scheduler"
	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/timeline"
	"github.com/nativeiq/nativeiq/internal/tools"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the assistant gateway (channels, pipeline, proactive loop)",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("🌐 Native IQ Gateway")
	fmt.Println("Starting Native IQ Gateway...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		fmt.Printf("Data dir error: %v\n", err)
		os.Exit(1)
	}

	timeSvc, err := timeline.NewTimelineService(cfg.Paths.TimelineDB)
	if err != nil {
		fmt.Printf("Failed to init timeline: %v\n", err)
		os.Exit(1)
	}
	defer timeSvc.Close()

	msgBus := bus.NewMessageBus()
	model := buildModel(cfg)
	registry, calendar := buildRegistry()
	sessions := session.NewManager(cfg.Paths.SessionDir)
	approvals := approval.NewManager(registry, sessions, timeSvc, cfg.Approval.TTL, cfg.Approval.ChainKeywords)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled && cfg.Events.Brokers != "" {
		kafkaPub := events.NewKafkaPublisher(cfg.Events.BrokerList(), cfg.Events.Topic)
		defer kafkaPub.Close()
		publisher = kafkaPub
		fmt.Println("Kafka event publisher started:", cfg.Events.Topic)
	}

	loop := agent.NewLoop(agent.LoopOptions{
		Bus:       msgBus,
		Model:     model,
		Registry:  registry,
		Sessions:  sessions,
		Approvals: approvals,
		Timeline:  timeSvc,
		Events:    publisher,
		Resolver:  contacts.NewResolver(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Channels feed the bus; the bus dispatcher delivers replies.
	active := startChannels(ctx, cfg, msgBus)
	go msgBus.DispatchOutbound(ctx)
	go loop.Run(ctx)

	if cfg.Scheduler.Enabled {
		proactive := agents.NewProactive(calendar, sessions, cooldown.NewManager(), timeSvc,
			proactiveSender(msgBus, active, publisher),
			cfg.Cooldown.DefaultSeconds, cfg.Cooldown.ActivityWindow, nil)
		schedCfg := cfg.Scheduler
		if schedCfg.LockPath == "" {
			schedCfg.LockPath = filepath.Join(cfg.Paths.DataDir, "scheduler.lock")
		}
		sched, err := scheduler.NewLoop(schedCfg, proactive, sessions, nil)
		if err != nil {
			fmt.Printf("Scheduler error: %v\n", err)
			os.Exit(1)
		}
		go sched.Run(ctx)
		fmt.Println("Proactive scheduler started")
	}

	fmt.Println("Gateway running. Press Ctrl+C to stop.")
	<-ctx.Done()
	fmt.Println("Shutting down...")
}

// startChannels starts every enabled transport and returns their names.
func startChannels(ctx context.Context, cfg *config.Config, msgBus *bus.MessageBus) []string {
	var active []string
	all := []channels.Channel{
		channels.NewTelegramChannel(cfg.Channels.Telegram, msgBus),
		channels.NewSlackChannel(cfg.Channels.Slack, msgBus),
	}
	for _, ch := range all {
		if err := ch.Start(ctx); err != nil {
			fmt.Printf("Channel %s failed to start: %v\n", ch.Name(), err)
			continue
		}
	}
	if cfg.Channels.Telegram.Enabled {
		active = append(active, "telegram")
	}
	if cfg.Channels.Slack.Enabled {
		active = append(active, "slack")
	}
	return active
}

// proactiveSender routes agent-initiated messages through the first
// active channel. Chat ID equals user ID for direct messages.
func proactiveSender(msgBus *bus.MessageBus, active []string, publisher events.Publisher) agents.SendFunc {
	return func(ctx context.Context, userID, text string) error {
		if len(active) == 0 {
			return fmt.Errorf("no active channel for proactive send")
		}
		msgBus.PublishOutbound(&bus.OutboundMessage{
			Channel: active[0],
			ChatID:  userID,
			UserID:  userID,
			Content: text,
		})
		_ = publisher.Publish(ctx, events.Event{
			Type:   events.TypeProactiveSent,
			UserID: userID,
		})
		return nil
	}
}

// buildModel wires the configured LLM provider, or nil when no API key
// is present (the pipeline then falls back to keyword heuristics).
func buildModel(cfg *config.Config) provider.LanguageModel {
	if cfg.Providers.OpenAI.APIKey == "" {
		fmt.Println("ℹ️  No API key found; running with keyword heuristics only")
		return nil
	}
	p := provider.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name)
	p.SetSampling(cfg.Model.MaxTokens, cfg.Model.Temperature)
	return provider.WithTimeout(p, cfg.Model.Timeout)
}

// buildRegistry assembles the builtin tools over in-memory backends.
// Real calendar/mail/drive integrations plug in here.
func buildRegistry() (*tools.Registry, tools.CalendarAPI) {
	calendar := tools.NewFakeCalendar()
	registry := tools.NewRegistry()
	registry.Register(tools.NewScheduleMeetingTool(calendar))
	registry.Register(tools.NewUpcomingMeetingsTool(calendar))
	registry.Register(tools.NewEmailTool(tools.NewFakeMailer()))
	registry.Register(tools.NewDriveSearchTool(tools.NewFakeDrive()))
	return registry, calendar
}
