package channels

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/nativeiq/nativeiq/internal/bus"
	"github.com/nativeiq/nativeiq/internal/config"
)

// SlackChannel connects over Socket Mode, so no public webhook endpoint
// is needed. Requires both a bot token and an app-level token.
type SlackChannel struct {
	BaseChannel
	config config.SlackConfig
	api    *slack.Client
	socket *socketmode.Client
	cancel context.CancelFunc
}

func NewSlackChannel(cfg config.SlackConfig, messageBus *bus.MessageBus) *SlackChannel {
	return &SlackChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
	}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	c.api = slack.New(c.config.BotToken, slack.OptionAppLevelToken(c.config.AppToken))
	c.socket = socketmode.New(c.api)

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		if err := c.Send(ctx, msg); err != nil {
			slog.Warn("Slack send failed", "chat", msg.ChatID, "error", err)
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.consumeEvents()
	go func() {
		if err := c.socket.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("Slack socket mode stopped", "error", err)
		}
	}()
	slog.Info("Slack channel started")
	return nil
}

func (c *SlackChannel) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *SlackChannel) consumeEvents() {
	for evt := range c.socket.Events {
		if evt.Type != socketmode.EventTypeEventsAPI {
			continue
		}
		if evt.Request != nil {
			c.socket.Ack(*evt.Request)
		}
		ev, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || ev.Type != slackevents.CallbackEvent {
			continue
		}
		msg, ok := ev.InnerEvent.Data.(*slackevents.MessageEvent)
		if !ok || msg == nil {
			continue
		}
		// Ignore the bot's own messages and channel noise.
		if msg.BotID != "" || msg.Text == "" {
			continue
		}
		if !allowed(c.config.AllowFrom, msg.User) {
			slog.Debug("Slack message dropped: sender not allowed", "sender", msg.User)
			continue
		}
		c.Bus.PublishInbound(&bus.InboundMessage{
			Channel: c.Name(),
			UserID:  msg.User,
			ChatID:  msg.Channel,
			Content: msg.Text,
		})
	}
}

func (c *SlackChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	chatID := msg.ChatID
	if chatID == "" {
		chatID = msg.UserID
	}
	_, _, err := c.api.PostMessageContext(ctx, chatID, slack.MsgOptionText(msg.Content, false))
	return err
}
