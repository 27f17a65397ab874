package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nativeiq/nativeiq/internal/bus"
	"github.com/nativeiq/nativeiq/internal/config"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramChannel long-polls the Bot API for updates and forwards them
// to the bus.
type TelegramChannel struct {
	BaseChannel
	config  config.TelegramConfig
	apiBase string
	client  *http.Client
	offset  int64
	cancel  context.CancelFunc
}

func NewTelegramChannel(cfg config.TelegramConfig, messageBus *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		apiBase:     telegramAPIBase,
		client:      &http.Client{Timeout: 65 * time.Second},
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	if c.config.Token == "" {
		return fmt.Errorf("telegram: token not configured")
	}

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		if err := c.Send(ctx, msg); err != nil {
			slog.Warn("Telegram send failed", "chat", msg.ChatID, "error", err)
		}
	})

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.poll(pollCtx)
	slog.Info("Telegram channel started")
	return nil
}

func (c *TelegramChannel) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// telegramUpdate is the subset of the Bot API update we consume.
type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		From struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Date int64 `json:"date"`
	} `json:"message"`
}

func (c *TelegramChannel) poll(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := c.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Telegram poll failed", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, u := range updates {
			c.offset = u.UpdateID + 1
			c.handleUpdate(u)
		}
	}
}

func (c *TelegramChannel) getUpdates(ctx context.Context) ([]telegramUpdate, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=50&offset=%d", c.apiBase, c.config.Token, c.offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("telegram getUpdates status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		OK     bool             `json:"ok"`
		Result []telegramUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("telegram decode: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram getUpdates not ok")
	}
	return parsed.Result, nil
}

func (c *TelegramChannel) handleUpdate(u telegramUpdate) {
	if u.Message == nil || u.Message.Text == "" {
		return
	}
	senderID := strconv.FormatInt(u.Message.From.ID, 10)
	if !allowed(c.config.AllowFrom, senderID) {
		slog.Debug("Telegram message dropped: sender not allowed", "sender", senderID)
		return
	}
	c.Bus.PublishInbound(&bus.InboundMessage{
		Channel:   c.Name(),
		UserID:    senderID,
		ChatID:    strconv.FormatInt(u.Message.Chat.ID, 10),
		Content:   u.Message.Text,
		Timestamp: time.Unix(u.Message.Date, 0),
	})
}

func (c *TelegramChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	chatID := msg.ChatID
	if chatID == "" {
		chatID = msg.UserID
	}
	body, _ := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    msg.Content,
	})
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.config.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendMessage status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
