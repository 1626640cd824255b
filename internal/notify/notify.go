// Package notify forwards session events to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"focusroom/internal/core"
)

// Sender is the part of the Telegram bot API the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config selects the chat and the events worth a message
type Config struct {
	ChatID     int64
	QueueSize  int
	Milestones bool // also announce progress milestones
}

// Notifier is an EventSink that sends a chat message for session starts, ends and
// milestones. Emit only queues; Run delivers, so a slow API never stalls the caller.
type Notifier struct {
	sender  Sender
	cfg     Config
	queue   chan string
	logger  *slog.Logger
	dropped atomic.Int64
	sent    atomic.Int64
}

// NewTelegram connects to the Bot API with token
func NewTelegram(token string, cfg Config, logger *slog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	return New(api, cfg, logger), nil
}

// New creates a notifier around an existing sender
func New(sender Sender, cfg Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	return &Notifier{
		sender: sender,
		cfg:    cfg,
		queue:  make(chan string, cfg.QueueSize),
		logger: logger.With("component", "notify"),
	}
}

// Emit implements core.EventSink
func (n *Notifier) Emit(_ context.Context, event core.Event) error {
	text := n.format(event)
	if text == "" {
		return nil
	}
	select {
	case n.queue <- text:
	default:
		n.dropped.Add(1)
		n.logger.Warn("notification queue full, dropping message", "event", event.Type)
	}
	return nil
}

// Run delivers queued messages until ctx is done
func (n *Notifier) Run(ctx context.Context) error {
	n.logger.Info("Notifier started", "chat_id", n.cfg.ChatID)
	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Notifier stopped", "sent", n.sent.Load(), "dropped", n.dropped.Load())
			return nil
		case text := <-n.queue:
			n.send(text)
		}
	}
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Error("Failed to send message",
			"chat_id", n.cfg.ChatID,
			"error", err,
		)
		return
	}
	n.sent.Add(1)
}

// Sent returns the number of delivered messages
func (n *Notifier) Sent() int64 { return n.sent.Load() }

// Dropped returns the number of messages lost to a full queue
func (n *Notifier) Dropped() int64 { return n.dropped.Load() }
