// Package natspub fans out chat messages to NATS subscribers.
package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stepout/internal/domain"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the root of chat message subjects: stepout.chat.<chat id>.message.
const SubjectPrefix = "stepout.chat"

// Config holds connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher implements domain.ChatEventPublisher over a NATS connection.
type Publisher struct {
	conn   conn
	flush  func(context.Context) error
	close  func()
	logger *slog.Logger
}

// Connect dials NATS and returns a Publisher.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{conn: nc, flush: nc.FlushWithContext, close: nc.Close, logger: logger}, nil
}

// Subject returns the subject a chat's messages are published on.
func Subject(chatID string) string {
	return SubjectPrefix + "." + chatID + ".message"
}

type messageEvent struct {
	ID         string             `json:"id"`
	ChatID     string             `json:"chat_id"`
	SenderID   string             `json:"sender_id"`
	SenderName string             `json:"sender_name,omitempty"`
	Text       string             `json:"text"`
	Type       domain.MessageType `json:"type"`
	CreatedAt  time.Time          `json:"created_at"`
}

func (p *Publisher) PublishMessage(ctx context.Context, msg *domain.Message) error {
	data, err := json.Marshal(messageEvent{
		ID:         msg.ID,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Type:       msg.Type,
		CreatedAt:  msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal message event: %w", err)
	}
	if err := p.conn.Publish(Subject(msg.ChatID), data); err != nil {
		return fmt.Errorf("publish message event: %w", err)
	}
	p.logger.DebugContext(ctx, "chat message published", "chat_id", msg.ChatID, "message_id", msg.ID)
	return nil
}

// PingContext round-trips to the server; used by the health check.
func (p *Publisher) PingContext(ctx context.Context) error {
	if p.flush == nil {
		return errors.New("nats publisher not connected")
	}
	return p.flush(ctx)
}

// Close closes the underlying connection.
func (p *Publisher) Close() {
	if p.close != nil {
		p.close()
	}
}
