package domain

import (
	"context"
	"time"
)

// SystemSenderID is the sender of synthetic messages such as join notices.
const SystemSenderID = "system"

// MessageType distinguishes user text from synthetic notices.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// Chat is the single group chat of an event, keyed by the event's canonical id.
// swagger:model Chat
type Chat struct {
	ID                string         `json:"id"`
	EventID           string         `json:"event_id"`
	Participants      []string       `json:"participants"`
	UnreadCounts      map[string]int `json:"-"`
	LastMessageText   *string        `json:"last_message_text,omitempty"`
	LastMessageAt     *time.Time     `json:"last_message_at,omitempty"`
	LastMessageSender *string        `json:"last_message_sender,omitempty"`
	Archived          bool           `json:"archived"`
	ArchivedAt        *time.Time     `json:"archived_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewChat returns a chat for the event with the host as sole participant.
func NewChat(eventID, hostID string, createdAt time.Time) *Chat {
	return &Chat{
		ID:           eventID,
		EventID:      eventID,
		Participants: []string{hostID},
		UnreadCounts: map[string]int{hostID: 0},
		CreatedAt:    createdAt,
	}
}

// HasParticipant reports whether userID is in the participant set.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is an immutable chat message.
// swagger:model Message
type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chat_id"`
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name,omitempty"`
	Text       string      `json:"text"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
}

// MessagePreview is the denormalized summary stored on the chat.
type MessagePreview struct {
	Text     string
	SenderID string
	At       time.Time
}

// ChatSummary is a chat as seen by one participant in listChats.
// swagger:model ChatSummary
type ChatSummary struct {
	Chat        *Chat      `json:"chat"`
	UnreadCount int        `json:"unread_count"`
	EventEndsAt *time.Time `json:"event_ends_at,omitempty"`
	EventTitle  string     `json:"event_title,omitempty"`
}

// ChatRepository defines storage for chats, participants and messages.
type ChatRepository interface {
	GetByID(ctx context.Context, id string) (*Chat, error)
	// AddParticipant inserts userID once; added is false when already a participant.
	AddParticipant(ctx context.Context, chatID, userID string, at time.Time) (added bool, err error)
	// AppendMessage stores msg, refreshes the preview and, for text messages,
	// increments unread counters of every participant except the sender.
	AppendMessage(ctx context.Context, msg *Message, preview MessagePreview) error
	// ListMessages returns up to limit messages created before the cursor (if set), oldest first.
	ListMessages(ctx context.Context, chatID string, limit int, before *time.Time) ([]*Message, error)
	ResetUnread(ctx context.Context, chatID, userID string) error
	ListByParticipant(ctx context.Context, userID string, includeArchived bool) ([]*Chat, error)
	// ArchiveByEventIDs archives non-archived chats of the given events and returns how many changed.
	ArchiveByEventIDs(ctx context.Context, eventIDs []string, at time.Time) (int, error)
}

// ChatEventPublisher fans out newly written messages to downstream consumers.
type ChatEventPublisher interface {
	PublishMessage(ctx context.Context, msg *Message) error
}

// ChatService defines chat operations exposed to callers.
type ChatService interface {
	SendMessage(ctx context.Context, callerID, chatID, text string) (*Message, error)
	GetMessages(ctx context.Context, callerID, chatID string, limit int, before *time.Time) ([]*Message, error)
	ListChats(ctx context.Context, callerID string) ([]*ChatSummary, error)
	// PostSystemMessage appends a synthetic message without participant checks or unread bumps.
	PostSystemMessage(ctx context.Context, chatID, text string) (*Message, error)
}
