package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"stepout/internal/domain"

	"golang.org/x/sync/errgroup"
)

const (
	MaxMessageLength    = 2000
	PreviewLength       = 100
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

type chatService struct {
	chatRepo       domain.ChatRepository
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	publisher      domain.ChatEventPublisher
	clock          domain.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewChatService returns a ChatService. publisher may be nil when no fan-out is configured.
func NewChatService(chatRepo domain.ChatRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	publisher domain.ChatEventPublisher,
	clock domain.Clock,
	logger *slog.Logger,
	timeout time.Duration,
) domain.ChatService {
	return &chatService{
		chatRepo:       chatRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		publisher:      publisher,
		clock:          clock,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// truncatePreview cuts text to PreviewLength runes.
func truncatePreview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	return string([]rune(text)[:PreviewLength])
}

// participantChat loads the chat and checks that callerID participates in it.
func (s *chatService) participantChat(ctx context.Context, callerID, chatID string) (*domain.Chat, error) {
	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	id := domain.CanonicalID(chatID)
	if id == "" {
		return nil, invalidf("chat id is required")
	}
	chat, err := s.chatRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if !chat.HasParticipant(callerID) {
		return nil, domain.ErrForbidden
	}
	return chat, nil
}

func (s *chatService) SendMessage(ctx context.Context, callerID, chatID, text string) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidf("text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, invalidf("text exceeds %d characters", MaxMessageLength)
	}
	chat, err := s.participantChat(ctx, callerID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Archived {
		return nil, fmt.Errorf("%w: chat is archived", domain.ErrFailedPrecondition)
	}

	now := s.clock.Now()
	msg := &domain.Message{
		ID:         newID(),
		ChatID:     chat.ID,
		SenderID:   callerID,
		SenderName: displayName(ctx, s.userRepo, s.logger, callerID),
		Text:       text,
		Type:       domain.MessageTypeText,
		CreatedAt:  now,
	}
	if err := s.append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *chatService) PostSystemMessage(ctx context.Context, chatID, text string) (*domain.Message, error) {
	msg := &domain.Message{
		ID:        newID(),
		ChatID:    domain.CanonicalID(chatID),
		SenderID:  domain.SystemSenderID,
		Text:      text,
		Type:      domain.MessageTypeSystem,
		CreatedAt: s.clock.Now(),
	}
	if err := s.append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *chatService) append(ctx context.Context, msg *domain.Message) error {
	preview := domain.MessagePreview{Text: truncatePreview(msg.Text), SenderID: msg.SenderID, At: msg.CreatedAt}
	if err := s.chatRepo.AppendMessage(ctx, msg, preview); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("append message: %w", err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishMessage(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "publish chat message failed", "chat_id", msg.ChatID, "message_id", msg.ID, "err", err)
		}
	}
	return nil
}

func (s *chatService) GetMessages(ctx context.Context, callerID, chatID string, limit int, before *time.Time) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	chat, err := s.participantChat(ctx, callerID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.chatRepo.ListMessages(ctx, chat.ID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if err := s.chatRepo.ResetUnread(ctx, chat.ID, callerID); err != nil {
		s.logger.WarnContext(ctx, "reset unread failed", "chat_id", chat.ID, "user_id", callerID, "err", err)
	}
	return messages, nil
}

func (s *chatService) ListChats(ctx context.Context, callerID string) ([]*domain.ChatSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	chats, err := s.chatRepo.ListByParticipant(ctx, callerID, false)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	summaries := make([]*domain.ChatSummary, len(chats))
	var g errgroup.Group
	g.SetLimit(profileLookupLimit)
	for i, chat := range chats {
		summary := &domain.ChatSummary{Chat: chat, UnreadCount: chat.UnreadCounts[callerID]}
		summaries[i] = summary
		g.Go(func() error {
			event, err := s.eventRepo.GetByID(ctx, chat.EventID)
			if err != nil {
				s.logger.WarnContext(ctx, "chat event lookup failed", "chat_id", chat.ID, "err", err)
				return nil
			}
			ends := event.EndsAt
			summary.EventEndsAt = &ends
			summary.EventTitle = event.Title
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].Chat.LastMessageAt, summaries[j].Chat.LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return summaries, nil
}
