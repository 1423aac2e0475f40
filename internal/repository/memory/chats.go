package memory

import (
	"context"
	"sort"
	"time"

	"stepout/internal/domain"
)

type chatRepository struct {
	s *Store
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ch, ok := r.s.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneChat(ch), nil
}

func (r *chatRepository) AddParticipant(ctx context.Context, chatID, userID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ch, ok := r.s.chats[chatID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if ch.HasParticipant(userID) {
		return false, nil
	}
	ch.Participants = append(ch.Participants, userID)
	ch.UnreadCounts[userID] = 0
	return true, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *domain.Message, preview domain.MessagePreview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ch, ok := r.s.chats[msg.ChatID]
	if !ok {
		return domain.ErrNotFound
	}
	c := *msg
	r.s.messages[msg.ChatID] = append(r.s.messages[msg.ChatID], &c)
	ch.LastMessageText = ptrString(preview.Text)
	ch.LastMessageAt = ptrTime(preview.At)
	ch.LastMessageSender = ptrString(preview.SenderID)
	if msg.Type == domain.MessageTypeText {
		for _, p := range ch.Participants {
			if p != msg.SenderID {
				ch.UnreadCounts[p]++
			}
		}
	}
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID string, limit int, before *time.Time) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.s.messages[chatID]
	out := make([]*domain.Message, 0, len(all))
	for _, m := range all {
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *chatRepository) ResetUnread(ctx context.Context, chatID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ch, ok := r.s.chats[chatID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := ch.UnreadCounts[userID]; ok {
		ch.UnreadCounts[userID] = 0
	}
	return nil
}

func (r *chatRepository) ListByParticipant(ctx context.Context, userID string, includeArchived bool) ([]*domain.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Chat, 0)
	for _, ch := range r.s.chats {
		if ch.Archived && !includeArchived {
			continue
		}
		if ch.HasParticipant(userID) {
			out = append(out, cloneChat(ch))
		}
	}
	return out, nil
}

func (r *chatRepository) ArchiveByEventIDs(ctx context.Context, eventIDs []string, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.archiveLocked(eventIDs, at), nil
}

// archiveLocked archives the non-archived chats of eventIDs. Callers hold s.mu.
func (s *Store) archiveLocked(eventIDs []string, at time.Time) int {
	ids := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		ids[id] = struct{}{}
	}
	n := 0
	for _, ch := range s.chats {
		if _, ok := ids[ch.EventID]; !ok || ch.Archived {
			continue
		}
		ch.Archived = true
		ch.ArchivedAt = ptrTime(at)
		n++
	}
	return n
}
