package memory

import (
	"context"
	"time"

	"stepout/internal/domain"
)

type eventRepository struct {
	s *Store
}

func (r *eventRepository) Create(ctx context.Context, b *domain.EventBundle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[b.Event.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.events[b.Event.ID] = cloneEvent(b.Event)
	if b.Host != nil {
		m := *b.Host
		r.s.members[memberKey{m.EventID, m.UserID}] = &m
	}
	if b.Chat != nil {
		ch := cloneChat(b.Chat)
		if b.Greeting != nil {
			msg := *b.Greeting
			r.s.messages[ch.ID] = append(r.s.messages[ch.ID], &msg)
			ch.LastMessageText = ptrString(msg.Text)
			ch.LastMessageAt = ptrTime(msg.CreatedAt)
			ch.LastMessageSender = ptrString(msg.SenderID)
		}
		r.s.chats[ch.ID] = ch
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (r *eventRepository) Update(ctx context.Context, id string, patch domain.EventPatch, updatedAt time.Time) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	patch.Apply(e)
	e.UpdatedAt = updatedAt
	return cloneEvent(e), nil
}

func (r *eventRepository) Cancel(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Canceled = true
	e.CanceledAt = ptrTime(at)
	e.UpdatedAt = at
	r.s.archiveLocked([]string{id}, at)
	return nil
}

func (r *eventRepository) HardDelete(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.events, id)
	for k := range r.s.members {
		if k.eventID == id {
			delete(r.s.members, k)
		}
	}
	r.s.archiveLocked([]string{id}, at)
	return nil
}

func (r *eventRepository) AddInvitees(ctx context.Context, id string, userIDs []string, at time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.InvitedUserIDs = domain.CanonicalIDSet(append(e.InvitedUserIDs, userIDs...))
	e.UpdatedAt = at
	return append([]string{}, e.InvitedUserIDs...), nil
}

func (r *eventRepository) ListByOwner(ctx context.Context, ownerID string, q domain.EventListQuery) ([]*domain.Event, error) {
	return r.list(q, true, func(e *domain.Event) bool { return e.OwnerID == ownerID }), nil
}

func (r *eventRepository) ListPublic(ctx context.Context, q domain.EventListQuery) ([]*domain.Event, error) {
	return r.list(q, false, func(e *domain.Event) bool { return e.Visibility == domain.VisibilityPublic }), nil
}

func (r *eventRepository) ListInvited(ctx context.Context, userID string, q domain.EventListQuery) ([]*domain.Event, error) {
	return r.list(q, false, func(e *domain.Event) bool {
		for _, id := range e.InvitedUserIDs {
			if id == userID {
				return true
			}
		}
		return false
	}), nil
}

func (r *eventRepository) ListEndedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []string
	for _, e := range r.s.events {
		if !e.EndsAt.After(cutoff) {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (r *eventRepository) list(q domain.EventListQuery, includeCanceled bool, match func(*domain.Event) bool) []*domain.Event {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Event, 0)
	for _, e := range r.s.events {
		if !match(e) {
			continue
		}
		if e.Canceled && !includeCanceled {
			continue
		}
		if q.Visibility != "" && e.Visibility != q.Visibility {
			continue
		}
		if q.From != nil && e.StartsAt.Before(*q.From) {
			continue
		}
		if q.To != nil && e.StartsAt.After(*q.To) {
			continue
		}
		if q.Before != nil && !e.StartsAt.Before(*q.Before) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sortByStartDesc(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
