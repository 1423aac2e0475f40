package memory

import (
	"context"
	"sort"

	"stepout/internal/domain"
)

type memberRepository struct {
	s *Store
}

func (r *memberRepository) Upsert(ctx context.Context, m *domain.EventMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *m
	k := memberKey{m.EventID, m.UserID}
	if prev, ok := r.s.members[k]; ok && c.ArrivalTime == nil {
		c.ArrivalTime = prev.ArrivalTime
	}
	r.s.members[k] = &c
	return nil
}

func (r *memberRepository) Get(ctx context.Context, eventID, userID string) (*domain.EventMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[memberKey{eventID, userID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *memberRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.EventMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.EventMember, 0)
	for k, m := range r.s.members {
		if k.eventID == eventID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memberRepository) CountByStatus(ctx context.Context, eventID string, status domain.RSVPStatus) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for k, m := range r.s.members {
		if k.eventID == eventID && m.Status == status {
			n++
		}
	}
	return n, nil
}
