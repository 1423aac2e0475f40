package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stepout/internal/domain"
)

type friendRepository struct {
	s *Store
}

func (r *friendRepository) ListByOwner(ctx context.Context, ownerID string, status domain.FriendStatus) ([]*domain.Friend, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Friend, 0)
	for k, f := range r.s.friends {
		if k.owner == ownerID && f.Status == status {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FriendID < out[j].FriendID })
	return out, nil
}

func (r *friendRepository) Exists(ctx context.Context, ownerID, friendID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.friends[edgeKey{ownerID, friendID}]
	return ok, nil
}

type inviteRepository struct {
	s *Store
}

func (r *inviteRepository) Create(ctx context.Context, inv *domain.FriendInvite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv.Status == domain.InvitePending {
		for _, other := range r.s.invites {
			if other.Status != domain.InvitePending || other.SenderID != inv.SenderID {
				continue
			}
			if (inv.RecipientID != nil && other.IsAddressedTo(*inv.RecipientID)) || other.MatchesContact(inv.RecipientEmail, inv.RecipientPhone) {
				return domain.ErrAlreadyExists
			}
		}
	}
	r.s.invites[inv.ID] = cloneInvite(inv)
	return nil
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*domain.FriendInvite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invites[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneInvite(inv), nil
}

func (r *inviteRepository) GetPendingBetween(ctx context.Context, a, b string) (*domain.FriendInvite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, inv := range r.s.invites {
		if inv.Status != domain.InvitePending {
			continue
		}
		if (inv.SenderID == a && inv.IsAddressedTo(b)) || (inv.SenderID == b && inv.IsAddressedTo(a)) {
			return cloneInvite(inv), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *inviteRepository) GetPendingToContact(ctx context.Context, senderID string, email, phone *string) (*domain.FriendInvite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, inv := range r.s.invites {
		if inv.Status == domain.InvitePending && inv.SenderID == senderID && inv.MatchesContact(email, phone) {
			return cloneInvite(inv), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *inviteRepository) ListPendingForUser(ctx context.Context, userID string) ([]*domain.FriendInvite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.FriendInvite, 0)
	for _, inv := range r.s.invites {
		if inv.Status == domain.InvitePending && (inv.SenderID == userID || inv.IsAddressedTo(userID)) {
			out = append(out, cloneInvite(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *inviteRepository) Accept(ctx context.Context, inviteID string, at time.Time, edges []*domain.Friend) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.pendingLocked(inviteID)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if prev, ok := r.s.friends[edgeKey{e.OwnerID, e.FriendID}]; ok && prev.Status == domain.FriendBlocked {
			return fmt.Errorf("%w: friendship is blocked", domain.ErrFailedPrecondition)
		}
	}
	inv.Status = domain.InviteAccepted
	inv.RespondedAt = ptrTime(at)
	for _, e := range edges {
		c := *e
		r.s.friends[edgeKey{e.OwnerID, e.FriendID}] = &c
	}
	return nil
}

func (r *inviteRepository) Decline(ctx context.Context, inviteID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.pendingLocked(inviteID)
	if err != nil {
		return err
	}
	inv.Status = domain.InviteDeclined
	inv.RespondedAt = ptrTime(at)
	return nil
}

func (r *inviteRepository) pendingLocked(id string) (*domain.FriendInvite, error) {
	inv, ok := r.s.invites[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if inv.Status != domain.InvitePending {
		return nil, fmt.Errorf("%w: invite is no longer pending", domain.ErrFailedPrecondition)
	}
	return inv, nil
}

type userRepository struct {
	s *Store
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email != nil && *u.Email == email })
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (r *userRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}
