package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stepout/internal/domain"
)

type friendService struct {
	friendRepo     domain.FriendRepository
	inviteRepo     domain.FriendInviteRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	clock          domain.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewFriendService returns a FriendService. emailService may be nil, in which case
// contact invites are recorded without a notification email.
func NewFriendService(friendRepo domain.FriendRepository,
	inviteRepo domain.FriendInviteRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	clock domain.Clock,
	logger *slog.Logger,
	timeout time.Duration,
) domain.FriendService {
	return &friendService{
		friendRepo:     friendRepo,
		inviteRepo:     inviteRepo,
		userRepo:       userRepo,
		emailService:   emailService,
		clock:          clock,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func (s *friendService) InviteByContact(ctx context.Context, senderID string, contact domain.InviteContact) (*domain.FriendInvite, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if senderID == "" {
		return nil, domain.ErrUnauthenticated
	}
	phone, email := trimmedOrNil(contact.Phone), trimmedOrNil(contact.Email)
	if phone == nil && email == nil {
		return nil, invalidf("phone or email is required")
	}

	var recipientID *string
	if u := s.resolveContact(ctx, phone, email); u != nil {
		id := domain.CanonicalID(u.ID)
		if id == senderID {
			return nil, invalidf("cannot invite yourself")
		}
		if err := s.checkNotConnected(ctx, senderID, id); err != nil {
			return nil, err
		}
		recipientID = &id
	}
	if err := s.checkNoPendingContact(ctx, senderID, email, phone); err != nil {
		return nil, err
	}

	inv := &domain.FriendInvite{
		ID:             newID(),
		SenderID:       senderID,
		RecipientPhone: phone,
		RecipientEmail: email,
		RecipientID:    recipientID,
		Status:         domain.InvitePending,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.inviteRepo.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create invite: %w", err)
	}

	if email != nil && s.emailService != nil {
		data := &domain.FriendInviteEmailData{
			Email:      *email,
			SenderName: displayName(ctx, s.userRepo, s.logger, senderID),
			InviteID:   inv.ID,
		}
		if err := s.emailService.SendFriendInvite(ctx, data); err != nil {
			s.logger.WarnContext(ctx, "friend invite email failed", "invite_id", inv.ID, "err", err)
		}
	}
	return inv, nil
}

// resolveContact matches an existing account by exact email, then phone.
// Lookup failures other than a miss are logged and treated as unresolved.
func (s *friendService) resolveContact(ctx context.Context, phone, email *string) *domain.User {
	lookups := []struct {
		value *string
		get   func(context.Context, string) (*domain.User, error)
	}{
		{email, s.userRepo.GetByEmail},
		{phone, s.userRepo.GetByPhone},
	}
	for _, l := range lookups {
		if l.value == nil {
			continue
		}
		u, err := l.get(ctx, *l.value)
		if err == nil {
			return u
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "contact lookup failed", "err", err)
		}
	}
	return nil
}

// checkNotConnected rejects pairs that are already friends or have a pending invite in either direction.
func (s *friendService) checkNotConnected(ctx context.Context, a, b string) error {
	friends, err := s.friendRepo.Exists(ctx, a, b)
	if err != nil {
		return fmt.Errorf("check friendship: %w", err)
	}
	if friends {
		return fmt.Errorf("%w: already friends", domain.ErrAlreadyExists)
	}
	_, err = s.inviteRepo.GetPendingBetween(ctx, a, b)
	switch {
	case err == nil:
		return fmt.Errorf("%w: a pending request already exists", domain.ErrAlreadyExists)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check pending invite: %w", err)
	}
}

// checkNoPendingContact rejects a second pending invite from senderID to the same email or phone.
func (s *friendService) checkNoPendingContact(ctx context.Context, senderID string, email, phone *string) error {
	_, err := s.inviteRepo.GetPendingToContact(ctx, senderID, email, phone)
	switch {
	case err == nil:
		return fmt.Errorf("%w: a pending invite to this contact already exists", domain.ErrAlreadyExists)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check pending contact invite: %w", err)
	}
}

func (s *friendService) SendFriendRequest(ctx context.Context, senderID, recipientID string) (*domain.FriendInvite, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if senderID == "" {
		return nil, domain.ErrUnauthenticated
	}
	recipient := domain.CanonicalID(recipientID)
	if recipient == "" {
		return nil, invalidf("recipient_id is required")
	}
	if recipient == senderID {
		return nil, invalidf("cannot send a friend request to yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, recipient); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	if err := s.checkNotConnected(ctx, senderID, recipient); err != nil {
		return nil, err
	}

	inv := &domain.FriendInvite{
		ID:          newID(),
		SenderID:    senderID,
		RecipientID: &recipient,
		Status:      domain.InvitePending,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.inviteRepo.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create invite: %w", err)
	}
	return inv, nil
}

func (s *friendService) RespondToFriendRequest(ctx context.Context, callerID, inviteID string, accept bool) (*domain.FriendInvite, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	inv, err := s.inviteRepo.GetByID(ctx, strings.TrimSpace(inviteID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}
	if !inv.IsAddressedTo(callerID) {
		return nil, domain.ErrForbidden
	}
	if inv.Status != domain.InvitePending {
		return nil, fmt.Errorf("%w: invite is already %s", domain.ErrFailedPrecondition, inv.Status)
	}

	now := s.clock.Now()
	if accept {
		err = s.inviteRepo.Accept(ctx, inv.ID, now, domain.FriendEdgePair(inv.SenderID, callerID, now))
		inv.Status = domain.InviteAccepted
	} else {
		err = s.inviteRepo.Decline(ctx, inv.ID, now)
		inv.Status = domain.InviteDeclined
	}
	if err != nil {
		if errors.Is(err, domain.ErrFailedPrecondition) {
			return nil, err
		}
		return nil, fmt.Errorf("respond to invite: %w", err)
	}
	inv.RespondedAt = &now
	return inv, nil
}

func (s *friendService) ListFriends(ctx context.Context, callerID string, includeInvites bool) (*domain.FriendList, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	edges, err := s.friendRepo.ListByOwner(ctx, callerID, domain.FriendActive)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FriendID)
	}
	list := &domain.FriendList{Friends: resolveProfiles(ctx, s.userRepo, s.logger, ids)}
	if !includeInvites {
		return list, nil
	}

	pending, err := s.inviteRepo.ListPendingForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}
	list.PendingInvites = &domain.PendingInvites{Sent: []*domain.FriendInvite{}, Received: []*domain.FriendInvite{}}
	for _, inv := range pending {
		if inv.SenderID == callerID {
			list.PendingInvites.Sent = append(list.PendingInvites.Sent, inv)
		} else {
			list.PendingInvites.Received = append(list.PendingInvites.Received, inv)
		}
	}
	return list, nil
}
