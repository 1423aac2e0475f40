package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stepout/internal/domain"
)

type membershipService struct {
	memberRepo     domain.MemberRepository
	chatRepo       domain.ChatRepository
	userRepo       domain.UserRepository
	resolver       domain.EventIdentityResolver
	chats          domain.ChatService
	clock          domain.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewMembershipService(memberRepo domain.MemberRepository,
	chatRepo domain.ChatRepository,
	userRepo domain.UserRepository,
	resolver domain.EventIdentityResolver,
	chats domain.ChatService,
	clock domain.Clock,
	logger *slog.Logger,
	timeout time.Duration,
) domain.MembershipService {
	return &membershipService{
		memberRepo:     memberRepo,
		chatRepo:       chatRepo,
		userRepo:       userRepo,
		resolver:       resolver,
		chats:          chats,
		clock:          clock,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *membershipService) RSVP(ctx context.Context, callerID string, in domain.RSVPInput) (*domain.EventMember, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if _, err := domain.ParseRSVPStatus(string(in.Status)); err != nil {
		return nil, err
	}
	event, err := s.resolver.Resolve(ctx, in.EventID, in.IDVariants)
	if err != nil {
		return nil, err
	}
	if event.Canceled {
		return nil, fmt.Errorf("%w: event is canceled", domain.ErrFailedPrecondition)
	}
	if in.Status == domain.RSVPGoing && event.GuestCap != nil {
		if err := s.checkCapacity(ctx, event, callerID); err != nil {
			return nil, err
		}
	}

	member := domain.NewEventMember(event.ID, callerID, in.Status, domain.RoleFor(event, callerID), s.clock.Now())
	if in.ArrivalTime != nil {
		at := in.ArrivalTime.UTC()
		member.ArrivalTime = &at
	}
	if err := s.memberRepo.Upsert(ctx, member); err != nil {
		return nil, fmt.Errorf("upsert member: %w", err)
	}
	if in.Status == domain.RSVPGoing {
		if err := s.joinChat(ctx, event.ID, callerID); err != nil {
			return nil, err
		}
	}
	// The upsert keeps a stored arrival time the request omitted.
	stored, err := s.memberRepo.Get(ctx, event.ID, callerID)
	if err != nil {
		s.logger.WarnContext(ctx, "reload member failed", "event_id", event.ID, "user_id", callerID, "err", err)
		return member, nil
	}
	return stored, nil
}

// checkCapacity counts going members other than the caller against the guest cap.
func (s *membershipService) checkCapacity(ctx context.Context, event *domain.Event, callerID string) error {
	prev, err := s.memberRepo.Get(ctx, event.ID, callerID)
	switch {
	case err == nil && prev.Status == domain.RSVPGoing:
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("get member: %w", err)
	}
	going, err := s.memberRepo.CountByStatus(ctx, event.ID, domain.RSVPGoing)
	if err != nil {
		return fmt.Errorf("count going: %w", err)
	}
	if going >= *event.GuestCap {
		return fmt.Errorf("%w: event is full", domain.ErrFailedPrecondition)
	}
	return nil
}

// joinChat adds the caller to the event chat once. Only the call that inserts
// the participant posts the join notice, so repeated going RSVPs stay silent.
func (s *membershipService) joinChat(ctx context.Context, chatID, userID string) error {
	added, err := s.chatRepo.AddParticipant(ctx, chatID, userID, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "event has no chat", "event_id", chatID)
			return nil
		}
		return fmt.Errorf("add chat participant: %w", err)
	}
	if !added {
		return nil
	}
	name := displayName(ctx, s.userRepo, s.logger, userID)
	if _, err := s.chats.PostSystemMessage(ctx, chatID, name+" joined the event"); err != nil {
		return fmt.Errorf("post join notice: %w", err)
	}
	return nil
}

func (s *membershipService) Status(ctx context.Context, callerID, eventID string) (domain.RSVPStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.resolver.Resolve(ctx, eventID, nil)
	if err != nil {
		return domain.RSVPNone, err
	}
	member, err := s.memberRepo.Get(ctx, event.ID, callerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RSVPNone, nil
		}
		return domain.RSVPNone, fmt.Errorf("get member: %w", err)
	}
	return member.Status, nil
}
