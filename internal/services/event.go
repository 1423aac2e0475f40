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

type eventService struct {
	eventRepo      domain.EventRepository
	memberRepo     domain.MemberRepository
	userRepo       domain.UserRepository
	resolver       domain.EventIdentityResolver
	clock          domain.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository,
	memberRepo domain.MemberRepository,
	userRepo domain.UserRepository,
	resolver domain.EventIdentityResolver,
	clock domain.Clock,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		memberRepo:     memberRepo,
		userRepo:       userRepo,
		resolver:       resolver,
		clock:          clock,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateTimeRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return invalidf("starts_at and ends_at are required")
	}
	if !end.After(start) {
		return invalidf("ends_at must be after starts_at")
	}
	return nil
}

func validateOptional(guestCap *int, geo *domain.GeoPoint) error {
	if guestCap != nil && *guestCap <= 0 {
		return invalidf("guest_cap must be positive")
	}
	if geo != nil && !geo.Valid() {
		return invalidf("geo is out of range")
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, callerID string, in domain.NewEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	location := strings.TrimSpace(in.Location)
	if title == "" {
		return nil, invalidf("title is required")
	}
	if location == "" {
		return nil, invalidf("location is required")
	}
	if !in.Visibility.Valid() {
		return nil, invalidf("visibility must be public or invite-only")
	}
	if err := validateTimeRange(in.StartsAt, in.EndsAt); err != nil {
		return nil, err
	}
	if err := validateOptional(in.GuestCap, in.Geo); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := domain.NewEvent(callerID, title, location, in.Visibility, in.StartsAt.UTC(), in.EndsAt.UTC(), now, now)
	event.ID = newID()
	event.Description = in.Description
	event.Geo = in.Geo
	event.GuestCap = in.GuestCap
	event.CoverImageRef = in.CoverImageRef

	name := displayName(ctx, s.userRepo, s.logger, callerID)
	bundle := &domain.EventBundle{
		Event: event,
		Host:  domain.NewEventMember(event.ID, callerID, domain.RSVPGoing, domain.RoleHost, now),
		Chat:  domain.NewChat(event.ID, callerID, now),
		Greeting: &domain.Message{
			ID:        newID(),
			ChatID:    event.ID,
			SenderID:  domain.SystemSenderID,
			Text:      name + " created the event",
			Type:      domain.MessageTypeSystem,
			CreatedAt: now,
		},
	}
	if err := s.eventRepo.Create(ctx, bundle); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, callerID, eventID string, patch domain.EventPatch) (*domain.Event, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, nil, invalidf("no mutable field supplied")
	}
	if (patch.StartsAt == nil) != (patch.EndsAt == nil) {
		return nil, nil, invalidf("starts_at and ends_at must be changed together")
	}
	if patch.StartsAt != nil {
		if err := validateTimeRange(*patch.StartsAt, *patch.EndsAt); err != nil {
			return nil, nil, err
		}
		start, end := patch.StartsAt.UTC(), patch.EndsAt.UTC()
		patch.StartsAt, patch.EndsAt = &start, &end
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, nil, invalidf("title must not be empty")
		}
		patch.Title = &title
	}
	if patch.Location != nil {
		location := strings.TrimSpace(*patch.Location)
		if location == "" {
			return nil, nil, invalidf("location must not be empty")
		}
		patch.Location = &location
	}
	if patch.Visibility != nil && !patch.Visibility.Valid() {
		return nil, nil, invalidf("visibility must be public or invite-only")
	}
	if err := validateOptional(patch.GuestCap, patch.Geo); err != nil {
		return nil, nil, err
	}
	if patch.InvitedUserIDs != nil {
		patch.InvitedUserIDs = domain.CanonicalIDSet(patch.InvitedUserIDs)
	}

	event, err := s.resolveOwned(ctx, callerID, eventID)
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.eventRepo.Update(ctx, event.ID, patch, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("update event: %w", err)
	}
	return updated, fields, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, callerID, eventID string, hardDelete bool) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.resolveOwned(ctx, callerID, eventID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if hardDelete {
		if err := s.eventRepo.HardDelete(ctx, event.ID, now); err != nil {
			return nil, fmt.Errorf("hard delete event: %w", err)
		}
		return event, nil
	}
	if err := s.eventRepo.Cancel(ctx, event.ID, now); err != nil {
		return nil, fmt.Errorf("cancel event: %w", err)
	}
	event.Canceled = true
	event.CanceledAt = &now
	event.UpdatedAt = now
	return event, nil
}

func (s *eventService) ShareEvent(ctx context.Context, callerID, eventID string, recipientIDs []string) (*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	recipients := make([]string, 0, len(recipientIDs))
	for _, id := range domain.CanonicalIDSet(recipientIDs) {
		if id != callerID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return nil, 0, invalidf("recipient_ids must name at least one other user")
	}

	event, err := s.resolver.Resolve(ctx, eventID, nil)
	if err != nil {
		return nil, 0, err
	}
	if event.OwnerID != callerID {
		if _, err := s.memberRepo.Get(ctx, event.ID, callerID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, 0, domain.ErrForbidden
			}
			return nil, 0, fmt.Errorf("get member: %w", err)
		}
	}
	if event.Canceled {
		return nil, 0, fmt.Errorf("%w: event is canceled", domain.ErrFailedPrecondition)
	}
	invited, err := s.eventRepo.AddInvitees(ctx, event.ID, recipients, s.clock.Now())
	if err != nil {
		return nil, 0, fmt.Errorf("share event: %w", err)
	}
	event.InvitedUserIDs = invited
	return event, len(recipients), nil
}

// resolveOwned resolves the event and checks the caller owns it.
func (s *eventService) resolveOwned(ctx context.Context, callerID, eventID string) (*domain.Event, error) {
	event, err := s.resolver.Resolve(ctx, eventID, nil)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}
