package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stepout/internal/domain"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 100
)

type feedService struct {
	eventRepo      domain.EventRepository
	memberRepo     domain.MemberRepository
	friendRepo     domain.FriendRepository
	userRepo       domain.UserRepository
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewFeedService(eventRepo domain.EventRepository,
	memberRepo domain.MemberRepository,
	friendRepo domain.FriendRepository,
	userRepo domain.UserRepository,
	logger *slog.Logger,
	timeout time.Duration,
) domain.FeedService {
	return &feedService{
		eventRepo:      eventRepo,
		memberRepo:     memberRepo,
		friendRepo:     friendRepo,
		userRepo:       userRepo,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *feedService) ListFeed(ctx context.Context, callerID string, q domain.EventListQuery) (*domain.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if q.Limit <= 0 {
		q.Limit = DefaultFeedLimit
	}
	if q.Limit > MaxFeedLimit {
		q.Limit = MaxFeedLimit
	}
	if q.Visibility != "" && !q.Visibility.Valid() {
		return nil, invalidf("visibility must be public or invite-only")
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, invalidf("to must not be before from")
	}

	var owned, public, invited []*domain.Event
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		owned, err = s.eventRepo.ListByOwner(gctx, callerID, q)
		return err
	})
	g.Go(func() (err error) {
		public, err = s.eventRepo.ListPublic(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		invited, err = s.eventRepo.ListInvited(gctx, callerID, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list feed sources: %w", err)
	}

	events := s.enrich(ctx, callerID, mergeEvents(owned, public, invited))
	return &domain.Feed{
		Events:  events,
		Friends: s.roster(ctx, callerID, events),
	}, nil
}

// mergeEvents concatenates the sources in priority order; the first occurrence of an id wins.
func mergeEvents(sources ...[]*domain.Event) []*domain.Event {
	seen := make(map[string]struct{})
	out := make([]*domain.Event, 0)
	for _, src := range sources {
		for _, e := range src {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// enrich attaches the caller's attendance view to every event.
// A failed membership lookup leaves the event with an empty view.
func (s *feedService) enrich(ctx context.Context, callerID string, events []*domain.Event) []*domain.FeedEvent {
	out := make([]*domain.FeedEvent, len(events))
	var g errgroup.Group
	g.SetLimit(profileLookupLimit)
	for i, e := range events {
		fe := &domain.FeedEvent{
			Event:        e,
			MyStatus:     domain.RSVPNone.String(),
			GoingUserIDs: []string{},
			ArrivalTimes: map[string]time.Time{},
		}
		out[i] = fe
		g.Go(func() error {
			members, err := s.memberRepo.ListByEvent(ctx, e.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "membership lookup failed", "event_id", e.ID, "err", err)
				return nil
			}
			for _, m := range members {
				if m.UserID == callerID {
					fe.MyStatus = m.Status.String()
					fe.Attending = m.Status == domain.RSVPGoing
				}
				if m.Status == domain.RSVPGoing {
					fe.GoingUserIDs = append(fe.GoingUserIDs, m.UserID)
				}
				if m.ArrivalTime != nil {
					fe.ArrivalTimes[m.UserID] = *m.ArrivalTime
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// roster returns the caller's active friends, or, when there are none, the
// distinct going attendees of the returned events labeled as inferred contacts.
func (s *feedService) roster(ctx context.Context, callerID string, events []*domain.FeedEvent) *domain.Roster {
	edges, err := s.friendRepo.ListByOwner(ctx, callerID, domain.FriendActive)
	if err != nil {
		s.logger.WarnContext(ctx, "friend lookup failed", "user_id", callerID, "err", err)
	}
	if len(edges) > 0 {
		ids := make([]string, 0, len(edges))
		for _, f := range edges {
			ids = append(ids, f.FriendID)
		}
		return &domain.Roster{
			Source:  domain.RosterRealFriends,
			Members: resolveProfiles(ctx, s.userRepo, s.logger, ids),
		}
	}

	seen := map[string]struct{}{callerID: {}}
	ids := make([]string, 0)
	for _, fe := range events {
		for _, id := range fe.GoingUserIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return &domain.Roster{
		Source:  domain.RosterInferredContacts,
		Members: resolveProfiles(ctx, s.userRepo, s.logger, ids),
	}
}
