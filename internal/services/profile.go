package services

import (
	"context"
	"log/slog"

	"stepout/internal/domain"

	"golang.org/x/sync/errgroup"
)

const (
	fallbackDisplayName = "Someone"
	profileLookupLimit  = 8
)

// displayName looks up the caller's profile name for chat notices.
// A failed lookup degrades to a generic name rather than failing the operation.
func displayName(ctx context.Context, users domain.UserRepository, logger *slog.Logger, userID string) string {
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		logger.WarnContext(ctx, "profile lookup failed", "user_id", userID, "err", err)
		return fallbackDisplayName
	}
	return u.NameOrDefault(fallbackDisplayName)
}

// resolveProfiles fetches profiles for ids in parallel and keeps input order.
// Each goroutine writes only its own slot.
// Unresolved ids are dropped.
func resolveProfiles(ctx context.Context, users domain.UserRepository, logger *slog.Logger, ids []string) []*domain.FriendProfile {
	resolved := make([]*domain.FriendProfile, len(ids))
	var g errgroup.Group
	g.SetLimit(profileLookupLimit)
	for i, id := range ids {
		g.Go(func() error {
			u, err := users.GetByID(ctx, id)
			if err != nil {
				logger.WarnContext(ctx, "profile lookup failed", "user_id", id, "err", err)
				return nil
			}
			resolved[i] = &domain.FriendProfile{UserID: u.ID, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
			return nil
		})
	}
	_ = g.Wait()
	out := make([]*domain.FriendProfile, 0, len(ids))
	for _, p := range resolved {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
