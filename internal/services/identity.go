package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stepout/internal/domain"
)

type eventIdentityResolver struct {
	eventRepo domain.EventRepository
}

// NewEventIdentityResolver returns a resolver that accepts legacy casing variants of event ids.
// New ids are canonical at write time, so the canonical form is always probed first.
func NewEventIdentityResolver(eventRepo domain.EventRepository) domain.EventIdentityResolver {
	return &eventIdentityResolver{eventRepo: eventRepo}
}

func (r *eventIdentityResolver) Resolve(ctx context.Context, eventID string, variants []string) (*domain.Event, error) {
	candidates := identityCandidates(eventID, variants)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: event id is required", domain.ErrInvalidInput)
	}
	for _, id := range candidates {
		event, err := r.eventRepo.GetByID(ctx, id)
		if err == nil {
			return event, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get event: %w", err)
		}
	}
	return nil, domain.ErrNotFound
}

// identityCandidates returns the deduplicated probe order:
// canonical, supplied, supplied variants, upper, lower.
func identityCandidates(eventID string, variants []string) []string {
	id := strings.TrimSpace(eventID)
	raw := make([]string, 0, len(variants)+4)
	raw = append(raw, domain.CanonicalID(id), id)
	for _, v := range variants {
		raw = append(raw, strings.TrimSpace(v))
	}
	raw = append(raw, strings.ToUpper(id), strings.ToLower(id))

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, c := range raw {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
