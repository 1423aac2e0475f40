package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stepout/internal/domain"
)

// DefaultArchiveGrace is how long after an event ends its chat stays active.
const DefaultArchiveGrace = 7 * 24 * time.Hour

type archivalService struct {
	eventRepo domain.EventRepository
	chatRepo  domain.ChatRepository
	clock     domain.Clock
	grace     time.Duration
	logger    *slog.Logger
}

func NewArchivalService(eventRepo domain.EventRepository,
	chatRepo domain.ChatRepository,
	clock domain.Clock,
	grace time.Duration,
	logger *slog.Logger,
) domain.ArchivalService {
	if grace <= 0 {
		grace = DefaultArchiveGrace
	}
	return &archivalService{
		eventRepo: eventRepo,
		chatRepo:  chatRepo,
		clock:     clock,
		grace:     grace,
		logger:    logger,
	}
}

func (s *archivalService) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.grace)
	ids, err := s.eventRepo.ListEndedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list ended events: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.chatRepo.ArchiveByEventIDs(ctx, ids, now)
	if err != nil {
		return 0, fmt.Errorf("archive chats: %w", err)
	}
	s.logger.InfoContext(ctx, "archival sweep finished", "cutoff", cutoff, "ended_events", len(ids), "archived_chats", n)
	return n, nil
}
