package services

import (
	"context"
	"testing"
	"time"

	"stepout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchivalService_Sweep(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tenDaysAgo := h.createEventEnding(t, h.clock.Now().Add(-10*24*time.Hour))
	twoDaysAgo := h.createEventEnding(t, h.clock.Now().Add(-2*24*time.Hour))

	n, err := h.archival.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	old, err := h.store.Chats().GetByID(ctx, tenDaysAgo.ID)
	require.NoError(t, err)
	assert.True(t, old.Archived)
	require.NotNil(t, old.ArchivedAt)

	recent, err := h.store.Chats().GetByID(ctx, twoDaysAgo.ID)
	require.NoError(t, err)
	assert.False(t, recent.Archived)

	n, err = h.archival.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "re-running is a no-op")

	h.clock.Advance(6 * 24 * time.Hour)
	n, err = h.archival.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func (h *harness) createEventEnding(t *testing.T, end time.Time) *domain.Event {
	t.Helper()
	e, err := h.events.CreateEvent(context.Background(), "ALICE", domain.NewEventInput{
		Title:      "Past",
		StartsAt:   end.Add(-2 * time.Hour),
		EndsAt:     end,
		Location:   "Park",
		Visibility: domain.VisibilityPublic,
	})
	require.NoError(t, err)
	return e
}
