package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"stepout/internal/domain"
	"stepout/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// harness wires every service against one in-memory store.
type harness struct {
	store    *memory.Store
	clock    *testClock
	resolver domain.EventIdentityResolver
	events   domain.EventService
	members  domain.MembershipService
	chats    domain.ChatService
	feed     domain.FeedService
	friends  domain.FriendService
	archival domain.ArchivalService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	logger := testLogger()
	timeout := 5 * time.Second

	for _, u := range []struct{ id, name string }{
		{"ALICE", "Alice"}, {"BOB", "Bob"}, {"CAROL", "Carol"}, {"DAVE", "Dave"},
	} {
		email := u.name + "@example.com"
		store.PutUser(&domain.User{ID: u.id, DisplayName: u.name, Email: &email, CreatedAt: clock.now, UpdatedAt: clock.now})
	}

	resolver := NewEventIdentityResolver(store.Events())
	chats := NewChatService(store.Chats(), store.Events(), store.Users(), nil, clock, logger, timeout)
	return &harness{
		store:    store,
		clock:    clock,
		resolver: resolver,
		events:   NewEventService(store.Events(), store.Members(), store.Users(), resolver, clock, logger, timeout),
		members:  NewMembershipService(store.Members(), store.Chats(), store.Users(), resolver, chats, clock, logger, timeout),
		chats:    chats,
		feed:     NewFeedService(store.Events(), store.Members(), store.Friends(), store.Users(), logger, timeout),
		friends:  NewFriendService(store.Friends(), store.Invites(), store.Users(), nil, clock, logger, timeout),
		archival: NewArchivalService(store.Events(), store.Chats(), clock, DefaultArchiveGrace, logger),
	}
}

// createEvent creates an event starting an hour from now and lasting two hours.
func (h *harness) createEvent(t *testing.T, owner string, visibility domain.Visibility) *domain.Event {
	t.Helper()
	start := h.clock.Now().Add(time.Hour)
	e, err := h.events.CreateEvent(context.Background(), owner, domain.NewEventInput{
		Title:      "Picnic",
		StartsAt:   start,
		EndsAt:     start.Add(2 * time.Hour),
		Location:   "Park",
		Visibility: visibility,
	})
	require.NoError(t, err)
	return e
}

func (h *harness) rsvp(t *testing.T, caller, eventID string, status domain.RSVPStatus) *domain.EventMember {
	t.Helper()
	m, err := h.members.RSVP(context.Background(), caller, domain.RSVPInput{EventID: eventID, Status: status})
	require.NoError(t, err)
	return m
}

func (h *harness) systemMessages(t *testing.T, chatID string) []*domain.Message {
	t.Helper()
	msgs, err := h.store.Chats().ListMessages(context.Background(), chatID, 1000, nil)
	require.NoError(t, err)
	var out []*domain.Message
	for _, m := range msgs {
		if m.Type == domain.MessageTypeSystem {
			out = append(out, m)
		}
	}
	return out
}
