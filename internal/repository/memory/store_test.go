package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stepout/internal/domain"
)

var base = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func seedEvent(t *testing.T, s *Store, id, owner string, vis domain.Visibility, start time.Time) {
	t.Helper()
	e := domain.NewEvent(owner, "title "+id, "loc", vis, start, start.Add(2*time.Hour), base, base)
	e.ID = id
	err := s.Events().Create(context.Background(), &domain.EventBundle{
		Event: e,
		Host:  domain.NewEventMember(id, owner, domain.RSVPGoing, domain.RoleHost, base),
		Chat:  domain.NewChat(id, owner, base),
		Greeting: &domain.Message{
			ID: "m-" + id, ChatID: id, SenderID: domain.SystemSenderID,
			Text: "created", Type: domain.MessageTypeSystem, CreatedAt: base,
		},
	})
	require.NoError(t, err)
}

func TestEventRepository_CreateIsAtomicBundle(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedEvent(t, s, "E1", "alice", domain.VisibilityPublic, base)

	e, err := s.Events().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "alice", e.OwnerID)

	host, err := s.Members().Get(ctx, "E1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleHost, host.Role)

	ch, err := s.Chats().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ch.Participants)
	require.NotNil(t, ch.LastMessageText)
	assert.Equal(t, "created", *ch.LastMessageText)

	e2 := domain.NewEvent("bob", "dup", "loc", domain.VisibilityPublic, base, base.Add(time.Hour), base, base)
	e2.ID = "E1"
	err = s.Events().Create(ctx, &domain.EventBundle{Event: e2})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestEventRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedEvent(t, s, "E1", "alice", domain.VisibilityPublic, base)

	e, err := s.Events().GetByID(ctx, "E1")
	require.NoError(t, err)
	e.Title = "mutated"
	e.InvitedUserIDs = append(e.InvitedUserIDs, "x")

	again, err := s.Events().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "title E1", again.Title)
	assert.Empty(t, again.InvitedUserIDs)
}

func TestEventRepository_CancelArchivesChat(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedEvent(t, s, "E1", "alice", domain.VisibilityPublic, base)
	at := base.Add(time.Hour)

	require.NoError(t, s.Events().Cancel(ctx, "E1", at))

	e, err := s.Events().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, e.Canceled)
	ch, err := s.Chats().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, ch.Archived)
	assert.Equal(t, at, *ch.ArchivedAt)

	assert.ErrorIs(t, s.Events().Cancel(ctx, "nope", at), domain.ErrNotFound)
}

func TestEventRepository_HardDeleteRemovesMembers(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedEvent(t, s, "E1", "alice", domain.VisibilityPublic, base)

	require.NoError(t, s.Events().HardDelete(ctx, "E1", base))

	_, err := s.Events().GetByID(ctx, "E1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	members, err := s.Members().ListByEvent(ctx, "E1")
	require.NoError(t, err)
	assert.Empty(t, members)
	ch, err := s.Chats().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, ch.Archived)
}

func TestEventRepository_Lists(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedEvent(t, s, "A", "alice", domain.VisibilityPublic, base)
	seedEvent(t, s, "B", "alice", domain.VisibilityInviteOnly, base.Add(24*time.Hour))
	seedEvent(t, s, "C", "bob", domain.VisibilityPublic, base.Add(48*time.Hour))
	seedEvent(t, s, "D", "bob", domain.VisibilityInviteOnly, base.Add(72*time.Hour))
	_, err := s.Events().AddInvitees(ctx, "D", []string{"alice", "alice"}, base)
	require.NoError(t, err)
	require.NoError(t, s.Events().Cancel(ctx, "C", base))

	owned, err := s.Events().ListByOwner(ctx, "alice", domain.EventListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, eventIDs(owned))

	public, err := s.Events().ListPublic(ctx, domain.EventListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, eventIDs(public), "canceled events are hidden from the public list")

	invited, err := s.Events().ListInvited(ctx, "alice", domain.EventListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, eventIDs(invited))

	before := base.Add(24 * time.Hour)
	paged, err := s.Events().ListByOwner(ctx, "alice", domain.EventListQuery{Before: &before, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, eventIDs(paged))

	limited, err := s.Events().ListByOwner(ctx, "alice", domain.EventListQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, eventIDs(limited))

	ended, err := s.Events().ListEndedBefore(ctx, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ended)
}

func TestMemberRepository_UpsertKeepsArrivalTime(t *testing.T) {
	ctx := context.Background()
	s := New()
	arrival := base.Add(30 * time.Minute)

	m := domain.NewEventMember("E1", "bob", domain.RSVPGoing, domain.RoleAttendee, base)
	m.ArrivalTime = &arrival
	require.NoError(t, s.Members().Upsert(ctx, m))

	require.NoError(t, s.Members().Upsert(ctx, domain.NewEventMember("E1", "bob", domain.RSVPInterested, domain.RoleAttendee, base.Add(time.Minute))))

	got, err := s.Members().Get(ctx, "E1", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPInterested, got.Status)
	require.NotNil(t, got.ArrivalTime)
	assert.Equal(t, arrival, *got.ArrivalTime)

	n, err := s.Members().CountByStatus(ctx, "E1", domain.RSVPInterested)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Members().Get(ctx, "E1", "carol")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatRepository_MessagesAndUnread(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedEvent(t, s, "E1", "alice", domain.VisibilityPublic, base)

	added, err := s.Chats().AddParticipant(ctx, "E1", "bob", base)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.Chats().AddParticipant(ctx, "E1", "bob", base)
	require.NoError(t, err)
	assert.False(t, added)

	for i, text := range []string{"one", "two", "three"} {
		at := base.Add(time.Duration(i+1) * time.Minute)
		msg := &domain.Message{ID: text, ChatID: "E1", SenderID: "bob", Text: text, Type: domain.MessageTypeText, CreatedAt: at}
		require.NoError(t, s.Chats().AppendMessage(ctx, msg, domain.MessagePreview{Text: text, At: at, SenderID: "bob"}))
	}

	ch, err := s.Chats().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 3, ch.UnreadCounts["alice"])
	assert.Equal(t, 0, ch.UnreadCounts["bob"])
	assert.Equal(t, "three", *ch.LastMessageText)

	latest, err := s.Chats().ListMessages(ctx, "E1", 2, nil)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "two", latest[0].Text)
	assert.Equal(t, "three", latest[1].Text)

	before := base.Add(2 * time.Minute)
	older, err := s.Chats().ListMessages(ctx, "E1", 10, &before)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, domain.MessageTypeSystem, older[0].Type)

	require.NoError(t, s.Chats().ResetUnread(ctx, "E1", "alice"))
	ch, err = s.Chats().GetByID(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 0, ch.UnreadCounts["alice"])

	msg := &domain.Message{ID: "x", ChatID: "nope", SenderID: "bob", Text: "x", Type: domain.MessageTypeText, CreatedAt: base}
	assert.ErrorIs(t, s.Chats().AppendMessage(ctx, msg, domain.MessagePreview{}), domain.ErrNotFound)
}

func TestChatRepository_ArchiveAndList(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedEvent(t, s, "E1", "alice", domain.VisibilityPublic, base)
	seedEvent(t, s, "E2", "alice", domain.VisibilityPublic, base.Add(time.Hour))

	n, err := s.Chats().ArchiveByEventIDs(ctx, []string{"E1", "missing"}, base)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.Chats().ArchiveByEventIDs(ctx, []string{"E1"}, base)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already archived chats are not counted again")

	active, err := s.Chats().ListByParticipant(ctx, "alice", false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "E2", active[0].ID)

	all, err := s.Chats().ListByParticipant(ctx, "alice", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInviteRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	bob := "bob"
	inv := &domain.FriendInvite{ID: "I1", SenderID: "alice", RecipientID: &bob, Status: domain.InvitePending, CreatedAt: base}
	require.NoError(t, s.Invites().Create(ctx, inv))

	dup := &domain.FriendInvite{ID: "I2", SenderID: "alice", RecipientID: &bob, Status: domain.InvitePending, CreatedAt: base}
	assert.ErrorIs(t, s.Invites().Create(ctx, dup), domain.ErrAlreadyExists)

	got, err := s.Invites().GetPendingBetween(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "I1", got.ID)

	pending, err := s.Invites().ListPendingForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	at := base.Add(time.Hour)
	require.NoError(t, s.Invites().Accept(ctx, "I1", at, domain.FriendEdgePair("alice", "bob", at)))
	assert.ErrorIs(t, s.Invites().Accept(ctx, "I1", at, nil), domain.ErrFailedPrecondition)
	assert.ErrorIs(t, s.Invites().Decline(ctx, "I1", at), domain.ErrFailedPrecondition)
	assert.ErrorIs(t, s.Invites().Decline(ctx, "missing", at), domain.ErrNotFound)

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		ok, err := s.Friends().Exists(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}
	friends, err := s.Friends().ListByOwner(ctx, "alice", domain.FriendActive)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].FriendID)

	_, err = s.Invites().GetPendingBetween(ctx, "alice", "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInviteRepository_ContactInvites(t *testing.T) {
	ctx := context.Background()
	s := New()
	email, phone := "sam@example.com", "+15550001"
	require.NoError(t, s.Invites().Create(ctx, &domain.FriendInvite{
		ID: "I1", SenderID: "alice", RecipientEmail: &email, Status: domain.InvitePending, CreatedAt: base,
	}))
	require.NoError(t, s.Invites().Create(ctx, &domain.FriendInvite{
		ID: "I2", SenderID: "alice", RecipientPhone: &phone, Status: domain.InvitePending, CreatedAt: base,
	}))

	upper := "SAM@example.com"
	err := s.Invites().Create(ctx, &domain.FriendInvite{ID: "I3", SenderID: "alice", RecipientEmail: &upper, Status: domain.InvitePending, CreatedAt: base})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	err = s.Invites().Create(ctx, &domain.FriendInvite{ID: "I4", SenderID: "alice", RecipientPhone: &phone, Status: domain.InvitePending, CreatedAt: base})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	require.NoError(t, s.Invites().Create(ctx, &domain.FriendInvite{
		ID: "I5", SenderID: "bob", RecipientEmail: &email, Status: domain.InvitePending, CreatedAt: base,
	}))

	got, err := s.Invites().GetPendingToContact(ctx, "alice", &upper, nil)
	require.NoError(t, err)
	assert.Equal(t, "I1", got.ID)
	got, err = s.Invites().GetPendingToContact(ctx, "alice", nil, &phone)
	require.NoError(t, err)
	assert.Equal(t, "I2", got.ID)
	_, err = s.Invites().GetPendingToContact(ctx, "carol", &email, &phone)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInviteRepository_AcceptKeepsBlockedEdge(t *testing.T) {
	ctx := context.Background()
	s := New()
	bob := "bob"
	require.NoError(t, s.Invites().Create(ctx, &domain.FriendInvite{ID: "I1", SenderID: "alice", RecipientID: &bob, Status: domain.InvitePending, CreatedAt: base}))
	s.PutFriend(&domain.Friend{OwnerID: "bob", FriendID: "alice", Status: domain.FriendBlocked, CreatedAt: base})

	err := s.Invites().Accept(ctx, "I1", base, domain.FriendEdgePair("alice", "bob", base))
	assert.ErrorIs(t, err, domain.ErrFailedPrecondition)

	ok, err := s.Friends().Exists(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	blocked, err := s.Friends().ListByOwner(ctx, "bob", domain.FriendBlocked)
	require.NoError(t, err)
	assert.Len(t, blocked, 1)
	inv, err := s.Invites().GetByID(ctx, "I1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvitePending, inv.Status)
}

func TestUserRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	s := New()
	email, phone := "sam@example.com", "+15550001"
	s.PutUser(&domain.User{ID: "sam", Email: &email, Phone: &phone})

	u, err := s.Users().GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "sam", u.ID)
	u, err = s.Users().GetByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, "sam", u.ID)
	_, err = s.Users().GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func eventIDs(events []*domain.Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
