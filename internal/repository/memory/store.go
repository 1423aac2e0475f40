// Package memory is an in-process implementation of the repository ports.
// It backs STORAGE_DRIVER=memory and the service tests. Every multi-record
// write happens under one lock, so batches are all-or-nothing.
package memory

import (
	"sort"
	"sync"
	"time"

	"stepout/internal/domain"
)

type memberKey struct {
	eventID string
	userID  string
}

type edgeKey struct {
	owner  string
	friend string
}

// Store holds all collections.
type Store struct {
	mu       sync.RWMutex
	events   map[string]*domain.Event
	members  map[memberKey]*domain.EventMember
	chats    map[string]*domain.Chat
	messages map[string][]*domain.Message
	friends  map[edgeKey]*domain.Friend
	invites  map[string]*domain.FriendInvite
	users    map[string]*domain.User
}

// New returns an empty store.
func New() *Store {
	return &Store{
		events:   make(map[string]*domain.Event),
		members:  make(map[memberKey]*domain.EventMember),
		chats:    make(map[string]*domain.Chat),
		messages: make(map[string][]*domain.Message),
		friends:  make(map[edgeKey]*domain.Friend),
		invites:  make(map[string]*domain.FriendInvite),
		users:    make(map[string]*domain.User),
	}
}

func (s *Store) Events() domain.EventRepository { return &eventRepository{s} }
func (s *Store) Members() domain.MemberRepository { return &memberRepository{s} }
func (s *Store) Chats() domain.ChatRepository { return &chatRepository{s} }
func (s *Store) Friends() domain.FriendRepository { return &friendRepository{s} }
func (s *Store) Invites() domain.FriendInviteRepository { return &inviteRepository{s} }
func (s *Store) Users() domain.UserRepository { return &userRepository{s} }

// PutUser seeds the profile store.
func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.users[u.ID] = &c
}

// PutFriend seeds a friend edge.
func (s *Store) PutFriend(f *domain.Friend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *f
	s.friends[edgeKey{f.OwnerID, f.FriendID}] = &c
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.InvitedUserIDs = append([]string{}, e.InvitedUserIDs...)
	if e.Description != nil {
		d := *e.Description
		c.Description = &d
	}
	if e.Geo != nil {
		g := *e.Geo
		c.Geo = &g
	}
	if e.GuestCap != nil {
		g := *e.GuestCap
		c.GuestCap = &g
	}
	if e.CoverImageRef != nil {
		r := *e.CoverImageRef
		c.CoverImageRef = &r
	}
	if e.CanceledAt != nil {
		t := *e.CanceledAt
		c.CanceledAt = &t
	}
	return &c
}

func cloneChat(ch *domain.Chat) *domain.Chat {
	c := *ch
	c.Participants = append([]string{}, ch.Participants...)
	c.UnreadCounts = make(map[string]int, len(ch.UnreadCounts))
	for k, v := range ch.UnreadCounts {
		c.UnreadCounts[k] = v
	}
	return &c
}

func cloneInvite(inv *domain.FriendInvite) *domain.FriendInvite {
	c := *inv
	return &c
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrString(s string) *string { return &s }

// sortByStartDesc orders events by start time descending, id breaking ties for determinism.
func sortByStartDesc(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartsAt.After(events[j].StartsAt)
	})
}
