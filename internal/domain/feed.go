package domain

import (
	"context"
	"time"
)

// RosterSource labels where a feed's friend roster came from.
type RosterSource string

const (
	// RosterRealFriends is drawn from the caller's active friend edges.
	RosterRealFriends RosterSource = "friends"
	// RosterInferredContacts is the fallback built from attendees of the returned events.
	// It can include people who are not friends of the caller.
	RosterInferredContacts RosterSource = "inferred_contacts"
)

// Roster is the shareable-contacts list accompanying a feed.
// swagger:model Roster
type Roster struct {
	Source  RosterSource     `json:"source"`
	Members []*FriendProfile `json:"members"`
}

// FeedEvent is an event enriched with the caller's attendance view.
// swagger:model FeedEvent
type FeedEvent struct {
	Event        *Event               `json:"event"`
	Attending    bool                 `json:"attending"`
	MyStatus     string               `json:"my_status"`
	GoingUserIDs []string             `json:"going_user_ids"`
	ArrivalTimes map[string]time.Time `json:"arrival_times"`
}

// Feed is the result of listFeed.
// swagger:model Feed
type Feed struct {
	Events  []*FeedEvent `json:"events"`
	Friends *Roster      `json:"friends"`
}

// FeedService composes personalized feeds.
type FeedService interface {
	ListFeed(ctx context.Context, callerID string, q EventListQuery) (*Feed, error)
}
