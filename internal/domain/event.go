package domain

import (
	"context"
	"strings"
	"time"
)

// Visibility controls who can discover an event in the feed.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityInviteOnly Visibility = "invite-only"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityInviteOnly
}

// GeoPoint is an optional event coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is inside the WGS84 bounds.
func (g GeoPoint) Valid() bool {
	return g.Lat >= -90 && g.Lat <= 90 && g.Lng >= -180 && g.Lng <= 180
}

// Event represents a user-created event.
// swagger:model Event
type Event struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         time.Time  `json:"ends_at"`
	Location       string     `json:"location"`
	Geo            *GeoPoint  `json:"geo,omitempty"`
	Visibility     Visibility `json:"visibility"`
	GuestCap       *int       `json:"guest_cap,omitempty"`
	CoverImageRef  *string    `json:"cover_image_ref,omitempty"`
	InvitedUserIDs []string   `json:"invited_user_ids"`
	Canceled       bool       `json:"canceled"`
	CanceledAt     *time.Time `json:"canceled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is assigned by the event service.
func NewEvent(ownerID, title, location string, visibility Visibility, startsAt, endsAt, createdAt, updatedAt time.Time) *Event {
	return &Event{
		OwnerID:        ownerID,
		Title:          title,
		Location:       location,
		Visibility:     visibility,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		InvitedUserIDs: []string{},
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
}

// CanonicalID returns the single authoritative form of an identity (event or user).
// It is applied at write time everywhere ids are stored.
func CanonicalID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// CanonicalIDSet canonicalizes ids, dropping blanks and duplicates while keeping first-seen order.
func CanonicalIDSet(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c := CanonicalID(id)
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

// EventPatch carries the mutable fields of an update. Nil fields are left untouched.
type EventPatch struct {
	Title          *string
	Description    *string
	StartsAt       *time.Time
	EndsAt         *time.Time
	Location       *string
	Geo            *GeoPoint
	Visibility     *Visibility
	GuestCap       *int
	CoverImageRef  *string
	InvitedUserIDs []string
}

// Fields returns the json names of the fields present in the patch, in a stable order.
func (p EventPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.StartsAt != nil {
		fields = append(fields, "starts_at")
	}
	if p.EndsAt != nil {
		fields = append(fields, "ends_at")
	}
	if p.Location != nil {
		fields = append(fields, "location")
	}
	if p.Geo != nil {
		fields = append(fields, "geo")
	}
	if p.Visibility != nil {
		fields = append(fields, "visibility")
	}
	if p.GuestCap != nil {
		fields = append(fields, "guest_cap")
	}
	if p.CoverImageRef != nil {
		fields = append(fields, "cover_image_ref")
	}
	if p.InvitedUserIDs != nil {
		fields = append(fields, "invited_user_ids")
	}
	return fields
}

// Apply copies the present fields of p onto e.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		e.Description = &d
	}
	if p.StartsAt != nil {
		e.StartsAt = *p.StartsAt
	}
	if p.EndsAt != nil {
		e.EndsAt = *p.EndsAt
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Geo != nil {
		g := *p.Geo
		e.Geo = &g
	}
	if p.Visibility != nil {
		e.Visibility = *p.Visibility
	}
	if p.GuestCap != nil {
		c := *p.GuestCap
		e.GuestCap = &c
	}
	if p.CoverImageRef != nil {
		r := *p.CoverImageRef
		e.CoverImageRef = &r
	}
	if p.InvitedUserIDs != nil {
		e.InvitedUserIDs = append([]string{}, p.InvitedUserIDs...)
	}
}

// EventBundle is everything written atomically when an event is created.
type EventBundle struct {
	Event    *Event
	Host     *EventMember
	Chat     *Chat
	Greeting *Message
}

// EventListQuery narrows the feed source queries. Zero values mean "no constraint".
type EventListQuery struct {
	Limit      int
	Visibility Visibility
	From       *time.Time
	To         *time.Time
	Before     *time.Time
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	// Create writes the event, its host membership, its chat and the chat greeting in one batch.
	Create(ctx context.Context, bundle *EventBundle) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, id string, patch EventPatch, updatedAt time.Time) (*Event, error)
	// Cancel sets the soft-delete flag and archives the event's chats.
	Cancel(ctx context.Context, id string, at time.Time) error
	// HardDelete removes the event and all its membership records and archives its chats.
	HardDelete(ctx context.Context, id string, at time.Time) error
	// AddInvitees merges ids into the invited-identities set and returns the resulting set.
	AddInvitees(ctx context.Context, id string, userIDs []string, at time.Time) ([]string, error)
	// ListByOwner, ListPublic and ListInvited are the three feed sources, ordered by start time descending.
	ListByOwner(ctx context.Context, ownerID string, q EventListQuery) ([]*Event, error)
	ListPublic(ctx context.Context, q EventListQuery) ([]*Event, error)
	ListInvited(ctx context.Context, userID string, q EventListQuery) ([]*Event, error)
	// ListEndedBefore returns ids of events whose end time is at or before cutoff.
	ListEndedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// NewEventInput is the payload of createEvent.
type NewEventInput struct {
	Title         string
	Description   *string
	StartsAt      time.Time
	EndsAt        time.Time
	Location      string
	Geo           *GeoPoint
	Visibility    Visibility
	GuestCap      *int
	CoverImageRef *string
}

// EventIdentityResolver maps a caller-supplied event id to the canonical stored event.
type EventIdentityResolver interface {
	Resolve(ctx context.Context, eventID string, variants []string) (*Event, error)
}

// EventService defines the event store operations exposed to callers.
type EventService interface {
	CreateEvent(ctx context.Context, callerID string, in NewEventInput) (*Event, error)
	// UpdateEvent returns the updated event and the names of the applied fields.
	UpdateEvent(ctx context.Context, callerID, eventID string, patch EventPatch) (*Event, []string, error)
	DeleteEvent(ctx context.Context, callerID, eventID string, hardDelete bool) (*Event, error)
	// ShareEvent adds recipients to the invited set and returns the number of distinct recipients shared with.
	ShareEvent(ctx context.Context, callerID, eventID string, recipientIDs []string) (*Event, int, error)
}
