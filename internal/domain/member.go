package domain

import (
	"context"
	"fmt"
	"time"
)

// RSVPStatus is the attendance state of a caller for an event.
// RSVPNone means no membership record exists and is never persisted.
type RSVPStatus string

const (
	RSVPNone       RSVPStatus = ""
	RSVPGoing      RSVPStatus = "going"
	RSVPInterested RSVPStatus = "interested"
	RSVPDeclined   RSVPStatus = "declined"
)

// ParseRSVPStatus parses a client-supplied status. RSVPNone is not accepted.
func ParseRSVPStatus(s string) (RSVPStatus, error) {
	switch RSVPStatus(s) {
	case RSVPGoing, RSVPInterested, RSVPDeclined:
		return RSVPStatus(s), nil
	}
	return RSVPNone, fmt.Errorf("%w: unknown rsvp status %q", ErrInvalidInput, s)
}

// String returns "none" for RSVPNone so the absent state is explicit on the wire.
func (s RSVPStatus) String() string {
	if s == RSVPNone {
		return "none"
	}
	return string(s)
}

// MemberRole is derived from event ownership, never chosen by the caller.
type MemberRole string

const (
	RoleHost     MemberRole = "host"
	RoleAttendee MemberRole = "attendee"
	RoleAdmin    MemberRole = "admin"
)

// RoleFor returns host when userID owns the event, attendee otherwise.
func RoleFor(event *Event, userID string) MemberRole {
	if event.OwnerID == userID {
		return RoleHost
	}
	return RoleAttendee
}

// EventMember is the per-(event, user) membership record.
// swagger:model EventMember
type EventMember struct {
	EventID     string     `json:"event_id"`
	UserID      string     `json:"user_id"`
	Status      RSVPStatus `json:"status"`
	Role        MemberRole `json:"role"`
	ArrivalTime *time.Time `json:"arrival_time,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewEventMember creates a membership record.
func NewEventMember(eventID, userID string, status RSVPStatus, role MemberRole, updatedAt time.Time) *EventMember {
	return &EventMember{
		EventID:   eventID,
		UserID:    userID,
		Status:    status,
		Role:      role,
		UpdatedAt: updatedAt,
	}
}

// MemberRepository defines storage for membership records.
type MemberRepository interface {
	// Upsert merges the member record keyed by (event, user); last write wins.
	Upsert(ctx context.Context, m *EventMember) error
	Get(ctx context.Context, eventID, userID string) (*EventMember, error)
	ListByEvent(ctx context.Context, eventID string) ([]*EventMember, error)
	CountByStatus(ctx context.Context, eventID string, status RSVPStatus) (int, error)
}

// RSVPInput is the payload of rsvpEvent.
type RSVPInput struct {
	EventID     string
	Status      RSVPStatus
	ArrivalTime *time.Time
	IDVariants  []string
}

// MembershipService drives RSVP transitions and their chat side effects.
type MembershipService interface {
	RSVP(ctx context.Context, callerID string, in RSVPInput) (*EventMember, error)
	// Status returns RSVPNone when the caller has no record for the event.
	Status(ctx context.Context, callerID, eventID string) (RSVPStatus, error)
}
