package domain

import (
	"context"
	"strings"
	"time"
)

// FriendStatus is the state of one directed friend edge.
type FriendStatus string

const (
	FriendActive  FriendStatus = "active"
	FriendBlocked FriendStatus = "blocked"
)

// Friend is one directed edge of the friend graph (owner -> friend).
// swagger:model Friend
type Friend struct {
	OwnerID   string       `json:"owner_id"`
	FriendID  string       `json:"friend_id"`
	Status    FriendStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// FriendEdgePair returns the two symmetric active edges created on acceptance.
func FriendEdgePair(a, b string, at time.Time) []*Friend {
	return []*Friend{
		{OwnerID: a, FriendID: b, Status: FriendActive, CreatedAt: at},
		{OwnerID: b, FriendID: a, Status: FriendActive, CreatedAt: at},
	}
}

// InviteStatus is the state of a friend invite. Transitions are pending -> accepted|declined only.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// FriendInvite is a friend request, addressed either to a known account or to a contact.
// swagger:model FriendInvite
type FriendInvite struct {
	ID             string       `json:"id"`
	SenderID       string       `json:"sender_id"`
	RecipientPhone *string      `json:"recipient_phone,omitempty"`
	RecipientEmail *string      `json:"recipient_email,omitempty"`
	RecipientID    *string      `json:"recipient_id,omitempty"`
	Status         InviteStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	RespondedAt    *time.Time   `json:"responded_at,omitempty"`
}

// IsAddressedTo reports whether userID is the resolved recipient of the invite.
func (i *FriendInvite) IsAddressedTo(userID string) bool {
	return i.RecipientID != nil && *i.RecipientID == userID
}

// MatchesContact reports whether the invite was sent to email (case-insensitive) or phone.
func (i *FriendInvite) MatchesContact(email, phone *string) bool {
	if email != nil && i.RecipientEmail != nil && strings.EqualFold(*i.RecipientEmail, *email) {
		return true
	}
	return phone != nil && i.RecipientPhone != nil && *i.RecipientPhone == *phone
}

// FriendRepository defines storage for friend edges.
type FriendRepository interface {
	ListByOwner(ctx context.Context, ownerID string, status FriendStatus) ([]*Friend, error)
	Exists(ctx context.Context, ownerID, friendID string) (bool, error)
}

// FriendInviteRepository defines storage for friend invites.
type FriendInviteRepository interface {
	// Create stores a pending invite; ErrAlreadyExists when a pending invite for the pair exists.
	Create(ctx context.Context, inv *FriendInvite) error
	GetByID(ctx context.Context, id string) (*FriendInvite, error)
	// GetPendingBetween returns a pending invite between a and b in either direction, or ErrNotFound.
	GetPendingBetween(ctx context.Context, a, b string) (*FriendInvite, error)
	// GetPendingToContact returns senderID's pending invite to the email or phone, or ErrNotFound.
	GetPendingToContact(ctx context.Context, senderID string, email, phone *string) (*FriendInvite, error)
	// ListPendingForUser returns pending invites sent by or addressed to userID.
	ListPendingForUser(ctx context.Context, userID string) ([]*FriendInvite, error)
	// Accept flips a pending invite to accepted and writes edges in one batch.
	// ErrFailedPrecondition when the invite is no longer pending or either edge is blocked.
	Accept(ctx context.Context, inviteID string, at time.Time, edges []*Friend) error
	// Decline flips a pending invite to declined; ErrFailedPrecondition when not pending.
	Decline(ctx context.Context, inviteID string, at time.Time) error
}

// InviteContact is the recipient contact of a contact-based invite.
type InviteContact struct {
	Phone *string
	Email *string
}

// FriendProfile is a friend identity enriched from the profile store.
// swagger:model FriendProfile
type FriendProfile struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

// PendingInvites partitions pending invites by direction relative to the caller.
// swagger:model PendingInvites
type PendingInvites struct {
	Sent     []*FriendInvite `json:"sent"`
	Received []*FriendInvite `json:"received"`
}

// FriendList is the result of listFriends.
type FriendList struct {
	Friends        []*FriendProfile `json:"friends"`
	PendingInvites *PendingInvites  `json:"pending_invites,omitempty"`
}

// FriendService runs the friend-request state machine.
type FriendService interface {
	InviteByContact(ctx context.Context, senderID string, contact InviteContact) (*FriendInvite, error)
	SendFriendRequest(ctx context.Context, senderID, recipientID string) (*FriendInvite, error)
	// RespondToFriendRequest returns the updated invite; the new friend id is the sender when accepted.
	RespondToFriendRequest(ctx context.Context, callerID, inviteID string, accept bool) (*FriendInvite, error)
	ListFriends(ctx context.Context, callerID string, includeInvites bool) (*FriendList, error)
}
