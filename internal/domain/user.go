package domain

import (
	"context"
	"time"
)

// User is a profile record owned by the external profile store.
// swagger:model User
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NameOrDefault returns the display name, or fallback when it is empty.
func (u *User) NameOrDefault(fallback string) string {
	if u == nil || u.DisplayName == "" {
		return fallback
	}
	return u.DisplayName
}

// UserRepository defines read access to the profile store.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmail and GetByPhone match the contact exactly; ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
}

// TokenVerifier verifies a bearer token and returns the canonical caller identity.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
