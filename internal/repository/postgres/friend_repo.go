package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stepout/internal/domain"
)

type friendRepository struct {
	DB *sql.DB
}

func NewFriendRepository(db *sql.DB) domain.FriendRepository {
	return &friendRepository{DB: db}
}

func (r *friendRepository) ListByOwner(ctx context.Context, ownerID string, status domain.FriendStatus) ([]*domain.Friend, error) {
	query := `
		SELECT owner_id, friend_id, status, created_at
		FROM friends
		WHERE owner_id = $1 AND status = $2
		ORDER BY friend_id
	`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	friends := make([]*domain.Friend, 0)
	for rows.Next() {
		f := &domain.Friend{}
		if err := rows.Scan(&f.OwnerID, &f.FriendID, &f.Status, &f.CreatedAt); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

func (r *friendRepository) Exists(ctx context.Context, ownerID, friendID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM friends WHERE owner_id = $1 AND friend_id = $2)`, ownerID, friendID).Scan(&exists)
	return exists, err
}

const inviteColumns = `id, sender_id, recipient_phone, recipient_email, recipient_id, status, created_at, responded_at`

type inviteRepository struct {
	DB *sql.DB
}

func NewFriendInviteRepository(db *sql.DB) domain.FriendInviteRepository {
	return &inviteRepository{DB: db}
}

func scanInvite(row rowScanner) (*domain.FriendInvite, error) {
	inv := &domain.FriendInvite{}
	var phone, email, recipient sql.NullString
	var responded sql.NullTime
	if err := row.Scan(&inv.ID, &inv.SenderID, &phone, &email, &recipient, &inv.Status, &inv.CreatedAt, &responded); err != nil {
		return nil, err
	}
	inv.RecipientPhone = stringPtr(phone)
	inv.RecipientEmail = stringPtr(email)
	inv.RecipientID = stringPtr(recipient)
	inv.RespondedAt = timePtr(responded)
	return inv, nil
}

func (r *inviteRepository) Create(ctx context.Context, inv *domain.FriendInvite) error {
	query := `INSERT INTO friend_invites (` + inviteColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		inv.ID, inv.SenderID, nullString(inv.RecipientPhone), nullString(inv.RecipientEmail), nullString(inv.RecipientID),
		string(inv.Status), inv.CreatedAt, nullTime(inv.RespondedAt),
	)
	if err != nil {
		if isPQCode(err, codeUniqueViolation) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*domain.FriendInvite, error) {
	inv, err := scanInvite(r.DB.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM friend_invites WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteRepository) GetPendingBetween(ctx context.Context, a, b string) (*domain.FriendInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM friend_invites
		WHERE status = 'pending'
			AND ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
		ORDER BY created_at
		LIMIT 1
	`
	inv, err := scanInvite(r.DB.QueryRowContext(ctx, query, a, b))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteRepository) GetPendingToContact(ctx context.Context, senderID string, email, phone *string) (*domain.FriendInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM friend_invites
		WHERE status = 'pending' AND sender_id = $1
			AND ((recipient_email IS NOT NULL AND lower(recipient_email) = lower($2))
				OR (recipient_phone IS NOT NULL AND recipient_phone = $3))
		ORDER BY created_at
		LIMIT 1
	`
	inv, err := scanInvite(r.DB.QueryRowContext(ctx, query, senderID, nullString(email), nullString(phone)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *inviteRepository) ListPendingForUser(ctx context.Context, userID string) ([]*domain.FriendInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM friend_invites
		WHERE status = 'pending' AND (sender_id = $1 OR recipient_id = $1)
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invites := make([]*domain.FriendInvite, 0)
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// respond flips a pending invite. Zero affected rows means the invite is gone or already answered.
func respond(ctx context.Context, db execer, inviteID string, status domain.InviteStatus, at time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE friend_invites SET status = $2, responded_at = $3
		WHERE id = $1 AND status = 'pending'
	`, inviteID, string(status), at)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: invite is no longer pending", domain.ErrFailedPrecondition)
	}
	return nil
}

func (r *inviteRepository) Accept(ctx context.Context, inviteID string, at time.Time, edges []*domain.Friend) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := respond(ctx, tx, inviteID, domain.InviteAccepted, at); err != nil {
			return err
		}
		for _, e := range edges {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO friends (owner_id, friend_id, status, created_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (owner_id, friend_id) DO UPDATE SET status = EXCLUDED.status
				WHERE friends.status <> 'blocked'
			`, e.OwnerID, e.FriendID, string(e.Status), e.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert friend edge: %w", err)
			}
			// A blocked edge suppresses the upsert.
			if rows, _ := result.RowsAffected(); rows == 0 {
				return fmt.Errorf("%w: friendship is blocked", domain.ErrFailedPrecondition)
			}
		}
		return nil
	})
}

func (r *inviteRepository) Decline(ctx context.Context, inviteID string, at time.Time) error {
	return respond(ctx, r.DB, inviteID, domain.InviteDeclined, at)
}
