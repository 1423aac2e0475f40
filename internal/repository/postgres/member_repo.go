package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stepout/internal/domain"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type memberRepository struct {
	DB *sql.DB
}

func NewMemberRepository(db *sql.DB) domain.MemberRepository {
	return &memberRepository{
		DB: db,
	}
}

// upsertMember keeps a previously stored arrival time when m carries none.
func upsertMember(ctx context.Context, db execer, m *domain.EventMember) error {
	query := `
		INSERT INTO event_members (event_id, user_id, status, role, arrival_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			status = EXCLUDED.status,
			role = EXCLUDED.role,
			arrival_time = COALESCE(EXCLUDED.arrival_time, event_members.arrival_time),
			updated_at = EXCLUDED.updated_at
	`
	_, err := db.ExecContext(ctx, query, m.EventID, m.UserID, string(m.Status), string(m.Role), nullTime(m.ArrivalTime), m.UpdatedAt)
	if err != nil {
		if isPQCode(err, codeForeignKeyViolation) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

func (r *memberRepository) Upsert(ctx context.Context, m *domain.EventMember) error {
	return upsertMember(ctx, r.DB, m)
}

func scanMember(row rowScanner) (*domain.EventMember, error) {
	m := &domain.EventMember{}
	var arrival sql.NullTime
	if err := row.Scan(&m.EventID, &m.UserID, &m.Status, &m.Role, &arrival, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ArrivalTime = timePtr(arrival)
	return m, nil
}

func (r *memberRepository) Get(ctx context.Context, eventID, userID string) (*domain.EventMember, error) {
	query := `
		SELECT event_id, user_id, status, role, arrival_time, updated_at
		FROM event_members
		WHERE event_id = $1 AND user_id = $2
	`
	m, err := scanMember(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *memberRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.EventMember, error) {
	query := `
		SELECT event_id, user_id, status, role, arrival_time, updated_at
		FROM event_members
		WHERE event_id = $1
		ORDER BY user_id
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*domain.EventMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *memberRepository) CountByStatus(ctx context.Context, eventID string, status domain.RSVPStatus) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_members WHERE event_id = $1 AND status = $2`, eventID, string(status)).Scan(&n)
	return n, err
}
