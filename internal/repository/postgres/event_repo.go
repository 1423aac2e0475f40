package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stepout/internal/domain"

	"github.com/lib/pq"
)

const eventColumns = `id, owner_id, title, description, starts_at, ends_at, location, geo_lat, geo_lng,
		visibility, guest_cap, cover_image_ref, invited_user_ids, canceled, canceled_at, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, coverNull sql.NullString
	var latNull, lngNull sql.NullFloat64
	var capNull sql.NullInt64
	var canceledAt sql.NullTime
	var invited []string
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Title, &descNull, &e.StartsAt, &e.EndsAt, &e.Location, &latNull, &lngNull,
		&e.Visibility, &capNull, &coverNull, pq.Array(&invited), &e.Canceled, &canceledAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Description = stringPtr(descNull)
	e.CoverImageRef = stringPtr(coverNull)
	e.CanceledAt = timePtr(canceledAt)
	if latNull.Valid && lngNull.Valid {
		e.Geo = &domain.GeoPoint{Lat: latNull.Float64, Lng: lngNull.Float64}
	}
	if capNull.Valid {
		c := int(capNull.Int64)
		e.GuestCap = &c
	}
	if invited == nil {
		invited = []string{}
	}
	e.InvitedUserIDs = invited
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, b *domain.EventBundle) error {
	e := b.Event
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var lat, lng sql.NullFloat64
		if e.Geo != nil {
			lat = sql.NullFloat64{Float64: e.Geo.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: e.Geo.Lng, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`,
			e.ID, e.OwnerID, e.Title, nullString(e.Description), e.StartsAt, e.EndsAt, e.Location, lat, lng,
			string(e.Visibility), nullInt(e.GuestCap), nullString(e.CoverImageRef), pq.Array(e.InvitedUserIDs),
			e.Canceled, nullTime(e.CanceledAt), e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			if isPQCode(err, codeUniqueViolation) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("insert event: %w", err)
		}
		if b.Host != nil {
			if err := upsertMember(ctx, tx, b.Host); err != nil {
				return err
			}
		}
		if b.Chat == nil {
			return nil
		}
		ch := b.Chat
		var text, sender sql.NullString
		var at sql.NullTime
		if b.Greeting != nil {
			text = sql.NullString{String: b.Greeting.Text, Valid: true}
			sender = sql.NullString{String: b.Greeting.SenderID, Valid: true}
			at = sql.NullTime{Time: b.Greeting.CreatedAt, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chats (id, event_id, last_message_text, last_message_at, last_message_sender, archived, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		`, ch.ID, ch.EventID, text, at, sender, ch.CreatedAt); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		for _, p := range ch.Participants {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chat_participants (chat_id, user_id, unread_count, joined_at)
				VALUES ($1, $2, 0, $3)
			`, ch.ID, p, ch.CreatedAt); err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
		if b.Greeting != nil {
			if err := insertMessage(ctx, tx, b.Greeting); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Update(ctx context.Context, id string, patch domain.EventPatch, updatedAt time.Time) (*domain.Event, error) {
	setClauses := []string{"updated_at = $1"}
	args := []interface{}{updatedAt}
	n := 2
	set := func(column string, v interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, v)
		n++
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.StartsAt != nil {
		set("starts_at", *patch.StartsAt)
	}
	if patch.EndsAt != nil {
		set("ends_at", *patch.EndsAt)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Geo != nil {
		set("geo_lat", patch.Geo.Lat)
		set("geo_lng", patch.Geo.Lng)
	}
	if patch.Visibility != nil {
		set("visibility", string(*patch.Visibility))
	}
	if patch.GuestCap != nil {
		set("guest_cap", *patch.GuestCap)
	}
	if patch.CoverImageRef != nil {
		set("cover_image_ref", *patch.CoverImageRef)
	}
	if patch.InvitedUserIDs != nil {
		set("invited_user_ids", pq.Array(patch.InvitedUserIDs))
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Cancel(ctx context.Context, id string, at time.Time) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE events SET canceled = TRUE, canceled_at = $2, updated_at = $2
			WHERE id = $1
		`, id, at)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domain.ErrNotFound
		}
		_, err = archiveChats(ctx, tx, []string{id}, at)
		return err
	})
}

func (r *eventRepository) HardDelete(ctx context.Context, id string, at time.Time) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_members WHERE event_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domain.ErrNotFound
		}
		_, err = archiveChats(ctx, tx, []string{id}, at)
		return err
	})
}

func (r *eventRepository) AddInvitees(ctx context.Context, id string, userIDs []string, at time.Time) ([]string, error) {
	query := `
		UPDATE events
		SET invited_user_ids = ARRAY(
				SELECT u FROM unnest(invited_user_ids || $2::text[]) WITH ORDINALITY AS t(u, ord)
				GROUP BY u ORDER BY MIN(ord)
			),
			updated_at = $3
		WHERE id = $1
		RETURNING invited_user_ids
	`
	var invited []string
	err := r.DB.QueryRowContext(ctx, query, id, pq.Array(userIDs), at).Scan(pq.Array(&invited))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if invited == nil {
		invited = []string{}
	}
	return invited, nil
}

func (r *eventRepository) ListByOwner(ctx context.Context, ownerID string, q domain.EventListQuery) ([]*domain.Event, error) {
	return r.list(ctx, "owner_id = $1", ownerID, q, true)
}

func (r *eventRepository) ListPublic(ctx context.Context, q domain.EventListQuery) ([]*domain.Event, error) {
	return r.list(ctx, "visibility = $1", string(domain.VisibilityPublic), q, false)
}

func (r *eventRepository) ListInvited(ctx context.Context, userID string, q domain.EventListQuery) ([]*domain.Event, error) {
	return r.list(ctx, "$1 = ANY(invited_user_ids)", userID, q, false)
}

func (r *eventRepository) ListEndedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM events WHERE ends_at <= $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// list runs one feed source query. The source predicate must use $1.
func (r *eventRepository) list(ctx context.Context, source string, sourceArg interface{}, q domain.EventListQuery, includeCanceled bool) ([]*domain.Event, error) {
	where := []string{source}
	args := []interface{}{sourceArg}
	n := 2
	add := func(clause string, v interface{}) {
		where = append(where, fmt.Sprintf(clause, n))
		args = append(args, v)
		n++
	}
	if !includeCanceled {
		where = append(where, "canceled = FALSE")
	}
	if q.Visibility != "" {
		add("visibility = $%d", string(q.Visibility))
	}
	if q.From != nil {
		add("starts_at >= $%d", *q.From)
	}
	if q.To != nil {
		add("starts_at <= $%d", *q.To)
	}
	if q.Before != nil {
		add("starts_at < $%d", *q.Before)
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(where, " AND ") + ` ORDER BY starts_at DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, q.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
