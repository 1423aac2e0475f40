package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stepout/internal/domain"

	"github.com/lib/pq"
)

const chatColumns = `c.id, c.event_id, c.last_message_text, c.last_message_at, c.last_message_sender, c.archived, c.archived_at, c.created_at`

type chatRepository struct {
	DB *sql.DB
}

func NewChatRepository(db *sql.DB) domain.ChatRepository {
	return &chatRepository{
		DB: db,
	}
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	ch := &domain.Chat{Participants: []string{}, UnreadCounts: map[string]int{}}
	var text, sender sql.NullString
	var lastAt, archivedAt sql.NullTime
	if err := row.Scan(&ch.ID, &ch.EventID, &text, &lastAt, &sender, &ch.Archived, &archivedAt, &ch.CreatedAt); err != nil {
		return nil, err
	}
	ch.LastMessageText = stringPtr(text)
	ch.LastMessageSender = stringPtr(sender)
	ch.LastMessageAt = timePtr(lastAt)
	ch.ArchivedAt = timePtr(archivedAt)
	return ch, nil
}

func insertMessage(ctx context.Context, db execer, msg *domain.Message) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, sender_name, text, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.ChatID, msg.SenderID, msg.SenderName, msg.Text, string(msg.Type), msg.CreatedAt)
	if err != nil {
		if isPQCode(err, codeForeignKeyViolation) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func archiveChats(ctx context.Context, db execer, eventIDs []string, at time.Time) (int, error) {
	result, err := db.ExecContext(ctx, `
		UPDATE chats SET archived = TRUE, archived_at = $2
		WHERE event_id = ANY($1) AND archived = FALSE
	`, pq.Array(eventIDs), at)
	if err != nil {
		return 0, fmt.Errorf("archive chats: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	ch, err := scanChat(r.DB.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats c WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadParticipants(ctx, []*domain.Chat{ch}); err != nil {
		return nil, err
	}
	return ch, nil
}

// loadParticipants fills participant lists and unread counters in one query.
func (r *chatRepository) loadParticipants(ctx context.Context, chats []*domain.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Chat, len(chats))
	ids := make([]string, 0, len(chats))
	for _, ch := range chats {
		byID[ch.ID] = ch
		ids = append(ids, ch.ID)
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT chat_id, user_id, unread_count
		FROM chat_participants
		WHERE chat_id = ANY($1)
		ORDER BY joined_at, user_id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var chatID, userID string
		var unread int
		if err := rows.Scan(&chatID, &userID, &unread); err != nil {
			return err
		}
		if ch, ok := byID[chatID]; ok {
			ch.Participants = append(ch.Participants, userID)
			ch.UnreadCounts[userID] = unread
		}
	}
	return rows.Err()
}

func (r *chatRepository) AddParticipant(ctx context.Context, chatID, userID string, at time.Time) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `
		INSERT INTO chat_participants (chat_id, user_id, unread_count, joined_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`, chatID, userID, at)
	if err != nil {
		if isPQCode(err, codeForeignKeyViolation) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *domain.Message, preview domain.MessagePreview) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE chats SET last_message_text = $2, last_message_at = $3, last_message_sender = $4
			WHERE id = $1
		`, msg.ChatID, preview.Text, preview.At, preview.SenderID)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return domain.ErrNotFound
		}
		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}
		if msg.Type != domain.MessageTypeText {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE chat_participants SET unread_count = unread_count + 1
			WHERE chat_id = $1 AND user_id <> $2
		`, msg.ChatID, msg.SenderID)
		return err
	})
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID string, limit int, before *time.Time) ([]*domain.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, sender_name, text, type, created_at FROM (
			SELECT id, chat_id, sender_id, sender_name, text, type, created_at
			FROM messages
			WHERE chat_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
			ORDER BY created_at DESC
			LIMIT $3
		) latest
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, chatID, nullTime(before), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	messages := make([]*domain.Message, 0)
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &m.Text, &m.Type, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *chatRepository) ResetUnread(ctx context.Context, chatID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE chat_participants SET unread_count = 0
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID)
	return err
}

func (r *chatRepository) ListByParticipant(ctx context.Context, userID string, includeArchived bool) ([]*domain.Chat, error) {
	query := `
		SELECT ` + chatColumns + `
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		WHERE p.user_id = $1 AND ($2 OR c.archived = FALSE)
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, includeArchived)
	if err != nil {
		return nil, err
	}
	chats := make([]*domain.Chat, 0)
	for rows.Next() {
		ch, err := scanChat(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		chats = append(chats, ch)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := r.loadParticipants(ctx, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) ArchiveByEventIDs(ctx context.Context, eventIDs []string, at time.Time) (int, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	return archiveChats(ctx, r.DB, eventIDs, at)
}
