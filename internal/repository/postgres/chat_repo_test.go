package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"stepout/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var chatRowColumns = []string{"id", "event_id", "last_message_text", "last_message_at", "last_message_sender", "archived", "archived_at", "created_at"}

func TestChatRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "loads participants and unread counters",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM chats c WHERE c.id = \$1`).
					WithArgs("EV-1").
					WillReturnRows(sqlmock.NewRows(chatRowColumns).
						AddRow("EV-1", "EV-1", "hi", created, "BOB", false, nil, created))
				mock.ExpectQuery(`FROM chat_participants\s+WHERE chat_id = ANY\(\$1\)`).
					WithArgs(pq.Array([]string{"EV-1"})).
					WillReturnRows(sqlmock.NewRows([]string{"chat_id", "user_id", "unread_count"}).
						AddRow("EV-1", "ALICE", 2).
						AddRow("EV-1", "BOB", 0))
			},
		},
		{
			name: "missing chat",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM chats c WHERE c.id = \$1`).
					WithArgs("EV-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewChatRepository(db).GetByID(ctx, "EV-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, []string{"ALICE", "BOB"}, got.Participants)
			require.Equal(t, 2, got.UnreadCounts["ALICE"])
			require.Equal(t, "hi", *got.LastMessageText)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChatRepository_AddParticipant(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mock      func(mock sqlmock.Sqlmock)
		wantAdded bool
		wantErr   error
	}{
		{
			name: "first join inserts",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO chat_participants .+ ON CONFLICT \(chat_id, user_id\) DO NOTHING`).
					WithArgs("EV-1", "BOB", at).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantAdded: true,
		},
		{
			name: "repeat join is a no-op",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO chat_participants`).
					WithArgs("EV-1", "BOB", at).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantAdded: false,
		},
		{
			name: "unknown chat",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO chat_participants`).
					WillReturnError(&pq.Error{Code: "23503"})
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			added, err := NewChatRepository(db).AddParticipant(ctx, "EV-1", "BOB", at)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantAdded, added)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChatRepository_AppendMessage(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		msgType domain.MessageType
		mock    func(mock sqlmock.Sqlmock)
	}{
		{
			name:    "text message bumps unread of other participants",
			msgType: domain.MessageTypeText,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE chats SET last_message_text`).
					WithArgs("EV-1", "hello", at, "BOB").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO messages`).
					WithArgs("MSG-1", "EV-1", "BOB", "Bob", "hello", "text", at).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE chat_participants SET unread_count = unread_count \+ 1`).
					WithArgs("EV-1", "BOB").
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectCommit()
			},
		},
		{
			name:    "system message leaves unread alone",
			msgType: domain.MessageTypeSystem,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE chats SET last_message_text`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO messages`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			msg := &domain.Message{ID: "MSG-1", ChatID: "EV-1", SenderID: "BOB", SenderName: "Bob", Text: "hello", Type: tt.msgType, CreatedAt: at}
			err = NewChatRepository(db).AppendMessage(ctx, msg, domain.MessagePreview{Text: "hello", SenderID: "BOB", At: at})
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChatRepository_ListMessages(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY created_at DESC\s+LIMIT \$3\s+\) latest\s+ORDER BY created_at ASC`).
		WithArgs("EV-1", sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "sender_id", "sender_name", "text", "type", "created_at"}).
			AddRow("M1", "EV-1", "system", "", "Alice created the event", "system", t1).
			AddRow("M2", "EV-1", "BOB", "Bob", "hi", "text", t2))

	got, err := NewChatRepository(db).ListMessages(ctx, "EV-1", 50, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "M1", got[0].ID)
	require.Equal(t, domain.MessageTypeText, got[1].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_ArchiveByEventIDs(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE chats SET archived = TRUE, archived_at = \$2\s+WHERE event_id = ANY\(\$1\) AND archived = FALSE`).
		WithArgs(pq.Array([]string{"EV-1", "EV-2"}), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := NewChatRepository(db).ArchiveByEventIDs(ctx, []string{"EV-1", "EV-2"}, at)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
