package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"stepout/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "display_name", "photo_url", "email", "phone", "created_at", "updated_at"}

	tests := []struct {
		name    string
		call    func(repo domain.UserRepository) (*domain.User, error)
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "by id",
			call: func(repo domain.UserRepository) (*domain.User, error) { return repo.GetByID(ctx, "BOB") },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
					WithArgs("BOB").
					WillReturnRows(sqlmock.NewRows(cols).AddRow("BOB", "Bob", nil, "bob@example.com", nil, at, at))
			},
		},
		{
			name: "by email",
			call: func(repo domain.UserRepository) (*domain.User, error) { return repo.GetByEmail(ctx, "bob@example.com") },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
					WithArgs("bob@example.com").
					WillReturnRows(sqlmock.NewRows(cols).AddRow("BOB", "Bob", nil, "bob@example.com", nil, at, at))
			},
		},
		{
			name: "unknown phone",
			call: func(repo domain.UserRepository) (*domain.User, error) { return repo.GetByPhone(ctx, "+100") },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM users\s+WHERE phone = \$1`).
					WithArgs("+100").
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
			got, err := tt.call(NewUserRepository(db))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "Bob", got.DisplayName)
			require.Nil(t, got.PhotoURL)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
