package postgres

import (
	"context"
	"database/sql"
	"errors"

	"stepout/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `
		SELECT id, display_name, photo_url, email, phone, created_at, updated_at
		FROM users
		WHERE ` + column + ` = $1
		LIMIT 1
	`
	u := &domain.User{}
	var photo, email, phone sql.NullString
	err := r.DB.QueryRowContext(ctx, query, value).Scan(&u.ID, &u.DisplayName, &photo, &email, &phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.PhotoURL = stringPtr(photo)
	u.Email = stringPtr(email)
	u.Phone = stringPtr(phone)
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getBy(ctx, "phone", phone)
}
