package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nhangara/identity-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

const userColumns = `id, external_id, email, name, picture, created_at, last_login_at, is_active`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.Name, &user.Picture,
		&user.CreatedAt, &user.LastLoginAt, &user.IsActive,
	)
	return user, err
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by external id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// Create relies on the users_external_id_key constraint. A conflicting insert
// returns no row and the existing user is read back instead.
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, bool, error) {
	query := `INSERT INTO users (` + userColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (external_id) DO NOTHING
			  RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.ExternalID, user.Email, user.Name, user.Picture,
		user.CreatedAt, user.LastLoginAt, user.IsActive,
	))
	if err == nil {
		return saved, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, false, fmt.Errorf("failed to create user: %w", err)
	}

	existing, err := r.GetByExternalID(ctx, user.ExternalID)
	if err != nil {
		return model.User{}, false, fmt.Errorf("failed to fetch existing user: %w", err)
	}
	return existing, false, nil
}

func (r *UserRepository) UpdateLogin(ctx context.Context, user model.User) (model.User, error) {
	query := `UPDATE users SET email = $2, name = $3, picture = $4, last_login_at = $5
			  WHERE id = $1
			  RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRow(ctx, query, user.ID, user.Email, user.Name, user.Picture, user.LastLoginAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to update user login: %w", err)
	}

	return saved, nil
}

func (r *UserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
