package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftosaurus-server/internal/model"
)

// UserRepository handles user persistence.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// GetOrCreate resolves a username to a user row, creating the row on
// first sight. This is the single identity entry point; callers never
// decide create-vs-lookup themselves.
func (r *UserRepository) GetOrCreate(ctx context.Context, username string) (*model.User, error) {
	const query = `
		INSERT INTO users (username)
		VALUES ($1)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING user_id, username, created_at
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, username).Scan(&user.UserID, &user.Username, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by id. Returns ErrUserNotFound if the user
// does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	const query = `SELECT user_id, username, created_at FROM users WHERE user_id = $1`

	var user model.User
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.UserID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by name. Returns ErrUserNotFound if
// the user does not exist.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT user_id, username, created_at FROM users WHERE username = $1`

	var user model.User
	err := r.db.QueryRow(ctx, query, username).Scan(&user.UserID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}
