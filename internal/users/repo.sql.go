package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portico-app/portico/internal/platform/db"
	"github.com/portico-app/portico/internal/shared"
)

// Field-specific duplicate errors for profile updates.
var (
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", shared.ErrDuplicate)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", shared.ErrDuplicate)
)

// RepositoryPort defines data access methods for user management.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, username, email string) error
	Delete(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all users, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, email, is_active, created_at
		FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.IsActive, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetByID fetches a user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, is_active, created_at
		FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes username and email. Password changes go through a
// separate credential flow and are not part of profile updates.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, username, email string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET username = $1, email = $2 WHERE id = $3`,
		username, email, id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			if strings.Contains(db.UniqueConstraint(err), "username") {
				return ErrUsernameTaken
			}
			return ErrEmailTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a user account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole grants a role to the user. Re-assigning refreshes the
// assigned_at timestamp instead of erroring.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role_id) DO UPDATE SET assigned_at = NOW()`,
		userID, roleID)
	return err
}

// RemoveRole revokes a role from the user.
func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		userID, roleID)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
