package auth

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

// Field-specific duplicate errors, distinguished by the violated constraint.
// Both unwrap to shared.ErrDuplicate.
var (
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", shared.ErrDuplicate)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", shared.ErrDuplicate)
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateUser inserts a new user record. Unique violations on username or
// email map to ErrUsernameTaken / ErrEmailTaken.
func (r *PGRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		RETURNING id, username, email, password_hash, is_active, created_at`,
		username, email, passwordHash)
	user, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			if strings.Contains(db.UniqueConstraint(err), "username") {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, is_active, created_at
		FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// ExistsByUsername reports whether a username is already registered. This is
// a best-effort pre-check; the unique index remains authoritative.
func (r *PGRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE username = $1`, username).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByEmail reports whether an email is already registered.
func (r *PGRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, email).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
