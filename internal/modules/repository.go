package modules

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portico-app/portico/internal/platform/db"
	"github.com/portico-app/portico/internal/shared"
)

// ErrInUse indicates a delete was blocked because permissions still
// reference the module.
var ErrInUse = errors.New("modules: permissions still reference module")

// RepositoryPort defines data access methods for modules.
type RepositoryPort interface {
	List(ctx context.Context) ([]Module, error)
	ListActive(ctx context.Context) ([]Module, error)
	GetByID(ctx context.Context, id int64) (*Module, error)
	GetByName(ctx context.Context, name string) (*Module, error)
	Create(ctx context.Context, name, displayName, description, icon string, sortOrder int32) (*Module, error)
	Update(ctx context.Context, id int64, displayName, description, icon string, sortOrder int32, isActive bool) error
	Delete(ctx context.Context, id int64) error
	ToggleActive(ctx context.Context, id int64) error
	AccessibleByUser(ctx context.Context, userID int64) ([]Module, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const moduleColumns = `id, name, display_name, description, icon, sort_order, is_active`

// List returns all modules in sort order.
func (r *Repository) List(ctx context.Context) ([]Module, error) {
	return r.list(ctx, `SELECT `+moduleColumns+` FROM modules ORDER BY sort_order ASC, id ASC`)
}

// ListActive returns active modules in sort order.
func (r *Repository) ListActive(ctx context.Context) ([]Module, error) {
	return r.list(ctx, `SELECT `+moduleColumns+` FROM modules WHERE is_active = TRUE ORDER BY sort_order ASC, id ASC`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Module, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mods []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.DisplayName, &m.Description, &m.Icon, &m.SortOrder, &m.IsActive); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

// GetByID fetches a module by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Module, error) {
	return r.getBy(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id)
}

// GetByName fetches a module by its unique name.
func (r *Repository) GetByName(ctx context.Context, name string) (*Module, error) {
	return r.getBy(ctx, `SELECT `+moduleColumns+` FROM modules WHERE name = $1`, name)
}

func (r *Repository) getBy(ctx context.Context, query string, arg any) (*Module, error) {
	var m Module
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&m.ID, &m.Name, &m.DisplayName, &m.Description, &m.Icon, &m.SortOrder, &m.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Create inserts a new module, active by default.
func (r *Repository) Create(ctx context.Context, name, displayName, description, icon string, sortOrder int32) (*Module, error) {
	var m Module
	err := r.pool.QueryRow(ctx, `
		INSERT INTO modules (name, display_name, description, icon, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+moduleColumns,
		name, displayName, description, icon, sortOrder).
		Scan(&m.ID, &m.Name, &m.DisplayName, &m.Description, &m.Icon, &m.SortOrder, &m.IsActive)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return &m, nil
}

// Update changes module metadata. The name is immutable once created.
func (r *Repository) Update(ctx context.Context, id int64, displayName, description, icon string, sortOrder int32, isActive bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE modules
		SET display_name = $1, description = $2, icon = $3, sort_order = $4, is_active = $5
		WHERE id = $6`,
		displayName, description, icon, sortOrder, isActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a module. The delete is blocked while permissions still
// reference it; no cascade is assumed.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions WHERE module_id = $1`, id).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ToggleActive flips the module's active flag.
func (r *Repository) ToggleActive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE modules SET is_active = NOT is_active WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AccessibleByUser returns the distinct active modules reachable through any
// of the user's roles, in sort order.
func (r *Repository) AccessibleByUser(ctx context.Context, userID int64) ([]Module, error) {
	return r.list(ctx, `
		SELECT DISTINCT m.id, m.name, m.display_name, m.description, m.icon, m.sort_order, m.is_active
		FROM modules m
		JOIN permissions p ON m.id = p.module_id
		JOIN role_permissions rp ON p.id = rp.permission_id
		JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1 AND m.is_active = TRUE
		ORDER BY m.sort_order`, userID)
}

var _ RepositoryPort = (*Repository)(nil)
