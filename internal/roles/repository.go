package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portico-app/portico/internal/platform/db"
	"github.com/portico-app/portico/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	GetByID(ctx context.Context, id int64) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, name, description string) (*Role, error)
	Update(ctx context.Context, id int64, name, description string) error
	Delete(ctx context.Context, id int64) error
	Permissions(ctx context.Context, roleID int64) ([]Permission, error)
	SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AssignPermission(ctx context.Context, roleID, permissionID int64) error
	RemovePermission(ctx context.Context, roleID, permissionID int64) error
	Members(ctx context.Context, roleID int64) ([]Member, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all roles, system roles first, then alphabetical.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, is_system
		FROM roles ORDER BY is_system DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetByID fetches a role by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Role, error) {
	return r.getBy(ctx, `SELECT id, name, description, is_system FROM roles WHERE id = $1`, id)
}

// GetByName fetches a role by its unique name.
func (r *Repository) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.getBy(ctx, `SELECT id, name, description, is_system FROM roles WHERE name = $1`, name)
}

func (r *Repository) getBy(ctx context.Context, query string, arg any) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, query, arg).Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// Create inserts a new non-system role.
func (r *Repository) Create(ctx context.Context, name, description string) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_system)
		VALUES ($1, $2, FALSE)
		RETURNING id, name, description, is_system`,
		name, description).Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return &role, nil
}

// Update renames a role. The is_system guard in SQL backs up the service
// level check so a racing flag change cannot slip through.
func (r *Repository) Update(ctx context.Context, id int64, name, description string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles SET name = $1, description = $2
		WHERE id = $3 AND is_system = FALSE`,
		name, description, id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a non-system role.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1 AND is_system = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Permissions returns the role's grants joined with the owning module,
// ordered by module sort order then permission name.
func (r *Repository) Permissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.module_id, p.name, p.description, m.name, m.display_name
		FROM permissions p
		JOIN role_permissions rp ON p.id = rp.permission_id
		JOIN modules m ON p.module_id = m.id
		WHERE rp.role_id = $1
		ORDER BY m.sort_order, p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.ModuleID, &p.Name, &p.Description, &p.ModuleName, &p.ModuleDisplayName); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// SetPermissions atomically replaces the role's grant set. Any mid-insert
// failure rolls the whole change back.
func (r *Repository) SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, permissionID := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id, granted_at)
				VALUES ($1, $2, NOW())`, roleID, permissionID); err != nil {
				return err
			}
		}
		return nil
	})
}

// AssignPermission grants a single permission. Re-granting refreshes the
// granted_at timestamp instead of erroring.
func (r *Repository) AssignPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id, granted_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (role_id, permission_id) DO UPDATE SET granted_at = NOW()`,
		roleID, permissionID)
	return err
}

// RemovePermission revokes a single permission.
func (r *Repository) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	return err
}

// Members returns the users holding the role.
func (r *Repository) Members(ctx context.Context, roleID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.email, ur.assigned_at
		FROM users u
		JOIN user_roles ur ON u.id = ur.user_id
		WHERE ur.role_id = $1
		ORDER BY u.username`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.AssignedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
