package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines the read-only queries behind the resolver.
type RepositoryPort interface {
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
	PermissionsForUser(ctx context.Context, userID int64) ([]Permission, error)
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
	HasPermission(ctx context.Context, userID int64, moduleName, permissionName string) (bool, error)
}

// Repository provides PostgreSQL backed resolver queries. All queries are
// single statements; no cross-query transaction is needed.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RolesForUser returns the roles the user holds.
func (r *Repository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.is_system
		FROM roles r
		JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
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

// PermissionsForUser returns the user's effective permission set: the
// distinct union over all held roles, with the owning module's name.
func (r *Repository) PermissionsForUser(ctx context.Context, userID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.id, p.module_id, p.name, p.description, m.name AS module_name
		FROM permissions p
		JOIN role_permissions rp ON p.id = rp.permission_id
		JOIN user_roles ur ON rp.role_id = ur.role_id
		JOIN modules m ON p.module_id = m.id
		WHERE ur.user_id = $1
		ORDER BY m.name, p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.ModuleID, &p.Name, &p.Description, &p.ModuleName); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// HasRole reports whether the user holds the named role. Matching is by
// exact, case-sensitive name.
func (r *Repository) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN roles r ON ur.role_id = r.id
		WHERE ur.user_id = $1 AND r.name = $2`, userID, roleName).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasPermission reports whether the user holds the named permission on the
// named module, through any role.
func (r *Repository) HasPermission(ctx context.Context, userID int64, moduleName, permissionName string) (bool, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM permissions p
		JOIN modules m ON p.module_id = m.id
		JOIN role_permissions rp ON p.id = rp.permission_id
		JOIN user_roles ur ON rp.role_id = ur.role_id
		WHERE ur.user_id = $1 AND m.name = $2 AND p.name = $3`,
		userID, moduleName, permissionName).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ RepositoryPort = (*Repository)(nil)
