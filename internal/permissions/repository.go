package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portico-app/portico/internal/platform/db"
	"github.com/portico-app/portico/internal/shared"
)

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	List(ctx context.Context) ([]Permission, error)
	ListByModule(ctx context.Context, moduleID int64) ([]Permission, error)
	GetByID(ctx context.Context, id int64) (*Permission, error)
	Create(ctx context.Context, moduleID int64, name, description string) (*Permission, error)
	Update(ctx context.Context, id int64, name, description string) error
	Delete(ctx context.Context, id int64) error
	ListGroupedByModule(ctx context.Context) ([]ModuleGroup, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const permissionColumns = `p.id, p.module_id, p.name, p.description, m.name, m.display_name`

// List returns all permissions joined with their module, ordered by module
// sort order then permission name.
func (r *Repository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions p
		JOIN modules m ON p.module_id = m.id
		ORDER BY m.sort_order, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// ListByModule returns a module's permissions ordered by name.
func (r *Repository) ListByModule(ctx context.Context, moduleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions p
		JOIN modules m ON p.module_id = m.id
		WHERE p.module_id = $1
		ORDER BY p.name`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// GetByID fetches a permission with module context.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions p
		JOIN modules m ON p.module_id = m.id
		WHERE p.id = $1`, id).
		Scan(&p.ID, &p.ModuleID, &p.Name, &p.Description, &p.ModuleName, &p.ModuleDisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new permission under the given module.
func (r *Repository) Create(ctx context.Context, moduleID int64, name, description string) (*Permission, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (module_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id`, moduleID, name, description).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, shared.ErrDuplicate
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update changes a permission's name and description.
func (r *Repository) Update(ctx context.Context, id int64, name, description string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permissions SET name = $1, description = $2 WHERE id = $3`,
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

// Delete removes a permission.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListGroupedByModule returns one group per active module in sort order.
// The LEFT JOIN keeps permission-less modules; rows are grouped client-side
// on module id preserving first-seen order.
func (r *Repository) ListGroupedByModule(ctx context.Context) ([]ModuleGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			m.id, m.name, m.display_name, m.icon,
			p.id, p.name, p.description
		FROM modules m
		LEFT JOIN permissions p ON m.id = p.module_id
		WHERE m.is_active = TRUE
		ORDER BY m.sort_order, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]ModuleGroup, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			group    ModuleGroup
			permID   *int64
			permName *string
			permDesc *string
		)
		if err := rows.Scan(&group.ModuleID, &group.ModuleName, &group.ModuleDisplayName, &group.ModuleIcon, &permID, &permName, &permDesc); err != nil {
			return nil, err
		}
		i, seen := index[group.ModuleID]
		if !seen {
			group.Permissions = []Permission{}
			groups = append(groups, group)
			i = len(groups) - 1
			index[group.ModuleID] = i
		}
		if permID != nil {
			perm := Permission{
				ID:                *permID,
				ModuleID:          group.ModuleID,
				ModuleName:        group.ModuleName,
				ModuleDisplayName: group.ModuleDisplayName,
			}
			if permName != nil {
				perm.Name = *permName
			}
			if permDesc != nil {
				perm.Description = *permDesc
			}
			groups[i].Permissions = append(groups[i].Permissions, perm)
		}
	}
	return groups, rows.Err()
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
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

var _ RepositoryPort = (*Repository)(nil)
