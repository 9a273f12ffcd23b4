package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/portico-app/portico/internal/shared"
)

// Service handles role business logic. The system-role guard lives here, not
// only in SQL: the check runs before any mutation is attempted.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all roles, system roles first.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByName fetches a role by name.
func (s *Service) GetByName(ctx context.Context, name string) (*Role, error) {
	return s.repo.GetByName(ctx, name)
}

// Create inserts a new role. Roles created through the UI are never system
// roles.
func (s *Service) Create(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("roles: role name required")
	}
	return s.repo.Create(ctx, name, strings.TrimSpace(description))
}

// Update renames a role; system roles are rejected before any write.
func (s *Service) Update(ctx context.Context, id int64, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("roles: role name required")
	}
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return shared.ErrSystemRole
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(description))
}

// Delete removes a role; system roles are rejected before any write.
func (s *Service) Delete(ctx context.Context, id int64) error {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return shared.ErrSystemRole
	}
	return s.repo.Delete(ctx, id)
}

// Permissions lists the role's grants with module context.
func (s *Service) Permissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.Permissions(ctx, roleID)
}

// SetPermissions atomically replaces the role's grant set.
func (s *Service) SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetByID(ctx, roleID); err != nil {
		return err
	}
	return s.repo.SetPermissions(ctx, roleID, permissionIDs)
}

// AssignPermission grants a single permission, idempotently.
func (s *Service) AssignPermission(ctx context.Context, roleID, permissionID int64) error {
	return s.repo.AssignPermission(ctx, roleID, permissionID)
}

// RemovePermission revokes a single permission.
func (s *Service) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	return s.repo.RemovePermission(ctx, roleID, permissionID)
}

// Members returns the users holding the role.
func (s *Service) Members(ctx context.Context, roleID int64) ([]Member, error) {
	return s.repo.Members(ctx, roleID)
}
