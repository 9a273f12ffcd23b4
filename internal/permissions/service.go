package permissions

import (
	"context"
	"errors"
	"strings"
)

// Service handles permission business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all permissions with module context.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// ListByModule returns a module's permissions.
func (s *Service) ListByModule(ctx context.Context, moduleID int64) ([]Permission, error) {
	return s.repo.ListByModule(ctx, moduleID)
}

// Get fetches a permission by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Permission, error) {
	return s.repo.GetByID(ctx, id)
}

// Create inserts a new permission under a module.
func (s *Service) Create(ctx context.Context, moduleID int64, name, description string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("permissions: permission name required")
	}
	if moduleID == 0 {
		return nil, errors.New("permissions: module required")
	}
	return s.repo.Create(ctx, moduleID, name, strings.TrimSpace(description))
}

// Update changes a permission's name and description.
func (s *Service) Update(ctx context.Context, id int64, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("permissions: permission name required")
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(description))
}

// Delete removes a permission.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ListGroupedByModule returns active modules with their permissions.
func (s *Service) ListGroupedByModule(ctx context.Context) ([]ModuleGroup, error) {
	return s.repo.ListGroupedByModule(ctx)
}
