package modules

import (
	"context"
	"errors"
	"strings"
)

// Service handles module business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all modules in sort order.
func (s *Service) List(ctx context.Context) ([]Module, error) {
	return s.repo.List(ctx)
}

// ListActive returns active modules in sort order.
func (s *Service) ListActive(ctx context.Context) ([]Module, error) {
	return s.repo.ListActive(ctx)
}

// Get fetches a module by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Module, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByName fetches a module by name.
func (s *Service) GetByName(ctx context.Context, name string) (*Module, error) {
	return s.repo.GetByName(ctx, name)
}

// Create inserts a new module.
func (s *Service) Create(ctx context.Context, name, displayName, description, icon string, sortOrder int32) (*Module, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("modules: module name required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = name
	}
	return s.repo.Create(ctx, name, displayName, strings.TrimSpace(description), strings.TrimSpace(icon), sortOrder)
}

// Update changes module metadata.
func (s *Service) Update(ctx context.Context, id int64, displayName, description, icon string, sortOrder int32, isActive bool) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return errors.New("modules: display name required")
	}
	return s.repo.Update(ctx, id, displayName, strings.TrimSpace(description), strings.TrimSpace(icon), sortOrder, isActive)
}

// Delete removes a module; blocked while permissions reference it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ToggleActive flips the active flag.
func (s *Service) ToggleActive(ctx context.Context, id int64) error {
	return s.repo.ToggleActive(ctx, id)
}

// AccessibleByUser returns the modules the user can see on the dashboard.
func (s *Service) AccessibleByUser(ctx context.Context, userID int64) ([]Module, error) {
	return s.repo.AccessibleByUser(ctx, userID)
}
