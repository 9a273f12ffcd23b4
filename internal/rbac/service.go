package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service answers access questions by composing the role, permission and
// module stores through the resolver queries. Every call is read-only and
// reflects the state at the moment of the query.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{repo: NewRepository(pool)}
}

// NewServiceWithRepository constructs a Service over any RepositoryPort.
func NewServiceWithRepository(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RolesForUser returns the roles the user holds.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.RolesForUser(ctx, userID)
}

// PermissionsForUser returns the user's deduplicated effective permissions.
func (s *Service) PermissionsForUser(ctx context.Context, userID int64) ([]Permission, error) {
	return s.repo.PermissionsForUser(ctx, userID)
}

// EffectivePermissionNames returns the names of the user's effective
// permissions, for middleware checks.
func (s *Service) EffectivePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	perms, err := s.repo.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names, nil
}

// HasRole reports whether the user holds the named role.
func (s *Service) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	return s.repo.HasRole(ctx, userID, roleName)
}

// HasPermission reports whether the user holds the named permission on the
// named module.
func (s *Service) HasPermission(ctx context.Context, userID int64, moduleName, permissionName string) (bool, error) {
	return s.repo.HasPermission(ctx, userID, moduleName, permissionName)
}
