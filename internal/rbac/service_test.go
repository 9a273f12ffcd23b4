package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	roles map[int64][]Role
	perms map[int64][]Permission
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles: make(map[int64][]Role),
		perms: make(map[int64][]Permission),
	}
}

func (m *mockRepository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	return m.roles[userID], nil
}

func (m *mockRepository) PermissionsForUser(ctx context.Context, userID int64) ([]Permission, error) {
	return m.perms[userID], nil
}

func (m *mockRepository) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	for _, r := range m.roles[userID] {
		if r.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) HasPermission(ctx context.Context, userID int64, moduleName, permissionName string) (bool, error) {
	for _, p := range m.perms[userID] {
		if p.ModuleName == moduleName && p.Name == permissionName {
			return true, nil
		}
	}
	return false, nil
}

var _ RepositoryPort = (*mockRepository)(nil)

func TestEffectivePermissionNames(t *testing.T) {
	repo := newMockRepository()
	repo.perms[1] = []Permission{
		{ID: 1, Name: "posts.view", ModuleName: "blog"},
		{ID: 2, Name: "posts.publish", ModuleName: "blog"},
	}
	svc := NewServiceWithRepository(repo)

	names, err := svc.EffectivePermissionNames(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts.view", "posts.publish"}, names)
}

func TestEffectivePermissionNamesEmpty(t *testing.T) {
	svc := NewServiceWithRepository(newMockRepository())

	names, err := svc.EffectivePermissionNames(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestHasPermission(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []Role{{ID: 1, Name: "editor"}}
	repo.perms[1] = []Permission{{ID: 10, Name: "posts.publish", ModuleName: "blog"}}
	svc := NewServiceWithRepository(repo)

	ok, err := svc.HasPermission(context.Background(), 1, "blog", "posts.publish")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(context.Background(), 1, "blog", "posts.delete")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(context.Background(), 1, "shop", "posts.publish")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasRole(t *testing.T) {
	repo := newMockRepository()
	repo.roles[7] = []Role{{ID: 1, Name: "admin", IsSystem: true}}
	svc := NewServiceWithRepository(repo)

	ok, err := svc.HasRole(context.Background(), 7, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasRole(context.Background(), 7, "editor")
	require.NoError(t, err)
	assert.False(t, ok)
}
