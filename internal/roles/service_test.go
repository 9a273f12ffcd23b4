package roles

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portico-app/portico/internal/shared"
)

type mockRepository struct {
	roles      map[int64]*Role
	grants     map[int64][]int64
	nextID     int64
	setCalls   int
	lastSet    []int64
	assignLog  []int64
	setFailure error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:  make(map[int64]*Role),
		grants: make(map[int64][]int64),
		nextID: 1,
	}
}

func (m *mockRepository) addRole(name string, system bool) *Role {
	role := &Role{ID: m.nextID, Name: name, IsSystem: system}
	m.roles[role.ID] = role
	m.nextID++
	return role
}

func (m *mockRepository) List(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsSystem != out[j].IsSystem {
			return out[i].IsSystem
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (m *mockRepository) GetByName(ctx context.Context, name string) (*Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			copied := *r
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) Create(ctx context.Context, name, description string) (*Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return nil, shared.ErrDuplicate
		}
	}
	role := &Role{ID: m.nextID, Name: name, Description: description}
	m.roles[role.ID] = role
	m.nextID++
	copied := *role
	return &copied, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, name, description string) error {
	role, ok := m.roles[id]
	if !ok || role.IsSystem {
		return shared.ErrNotFound
	}
	role.Name = name
	role.Description = description
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	role, ok := m.roles[id]
	if !ok || role.IsSystem {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *mockRepository) Permissions(ctx context.Context, roleID int64) ([]Permission, error) {
	var perms []Permission
	for _, id := range m.grants[roleID] {
		perms = append(perms, Permission{ID: id})
	}
	return perms, nil
}

func (m *mockRepository) SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	m.setCalls++
	if m.setFailure != nil {
		return m.setFailure
	}
	m.grants[roleID] = append([]int64(nil), permissionIDs...)
	m.lastSet = permissionIDs
	return nil
}

func (m *mockRepository) AssignPermission(ctx context.Context, roleID, permissionID int64) error {
	for _, id := range m.grants[roleID] {
		if id == permissionID {
			return nil
		}
	}
	m.grants[roleID] = append(m.grants[roleID], permissionID)
	m.assignLog = append(m.assignLog, permissionID)
	return nil
}

func (m *mockRepository) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	kept := m.grants[roleID][:0]
	for _, id := range m.grants[roleID] {
		if id != permissionID {
			kept = append(kept, id)
		}
	}
	m.grants[roleID] = kept
	return nil
}

func (m *mockRepository) Members(ctx context.Context, roleID int64) ([]Member, error) {
	return nil, nil
}

var _ RepositoryPort = (*mockRepository)(nil)

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), "   ", "desc")
	assert.Error(t, err)
}

func TestCreateTrimsName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	role, err := svc.Create(context.Background(), "  editor  ", "  edits things  ")
	require.NoError(t, err)
	assert.Equal(t, "editor", role.Name)
	assert.Equal(t, "edits things", role.Description)
	assert.False(t, role.IsSystem)
}

func TestUpdateSystemRoleRejected(t *testing.T) {
	repo := newMockRepository()
	admin := repo.addRole("admin", true)
	svc := NewService(repo)

	err := svc.Update(context.Background(), admin.ID, "superadmin", "")
	assert.ErrorIs(t, err, shared.ErrSystemRole)
	assert.Equal(t, "admin", repo.roles[admin.ID].Name)
}

func TestDeleteSystemRoleRejected(t *testing.T) {
	repo := newMockRepository()
	admin := repo.addRole("admin", true)
	svc := NewService(repo)

	err := svc.Delete(context.Background(), admin.ID)
	assert.ErrorIs(t, err, shared.ErrSystemRole)
	assert.Contains(t, repo.roles, admin.ID)
}

func TestUpdateCustomRole(t *testing.T) {
	repo := newMockRepository()
	editor := repo.addRole("editor", false)
	svc := NewService(repo)

	err := svc.Update(context.Background(), editor.ID, "reviewer", "reviews content")
	require.NoError(t, err)
	assert.Equal(t, "reviewer", repo.roles[editor.ID].Name)
}

func TestSetPermissionsReplacesGrantSet(t *testing.T) {
	repo := newMockRepository()
	editor := repo.addRole("editor", false)
	repo.grants[editor.ID] = []int64{1, 2, 3}
	svc := NewService(repo)

	err := svc.SetPermissions(context.Background(), editor.ID, []int64{2, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, repo.grants[editor.ID])
}

func TestSetPermissionsEmptyClearsGrants(t *testing.T) {
	repo := newMockRepository()
	editor := repo.addRole("editor", false)
	repo.grants[editor.ID] = []int64{1, 2}
	svc := NewService(repo)

	err := svc.SetPermissions(context.Background(), editor.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, repo.grants[editor.ID])
}

func TestSetPermissionsUnknownRole(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	err := svc.SetPermissions(context.Background(), 42, []int64{1})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Zero(t, repo.setCalls)
}

func TestAssignPermissionIdempotent(t *testing.T) {
	repo := newMockRepository()
	editor := repo.addRole("editor", false)
	svc := NewService(repo)

	require.NoError(t, svc.AssignPermission(context.Background(), editor.ID, 5))
	require.NoError(t, svc.AssignPermission(context.Background(), editor.ID, 5))
	assert.Equal(t, []int64{5}, repo.grants[editor.ID])
}
