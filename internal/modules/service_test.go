package modules

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portico-app/portico/internal/shared"
)

type mockRepository struct {
	modules    map[int64]*Module
	nextID     int64
	inUse      map[int64]bool
	accessible map[int64][]int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		modules:    make(map[int64]*Module),
		nextID:     1,
		inUse:      make(map[int64]bool),
		accessible: make(map[int64][]int64),
	}
}

func (m *mockRepository) addModule(name string, active bool, sortOrder int32) *Module {
	mod := &Module{ID: m.nextID, Name: name, DisplayName: name, SortOrder: sortOrder, IsActive: active}
	m.modules[mod.ID] = mod
	m.nextID++
	return mod
}

func (m *mockRepository) List(ctx context.Context) ([]Module, error) {
	return m.collect(func(*Module) bool { return true }), nil
}

func (m *mockRepository) ListActive(ctx context.Context) ([]Module, error) {
	return m.collect(func(mod *Module) bool { return mod.IsActive }), nil
}

func (m *mockRepository) collect(keep func(*Module) bool) []Module {
	var out []Module
	for _, mod := range m.modules {
		if keep(mod) {
			out = append(out, *mod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*Module, error) {
	mod, ok := m.modules[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *mod
	return &copied, nil
}

func (m *mockRepository) GetByName(ctx context.Context, name string) (*Module, error) {
	for _, mod := range m.modules {
		if mod.Name == name {
			copied := *mod
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) Create(ctx context.Context, name, displayName, description, icon string, sortOrder int32) (*Module, error) {
	for _, mod := range m.modules {
		if mod.Name == name {
			return nil, shared.ErrDuplicate
		}
	}
	mod := &Module{ID: m.nextID, Name: name, DisplayName: displayName, Description: description, Icon: icon, SortOrder: sortOrder, IsActive: true}
	m.modules[mod.ID] = mod
	m.nextID++
	copied := *mod
	return &copied, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, displayName, description, icon string, sortOrder int32, isActive bool) error {
	mod, ok := m.modules[id]
	if !ok {
		return shared.ErrNotFound
	}
	mod.DisplayName = displayName
	mod.Description = description
	mod.Icon = icon
	mod.SortOrder = sortOrder
	mod.IsActive = isActive
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.modules[id]; !ok {
		return shared.ErrNotFound
	}
	if m.inUse[id] {
		return ErrInUse
	}
	delete(m.modules, id)
	return nil
}

func (m *mockRepository) ToggleActive(ctx context.Context, id int64) error {
	mod, ok := m.modules[id]
	if !ok {
		return shared.ErrNotFound
	}
	mod.IsActive = !mod.IsActive
	return nil
}

func (m *mockRepository) AccessibleByUser(ctx context.Context, userID int64) ([]Module, error) {
	ids := m.accessible[userID]
	var out []Module
	for _, id := range ids {
		if mod, ok := m.modules[id]; ok && mod.IsActive {
			out = append(out, *mod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

var _ RepositoryPort = (*mockRepository)(nil)

func TestCreateDefaultsDisplayName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	mod, err := svc.Create(context.Background(), "blog", "", "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, "blog", mod.DisplayName)
	assert.True(t, mod.IsActive)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), "  ", "Blog", "", "", 0)
	assert.Error(t, err)
}

func TestCreateDuplicateName(t *testing.T) {
	repo := newMockRepository()
	repo.addModule("blog", true, 1)
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), "blog", "Blog", "", "", 2)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeleteBlockedWhilePermissionsExist(t *testing.T) {
	repo := newMockRepository()
	blog := repo.addModule("blog", true, 1)
	repo.inUse[blog.ID] = true
	svc := NewService(repo)

	err := svc.Delete(context.Background(), blog.ID)
	assert.ErrorIs(t, err, ErrInUse)
	assert.Contains(t, repo.modules, blog.ID)
}

func TestToggleActiveHidesFromAccessible(t *testing.T) {
	repo := newMockRepository()
	blog := repo.addModule("blog", true, 1)
	shop := repo.addModule("shop", true, 2)
	repo.accessible[1] = []int64{blog.ID, shop.ID}
	svc := NewService(repo)

	mods, err := svc.AccessibleByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, mods, 2)

	require.NoError(t, svc.ToggleActive(context.Background(), blog.ID))

	mods, err = svc.AccessibleByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "shop", mods[0].Name)
}

func TestUpdateRequiresDisplayName(t *testing.T) {
	repo := newMockRepository()
	blog := repo.addModule("blog", true, 1)
	svc := NewService(repo)

	err := svc.Update(context.Background(), blog.ID, "  ", "", "", 1, true)
	assert.Error(t, err)
}
