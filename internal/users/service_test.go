package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portico-app/portico/internal/shared"
)

type mockRepository struct {
	users       map[int64]*User
	assignments map[int64]map[int64]time.Time
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:       make(map[int64]*User),
		assignments: make(map[int64]map[int64]time.Time),
	}
}

func (m *mockRepository) addUser(id int64, username, email string) {
	m.users[id] = &User{ID: id, Username: username, Email: email, IsActive: true}
}

func (m *mockRepository) List(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) UpdateProfile(ctx context.Context, id int64, username, email string) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	for otherID, other := range m.users {
		if otherID == id {
			continue
		}
		if other.Email == email {
			return ErrEmailTaken
		}
		if other.Username == username {
			return ErrUsernameTaken
		}
	}
	u.Username = username
	u.Email = email
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	delete(m.assignments, id)
	return nil
}

func (m *mockRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	if m.assignments[userID] == nil {
		m.assignments[userID] = make(map[int64]time.Time)
	}
	m.assignments[userID][roleID] = time.Now()
	return nil
}

func (m *mockRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	delete(m.assignments[userID], roleID)
	return nil
}

var _ RepositoryPort = (*mockRepository)(nil)

func TestUpdateProfileValidation(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "alice", "alice@test.local")
	svc := NewService(repo)

	err := svc.UpdateProfile(context.Background(), 1, "  ", "alice@test.local")
	assert.Error(t, err)

	err = svc.UpdateProfile(context.Background(), 1, "alice", "")
	assert.Error(t, err)
}

func TestUpdateProfileTrims(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "alice", "alice@test.local")
	svc := NewService(repo)

	err := svc.UpdateProfile(context.Background(), 1, "  alicia  ", " alicia@test.local ")
	require.NoError(t, err)
	assert.Equal(t, "alicia", repo.users[1].Username)
	assert.Equal(t, "alicia@test.local", repo.users[1].Email)
}

func TestUpdateProfileDuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "alice", "alice@test.local")
	repo.addUser(2, "bob", "bob@test.local")
	svc := NewService(repo)

	err := svc.UpdateProfile(context.Background(), 1, "alice", "bob@test.local")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, "alice@test.local", repo.users[1].Email)
}

func TestAssignRoleIdempotent(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "alice", "alice@test.local")
	svc := NewService(repo)

	require.NoError(t, svc.AssignRole(context.Background(), 1, 3))
	first := repo.assignments[1][3]
	require.NoError(t, svc.AssignRole(context.Background(), 1, 3))

	assert.Len(t, repo.assignments[1], 1)
	assert.False(t, repo.assignments[1][3].Before(first))
}

func TestRemoveRole(t *testing.T) {
	repo := newMockRepository()
	repo.addUser(1, "alice", "alice@test.local")
	svc := NewService(repo)

	require.NoError(t, svc.AssignRole(context.Background(), 1, 3))
	require.NoError(t, svc.RemoveRole(context.Background(), 1, 3))
	assert.Empty(t, repo.assignments[1])
}
