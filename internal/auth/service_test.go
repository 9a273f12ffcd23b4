package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/portico-app/portico/internal/shared"
)

type memoryRepo struct {
	byEmail    map[string]*User
	byUsername map[string]*User
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		byEmail:    make(map[string]*User),
		byUsername: make(map[string]*User),
		nextID:     1,
	}
}

func (m *memoryRepo) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	if _, ok := m.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	if _, ok := m.byUsername[username]; ok {
		return nil, ErrUsernameTaken
	}
	user := &User{ID: m.nextID, Username: username, Email: email, PasswordHash: passwordHash, IsActive: true}
	m.nextID++
	m.byEmail[email] = user
	m.byUsername[username] = user
	return user, nil
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *memoryRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, ok := m.byUsername[username]
	return ok, nil
}

func (m *memoryRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	user, err := svc.Register(context.Background(), "alice", "alice@test.local", "supersecret")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), "alice", "alice@test.local", "supersecret")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice2", "alice@test.local", "supersecret")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	_, err := svc.Register(context.Background(), "alice", "alice@test.local", "supersecret")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(context.Background(), "alice@test.local", "supersecret")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "nobody@test.local", "supersecret")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "alice@test.local", "wrongpass")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		repo.byEmail["alice@test.local"].IsActive = false
		defer func() { repo.byEmail["alice@test.local"].IsActive = true }()

		_, err := svc.Authenticate(context.Background(), "alice@test.local", "supersecret")
		assert.ErrorIs(t, err, ErrAccountInactive)
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("inactive account with wrong password stays generic", func(t *testing.T) {
		repo.byEmail["alice@test.local"].IsActive = false
		defer func() { repo.byEmail["alice@test.local"].IsActive = true }()

		_, err := svc.Authenticate(context.Background(), "alice@test.local", "wrongpass")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
		assert.False(t, errors.Is(err, ErrAccountInactive))
	})
}
