package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/portico-app/portico/internal/shared"
)

// ErrAccountInactive indicates a valid credential pair on a deactivated
// account. Handlers surface a dedicated message for it; it still unwraps to
// the generic credential failure so callers cannot treat it as a success.
var ErrAccountInactive = fmt.Errorf("account deactivated: %w", shared.ErrInvalidCredentials)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a user account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, username, email, string(hash))
}

// Authenticate validates email/password credentials. Unknown email and wrong
// password are indistinguishable; an inactive account returns
// ErrAccountInactive only after the password verified.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// ExistsByUsername exposes the pre-registration username check.
func (s *Service) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.repo.ExistsByUsername(ctx, username)
}

// ExistsByEmail exposes the pre-registration email check.
func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}
