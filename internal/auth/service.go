package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// decoyHash is compared against when the account does not exist so unknown
// emails cost the same bcrypt round as wrong passwords.
var decoyHash, _ = bcrypt.GenerateFromPassword([]byte("agency-decoy-password"), bcrypt.DefaultCost)

// Service holds the sign-in rules of the back office.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate checks email and password. Inactive accounts and accounts
// without one of the four roles get ErrInvalidCredentials; a failing user
// table gets ErrBackendUnavailable.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(password))
		return nil, shared.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("%w: find user: %v", shared.ErrBackendUnavailable, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.CanSignIn() {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession records the login for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if id == "" {
		return fmt.Errorf("%w: session id required", shared.ErrValidation)
	}
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes the login record on logout.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, id)
}
