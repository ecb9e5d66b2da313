package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/paylite-technologies/payng/internal/identity"
	"github.com/paylite-technologies/payng/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials and resolves the
// identity snapshot plus linked students that seed the session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*identity.Identity, []identity.Student, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}

	students, err := s.repo.LinkedStudents(ctx, account.ID, account.Role)
	if err != nil {
		return nil, nil, err
	}
	return account.Identity(), students, nil
}

// Register creates a new parent or guardian account. Staff accounts are
// provisioned out of band, so self-registration only accepts payer roles.
func (s *Service) Register(ctx context.Context, name, email, password string, role identity.Role) (*identity.Identity, error) {
	if role != identity.RoleParent && role != identity.RoleGuardian {
		return nil, shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	account := &Account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account.Identity(), nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, accountID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, accountID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// RefreshLinks reloads the linked students for an identity, used after a
// guardian link change so the ability rules rebuild from fresh data.
func (s *Service) RefreshLinks(ctx context.Context, ident *identity.Identity) ([]identity.Student, error) {
	return s.repo.LinkedStudents(ctx, ident.ID, ident.Role)
}
