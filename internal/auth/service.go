package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	issuer   *TokenIssuer
	denylist *Denylist
}

// NewService constructs a new Service.
func NewService(repo Repository, issuer *TokenIssuer, denylist *Denylist) *Service {
	return &Service{repo: repo, issuer: issuer, denylist: denylist}
}

// Login validates email/password credentials and returns a signed token.
// Inactive accounts fail with the same error as wrong credentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("auth: find account: %w", err)
	}
	if !account.Active {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	token, _, err := s.issuer.Issue(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Logout revokes the presented token until its expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.denylist.Revoke(ctx, claims.ID, expiresAt)
}

// Resolve turns validated claims into a request principal by re-reading
// the user row, so deactivation and role changes apply immediately.
func (s *Service) Resolve(ctx context.Context, claims *Claims) (*authz.Principal, error) {
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("auth: resolve principal: %w", err)
	}
	role, err := authz.ParseRole(account.RoleName)
	if err != nil {
		return nil, fmt.Errorf("auth: account %d: %w", account.ID, err)
	}
	return &authz.Principal{
		ID:       account.ID,
		Active:   account.Active,
		Role:     role,
		SchoolID: account.SchoolID,
	}, nil
}

// Account fetches the full account for a principal, for the profile endpoint.
func (s *Service) Account(ctx context.Context, id int64) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}
