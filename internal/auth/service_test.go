package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
)

type stubRepo struct {
	byEmail map[string]*Account
	byID    map[int64]*Account
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	a, ok := s.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*Account, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func newTestService(t *testing.T, accounts ...*Account) *Service {
	t.Helper()
	repo := &stubRepo{byEmail: map[string]*Account{}, byID: map[int64]*Account{}}
	for _, a := range accounts {
		repo.byEmail[a.Email] = a
		repo.byID[a.ID] = a
	}
	return NewService(repo, NewTokenIssuer("test-secret", time.Hour), newTestDenylist(t))
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLogin(t *testing.T) {
	school := int64(1)
	account := &Account{
		ID: 5, Email: "ana@colegio.cl", PasswordHash: hashOf(t, "hunter22"),
		Active: true, RoleName: "Admin", SchoolID: &school,
	}
	svc := newTestService(t, account)

	token, got, err := svc.Login(context.Background(), "ana@colegio.cl", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int64(5), got.ID)

	_, _, err = svc.Login(context.Background(), "ana@colegio.cl", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@colegio.cl", "hunter22")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	account := &Account{
		ID: 5, Email: "ana@colegio.cl", PasswordHash: hashOf(t, "hunter22"),
		Active: false, RoleName: "Admin",
	}
	svc := newTestService(t, account)

	_, _, err := svc.Login(context.Background(), "ana@colegio.cl", "hunter22")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolvePrincipal(t *testing.T) {
	school := int64(2)
	account := &Account{
		ID: 7, Email: "p@colegio.cl", PasswordHash: hashOf(t, "secret1"),
		Active: true, RoleName: "Teacher", SchoolID: &school,
	}
	svc := newTestService(t, account)

	token, _, err := svc.Login(context.Background(), "p@colegio.cl", "secret1")
	require.NoError(t, err)
	claims, err := svc.issuer.Parse(token)
	require.NoError(t, err)

	p, err := svc.Resolve(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleTeacher, p.Role)
	assert.Equal(t, int64(7), p.ID)
	assert.True(t, p.Active)

	// Deactivation applies on the next request, before token expiry.
	account.Active = false
	p, err = svc.Resolve(context.Background(), claims)
	require.NoError(t, err)
	assert.False(t, p.Active)
}

func TestResolveRejectsRevokedToken(t *testing.T) {
	account := &Account{
		ID: 7, Email: "p@colegio.cl", PasswordHash: hashOf(t, "secret1"),
		Active: true, RoleName: "Teacher",
	}
	svc := newTestService(t, account)

	token, _, err := svc.Login(context.Background(), "p@colegio.cl", "secret1")
	require.NoError(t, err)
	claims, err := svc.issuer.Parse(token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))

	_, err = svc.Resolve(context.Background(), claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsUnknownRole(t *testing.T) {
	account := &Account{
		ID: 7, Email: "p@colegio.cl", PasswordHash: hashOf(t, "secret1"),
		Active: true, RoleName: "Profesor",
	}
	svc := newTestService(t, account)

	token, _, err := svc.Login(context.Background(), "p@colegio.cl", "secret1")
	require.NoError(t, err)
	claims, err := svc.issuer.Parse(token)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), claims)
	assert.Error(t, err)
}
