package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/domain"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
)

func setupAuthTest(t *testing.T) (*AuthService, *testEnv) {
	t.Helper()
	env := setupTestEnv(t)

	tokens, err := auth.NewTokenService(make([]byte, auth.KeySize), time.Hour, env.clock)
	require.NoError(t, err)
	return NewAuthService(env.store, tokens, env.clock, nil), env
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := setupAuthTest(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Name:     " Carol ",
		Email:    "Carol@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", resp.User.Email)
	assert.Equal(t, "Carol", resp.User.Name)
	assert.Equal(t, domain.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)

	user, err := svc.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	login, err := svc.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	// Borrowers cannot use the admin door.
	_, err = svc.AdminLogin(ctx, LoginRequest{Email: "carol@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Register_Errors(t *testing.T) {
	svc, _ := setupAuthTest(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Dan", Email: "dan@example.com", Password: "12345"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Dan", Email: "dan@example.com", Password: "123456"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Name: "Dan", Email: "DAN@example.com", Password: "123456"})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAuthService_TokenExpiry(t *testing.T) {
	svc, env := setupAuthTest(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{Name: "Eve", Email: "eve@example.com", Password: "secret1"})
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	_, err = svc.VerifyAccessToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthService_CreateAdmin(t *testing.T) {
	svc, env := setupAuthTest(t)
	ctx := context.Background()

	// The test environment already has an admin.
	_, err := svc.CreateAdmin(ctx, RegisterRequest{Name: "Root", Email: "root@example.com", Password: "admin123"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	users, err := env.users.ListUsers(ctx, env.admin)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestAuthService_BootstrapAdmin(t *testing.T) {
	svc, env := setupAuthTest(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, RegisterRequest{Name: "Admin", Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, RegisterRequest{Name: "Admin", Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.False(t, created)

	resp, err := svc.AdminLogin(ctx, LoginRequest{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.True(t, resp.User.IsAdmin())

	_, err = svc.Login(ctx, LoginRequest{Email: "admin@example.com", Password: "admin123"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	profile, err := svc.Profile(ctx, auth.Actor{UserID: resp.User.ID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", profile.Email)

	_, err = env.users.ListUsers(ctx, env.alice)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}
