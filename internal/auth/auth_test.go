package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elibrary/elibrary-server/internal/domain"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	assert.True(t, VerifyPassword(hash, "admin123"))
	assert.False(t, VerifyPassword(hash, "admin124"))
	assert.False(t, VerifyPassword("not-a-hash", "admin123"))

	other, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salted")
}

func TestHashPassword_Limits(t *testing.T) {
	_, err := HashPassword("")
	assert.ErrorIs(t, err, ErrPasswordEmpty)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.key")

	key, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	again, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))
	_, err = LoadOrGenerateKey(path)
	assert.Error(t, err)
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC))
	svc, err := NewTokenService(make([]byte, KeySize), 24*time.Hour, clock)
	require.NoError(t, err)

	user := &domain.User{ID: "user-1", Email: "reader@example.com", Role: domain.RoleUser}
	token, expires, err := svc.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(24*time.Hour), expires)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, Actor{UserID: "user-1", Role: domain.RoleUser}, claims.Actor())

	clock.Advance(25 * time.Hour)
	_, err = svc.Verify(token)
	assert.Error(t, err, "expired")
}

func TestTokenService_RejectsForeignKey(t *testing.T) {
	a, err := NewTokenService(make([]byte, KeySize), time.Hour, nil)
	require.NoError(t, err)
	otherKey := make([]byte, KeySize)
	otherKey[0] = 1
	b, err := NewTokenService(otherKey, time.Hour, nil)
	require.NoError(t, err)

	token, _, err := a.Issue(&domain.User{ID: "user-1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
	_, err = NewTokenService([]byte("short"), time.Hour, nil)
	assert.Error(t, err)
}
