package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elibrary/elibrary-server/internal/auth"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
)

func TestUserService_ListUsers(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	users, err := env.users.ListUsers(ctx, env.admin)
	require.NoError(t, err)
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"user-admin", "user-alice", "user-bob"}, ids)

	_, err = env.users.ListUsers(ctx, env.alice)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = env.users.ListUsers(ctx, auth.Actor{})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestUserService_GetUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user, err := env.users.GetUser(ctx, env.alice, "user-alice")
	require.NoError(t, err)
	assert.Equal(t, "user-alice@example.com", user.Email)

	_, err = env.users.GetUser(ctx, env.admin, "user-alice")
	assert.NoError(t, err)

	_, err = env.users.GetUser(ctx, env.bob, "user-alice")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = env.users.GetUser(ctx, env.admin, "user-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
