package service

import (
	"context"
	"log/slog"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/store"
)

// UserService exposes the account directory to administrators.
type UserService struct {
	store  store.Store
	logger *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(s store.Store, logger *slog.Logger) *UserService {
	return &UserService{store: s, logger: orDiscard(logger)}
}

// ListUsers returns every account, newest first.
func (s *UserService) ListUsers(ctx context.Context, actor auth.Actor) ([]*domain.User, error) {
	if err := authorize(actor, auth.UserDirectory()); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "user"), "list users failed")
	}
	return users, nil
}

// GetUser returns one account to its owner or an admin.
func (s *UserService) GetUser(ctx context.Context, actor auth.Actor, userID string) (*domain.User, error) {
	if err := authorize(actor, auth.UserRecords(userID)); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "user"), "get user failed", "user_id", userID)
	}
	return user, nil
}
