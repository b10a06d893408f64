package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/domain"
	domainerrors "github.com/elibrary/elibrary-server/internal/errors"
	"github.com/elibrary/elibrary-server/internal/id"
	"github.com/elibrary/elibrary-server/internal/normalize"
	"github.com/elibrary/elibrary-server/internal/store"
)

// AuthService handles registration, login and access token verification.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(s store.Store, tokenService *auth.TokenService, clock clockwork.Clock, logger *slog.Logger) *AuthService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AuthService{
		store:        s,
		tokenService: tokenService,
		clock:        clock,
		logger:       orDiscard(logger),
	}
}

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=6,max=1024"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

// AuthResponse contains the access token and the authenticated user.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Register creates a borrower account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user, err := s.createUser(ctx, s.store, req, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

// Login authenticates a borrower. Admin accounts must use AdminLogin.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	return s.login(ctx, req, domain.RoleUser)
}

// AdminLogin authenticates an administrator.
func (s *AuthService) AdminLogin(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	return s.login(ctx, req, domain.RoleAdmin)
}

func (s *AuthService) login(ctx context.Context, req LoginRequest, role domain.Role) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, normalize.Email(req.Email))
	if err != nil {
		if isNotFound(err) {
			// Don't leak whether the email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, logInternal(s.logger, translateStoreError(err, "user"), "lookup user failed")
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) || user.Role != role {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return s.issue(user)
}

// VerifyAccessToken validates a token and returns the user it was issued to.
// Tokens for deleted accounts are rejected.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokenService.Verify(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, logInternal(s.logger, translateStoreError(err, "user"), "load token user failed")
	}
	return user, nil
}

// Profile returns the actor's own account.
func (s *AuthService) Profile(ctx context.Context, actor auth.Actor) (*domain.User, error) {
	if err := authorize(actor, auth.UserRecords(actor.UserID)); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, translateStoreError(err, "user")
	}
	return user, nil
}

// CreateAdmin bootstraps the first administrator. It fails with Conflict once any admin exists.
func (s *AuthService) CreateAdmin(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	var admin *domain.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.CountAdmins(ctx)
		if err != nil {
			return translateStoreError(err, "user")
		}
		if n > 0 {
			return domainerrors.Conflict("an admin account already exists")
		}
		admin, err = s.createUser(ctx, tx, req, domain.RoleAdmin)
		return err
	})
	if err != nil {
		return nil, logInternal(s.logger, err, "create admin failed")
	}

	s.logger.Info("admin account created", "user_id", admin.ID)
	return admin, nil
}

// EnsureAdmin creates an admin with the given credentials unless the email is
// already registered. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, req RegisterRequest) (bool, error) {
	if _, err := s.store.GetUserByEmail(ctx, normalize.Email(req.Email)); err == nil {
		return false, nil
	} else if !isNotFound(err) {
		return false, translateStoreError(err, "user")
	}

	user, err := s.createUser(ctx, s.store, req, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.logger.Info("admin account created", "user_id", user.ID)
	return true, nil
}

func (s *AuthService) createUser(ctx context.Context, users store.Users, req RegisterRequest, role domain.Role) (*domain.User, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           userID,
		Name:         normalize.Text(req.Name),
		Email:        normalize.Email(req.Email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, logInternal(s.logger, translateStoreError(err, "user"), "create user failed")
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	token, expires, err := s.tokenService.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
	}, nil
}
