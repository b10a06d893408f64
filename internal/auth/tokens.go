package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/jonboulle/clockwork"

	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/id"
)

const (
	tokenIssuer   = "elibrary-server"
	tokenAudience = "elibrary-client"
)

// AccessClaims are the claims carried by a v4.local access token.
type AccessClaims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`

	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Actor returns the identity the access policy evaluates.
func (c *AccessClaims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role}
}

// TokenService issues and verifies PASETO access tokens.
type TokenService struct {
	key   paseto.V4SymmetricKey
	ttl   time.Duration
	clock clockwork.Clock
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, ttl time.Duration, clock clockwork.Clock) (*TokenService, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("token key must be %d bytes, got %d", KeySize, len(key))
	}
	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create PASETO key: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenService{key: symmetric, ttl: ttl, clock: clock}, nil
}

// TTL returns the access token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates an encrypted access token for user.
func (s *TokenService) Issue(user *domain.User) (string, time.Time, error) {
	now := s.clock.Now()
	expires := now.Add(s.ttl)

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, err
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(user.ID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)
	token.SetJti(tokenID)
	//nolint:errcheck // Set only fails for values that cannot be JSON encoded
	_ = token.Set("user_id", user.ID)
	//nolint:errcheck // see above
	_ = token.Set("email", user.Email)
	//nolint:errcheck // see above
	_ = token.Set("role", string(user.Role))

	return token.V4Encrypt(s.key, nil), expires, nil
}

// Verify decrypts a token and checks issuer, audience and validity window.
func (s *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.clock.Now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &claims, nil
}
