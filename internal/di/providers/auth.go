package providers

import (
	"github.com/jonboulle/clockwork"
	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/logger"
)

// AuthKey is the symmetric key that seals borrower and admin access tokens.
type AuthKey []byte

// ProvideAuthKey uses a key already present in the config, otherwise the one
// stored under the data directory, creating it on first start.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	source := "config"
	key := cfg.Auth.AccessTokenKey
	if len(key) != auth.KeySize {
		loaded, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
		if err != nil {
			return nil, err
		}
		key, source = loaded, cfg.Auth.KeyPath
		cfg.Auth.AccessTokenKey = key
	}

	log.Info("Token key ready", "source", source, "access_token_ttl", cfg.Auth.AccessTokenTTL)
	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)
	clock := do.MustInvoke[clockwork.Clock](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenTTL, clock)
}
