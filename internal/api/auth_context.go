package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// actorKey is the context key for the authenticated actor.
const actorKey ctxKey = "actor"

// ActorFrom returns the authenticated actor from context.
// The zero Actor means the request is anonymous; services reject it where
// authentication is required.
func ActorFrom(ctx context.Context) auth.Actor {
	actor, _ := ctx.Value(actorKey).(auth.Actor)
	return actor
}

// setActor stores the actor in context.
func setActor(ctx context.Context, actor auth.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores the actor in context.
// If no token is present or invalid, continues without an actor.
func authMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := setActor(r.Context(), auth.Actor{UserID: user.ID, Role: user.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
