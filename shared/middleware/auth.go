package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey struct{}

var userIDKey = contextKey{}

// TokenResolver resolves a session token into the id of the user it was issued to.
type TokenResolver interface {
	Resolve(token string) (string, error)
}

// Authenticate rejects requests without a valid session token and stores the resolved user id in the
// request context. The token is read from `Authorization: Bearer` or the legacy `x-auth-token` header.
func Authenticate(resolver TokenResolver, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				writeUnauthorized(w, "No token, authorization denied")
				return
			}

			userID, err := resolver.Resolve(token)
			if err != nil {
				logger.Debug().Err(err).Msg("rejected session token")
				writeUnauthorized(w, "Token is not valid")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func extractToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if token := r.Header.Get("x-auth-token"); token != "" {
		return token, true
	}

	return "", false
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}
