// Package middleware provides HTTP middleware for the Roster API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rosterhq/roster/pkg/controlplane/api/auth"
)

// Context key type for storing the authenticated user id
type contextKey string

const userContextKey contextKey = "user"

// DevUserID is the identity assigned when auth is disabled and the
// caller sent no identity header. Local single-user setups never have
// to configure anything.
const DevUserID = "dev"

// GetUserID retrieves the authenticated user id from the request context.
// Returns the empty string if no identity is present.
//
// This function should only be called within API handler code that runs
// after the JWTAuth or HeaderIdentity middleware has processed the
// request. If called before authentication, or in routes without either
// middleware, it will return "".
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(userContextKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// WithUserID returns a copy of ctx carrying the given user id. Handler
// tests use it to simulate an authenticated request.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// extractBearerToken extracts the token from a Bearer Authorization header.
// Returns the token string and true if successful, or empty string and false if not.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// JWTAuth is a middleware that validates Bearer tokens in the Authorization header.
// If valid, the token subject is stored in the request context as the user id.
// If invalid or missing, returns 401 Unauthorized.
func JWTAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HeaderIdentity is a middleware that resolves the user id from a trusted
// header. It is the identity source when auth is disabled: local setups
// and tests pass the header directly, and requests without it run as
// DevUserID. Never expose a server configured this way to a network you
// do not control.
func HeaderIdentity(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(header))
			if userID == "" {
				userID = DevUserID
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
