// Package auth verifies the bearer tokens that identify API callers.
//
// Roster does not issue tokens. Identity comes from an upstream system
// that signs a JWT whose subject is the user id; the API verifies the
// HMAC signature and expiry and trusts the subject claim.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims Roster cares about. Anything beyond the
// registered set is ignored.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the authenticated user id carried in the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}
