package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum HMAC secret length in bytes. Shorter
// secrets are trivially brute-forceable.
const MinSecretLength = 32

var (
	// ErrInvalidToken means the token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSubject means the token carries no user id.
	ErrMissingSubject = errors.New("token has no subject")
)

// Verifier checks bearer tokens signed with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) (*Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth secret must be at least %d characters, got %d", MinSecretLength, len(secret))
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a token string and returns its claims.
// Expiry and not-before are enforced by the parser; the subject must be
// non-empty because it is the caller's identity.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
