package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func mintToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestNewVerifier_ValidSecret(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if verifier == nil {
		t.Fatal("Expected verifier to be non-nil")
	}
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("")
	if err == nil {
		t.Fatal("Expected error for empty secret")
	}
}

func TestNewVerifier_ShortSecret(t *testing.T) {
	_, err := NewVerifier("short")
	if err == nil {
		t.Fatal("Expected error for short secret")
	}
}

func TestVerify(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)

	token := mintToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if claims.UserID() != "user-42" {
		t.Errorf("Expected user id 'user-42', got '%s'", claims.UserID())
	}
}

func TestVerify_Garbage(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)

	_, err := verifier.Verify("not-a-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)

	token := mintToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Minute)),
	})

	_, err := verifier.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got: %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)

	token := mintToken(t, jwt.SigningMethodHS256, "another-secret-that-is-32-chars!!", jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
	})

	_, err := verifier.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got: %v", err)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)

	token := mintToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
	})

	_, err := verifier.Verify(token)
	if !errors.Is(err, ErrMissingSubject) {
		t.Errorf("Expected ErrMissingSubject, got: %v", err)
	}
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	verifier, _ := NewVerifier(testSecret)

	// alg=none tokens must never pass.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for alg=none, got: %v", err)
	}
}
