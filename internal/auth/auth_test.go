package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testConfig = Config{Secret: "test-secret", Issuer: "test-issuer"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testConfig.Secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestParseValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"iss":       testConfig.Issuer,
		"sub":       "client-1",
		"tenant_id": "tenant-1",
		"scopes":    "sets:write sets:read",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, testConfig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "client-1" || claims.TenantID != "tenant-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.HasScope(ScopeSetsWrite) || !claims.HasScope(ScopeSetsRead) {
		t.Fatalf("expected scopes to be parsed: %v", claims.Scopes)
	}
}

func TestParseRejectsTokenWithoutExpiry(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"iss":       testConfig.Issuer,
		"sub":       "client-1",
		"tenant_id": "tenant-1",
		"scopes":    "sets:write",
	})

	if _, err := Parse(token, testConfig); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsMissingTenant(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"iss": testConfig.Issuer,
		"sub": "client-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := Parse(token, testConfig); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":       testConfig.Issuer,
		"sub":       "client-1",
		"tenant_id": "tenant-1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := Parse(token, testConfig); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
