package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifyHS256(t *testing.T) {
	v, err := NewVerifier(VerifierConfig{Algorithm: "HS256", SecretKey: "test-secret"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	token := signHS256(t, "test-secret", jwt.MapClaims{
		"sub":    "operator-1",
		"roles":  []string{RoleOperator},
		"scopes": []string{ScopeRead, ScopeControl, ScopeTelemetry},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "operator-1" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if len(claims.Scopes) != 3 {
		t.Errorf("Scopes = %v", claims.Scopes)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v, err := NewVerifier(VerifierConfig{Algorithm: "HS256", SecretKey: "test-secret"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", signHS256(t, "other-secret", jwt.MapClaims{
			"sub": "x", "roles": []string{RoleViewer}, "scopes": []string{ScopeRead},
		})},
		{"expired", signHS256(t, "test-secret", jwt.MapClaims{
			"sub": "x", "roles": []string{RoleViewer}, "scopes": []string{ScopeRead},
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"unknown role", signHS256(t, "test-secret", jwt.MapClaims{
			"sub": "x", "roles": []string{"admin"}, "scopes": []string{ScopeRead},
		})},
		{"unknown scope", signHS256(t, "test-secret", jwt.MapClaims{
			"sub": "x", "roles": []string{RoleViewer}, "scopes": []string{"superuser"},
		})},
		{"missing sub", signHS256(t, "test-secret", jwt.MapClaims{
			"roles": []string{RoleViewer}, "scopes": []string{ScopeRead},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyToken(tt.token); err == nil {
				t.Error("expected verification failure")
			}
		})
	}
}

func TestVerifyRS256ViaJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	jwks := JWKSet{Keys: []JWK{{
		Kty: "RSA",
		Kid: "key-1",
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1}),
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	defer srv.Close()

	v, err := NewVerifier(VerifierConfig{
		Algorithm:           "RS256",
		JWKSURL:             srv.URL,
		JWKSRefreshInterval: time.Minute,
		JWKSCacheTimeout:    time.Minute,
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":    "viewer-1",
		"roles":  []string{RoleViewer},
		"scopes": []string{ScopeRead, ScopeTelemetry},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "key-1"
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	claims, err := v.VerifyToken(signed)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "viewer-1" {
		t.Errorf("Subject = %q", claims.Subject)
	}
}

func TestNewVerifierRejectsBadConfig(t *testing.T) {
	if _, err := NewVerifier(VerifierConfig{Algorithm: "HS256"}); err == nil {
		t.Error("HS256 without secret accepted")
	}
	if _, err := NewVerifier(VerifierConfig{Algorithm: "ES384"}); err == nil {
		t.Error("unsupported algorithm accepted")
	}
}
