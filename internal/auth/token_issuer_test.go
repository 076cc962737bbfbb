package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuerIssuesSessionTokens(t *testing.T) {
	clockNow := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("super-secret"),
		TokenTTL:      30 * time.Minute,
		Clock:         func() time.Time { return clockNow },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, expiresAt, err := issuer.IssueSessionToken(context.Background(), Subject{
		UserID:      "admin-1",
		Email:       "owner@example.com",
		DisplayName: "Owner",
	})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if !expiresAt.Equal(clockNow.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims := &SessionClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return clockNow }))
	if err != nil {
		t.Fatalf("failed to parse issued token: %v", err)
	}
	if claims.Subject != "admin-1" || claims.Issuer != defaultSessionIssuer || claims.UserEmail != "owner@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenIssuerRequiresSecretAndSubject(t *testing.T) {
	if _, err := NewTokenIssuer(TokenIssuerConfig{}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	issuer, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("secret")})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	if _, _, err := issuer.IssueSessionToken(context.Background(), Subject{Email: "owner@example.com"}); err == nil {
		t.Fatalf("expected missing subject error")
	}
	if issuer.TTL() != defaultTokenTTL {
		t.Fatalf("expected default ttl, got %v", issuer.TTL())
	}
}
