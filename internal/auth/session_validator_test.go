package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSessionSigningSecret = "secret"
	testSessionCookieName    = "portfolio_session"
	testSessionUserID        = "user-123"
	testSessionUserEmail     = "owner@example.com"
)

func TestSessionValidatorValidateToken(t *testing.T) {
	clockNow := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
		Clock: func() time.Time {
			return clockNow
		},
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID:    testSessionUserID,
		UserEmail: testSessionUserEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultSessionIssuer,
			Subject:   testSessionUserID,
			IssuedAt:  jwt.NewNumericDate(clockNow.Add(-time.Minute)),
			NotBefore: jwt.NewNumericDate(clockNow.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSessionSigningSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	claims, err := validator.ValidateToken(signed)
	if err != nil {
		t.Fatalf("unexpected validation failure: %v", err)
	}
	if claims.UserID != testSessionUserID {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
}

func TestSessionValidatorValidateTokenExpired(t *testing.T) {
	clockNow := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
		Clock: func() time.Time {
			return clockNow
		},
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID: testSessionUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultSessionIssuer,
			Subject:   testSessionUserID,
			IssuedAt:  jwt.NewNumericDate(clockNow.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(clockNow.Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSessionSigningSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := validator.ValidateToken(signed); err == nil {
		t.Fatalf("expected expired token error")
	}
}

func TestSessionValidatorValidateRequestUsesCookie(t *testing.T) {
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID: testSessionUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultSessionIssuer,
			Subject:   testSessionUserID,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSessionSigningSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/admin/editors/skills", http.NoBody)
	request.AddCookie(&http.Cookie{
		Name:  testSessionCookieName,
		Value: signed,
	})

	claims, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if claims.UserID != testSessionUserID {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
}

func TestSessionValidatorAcceptsIssuedBearerToken(t *testing.T) {
	clockNow := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return clockNow }
	issuer, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte(testSessionSigningSecret), Clock: clock})
	if err != nil {
		t.Fatalf("failed to construct issuer: %v", err)
	}
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	signed, _, err := issuer.IssueSessionToken(context.Background(), Subject{UserID: testSessionUserID, Email: testSessionUserEmail})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/admin/editors/skills", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+signed)
	claims, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if claims.UserEmail != testSessionUserEmail || len(claims.UserRoles) != 1 || claims.UserRoles[0] != RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSessionValidatorRejectsMissingAndForeignTokens(t *testing.T) {
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/admin/editors/skills", http.NoBody)
	if _, err := validator.ValidateRequest(request); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}

	foreign, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("other-secret")})
	if err != nil {
		t.Fatalf("failed to construct issuer: %v", err)
	}
	signed, _, err := foreign.IssueSessionToken(context.Background(), Subject{UserID: testSessionUserID})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	request.AddCookie(&http.Cookie{Name: testSessionCookieName, Value: signed})
	if _, err := validator.ValidateRequest(request); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestSessionValidatorRejectsMismatchedSubjectAndMissingExpiry(t *testing.T) {
	clockNow := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
		Clock:         func() time.Time { return clockNow },
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	testCases := []struct {
		name   string
		claims SessionClaims
		want   error
	}{
		{
			name: "subject names another account",
			claims: SessionClaims{
				UserID: testSessionUserID,
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    defaultSessionIssuer,
					Subject:   "someone-else",
					ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
				},
			},
			want: ErrInvalidSessionToken,
		},
		{
			name: "no expiry",
			claims: SessionClaims{
				UserID: testSessionUserID,
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:  defaultSessionIssuer,
					Subject: testSessionUserID,
				},
			},
			want: ErrInvalidSessionToken,
		},
		{
			name: "no account",
			claims: SessionClaims{
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    defaultSessionIssuer,
					ExpiresAt: jwt.NewNumericDate(clockNow.Add(time.Hour)),
				},
			},
			want: ErrMissingSessionSubject,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, testCase.claims).SignedString([]byte(testSessionSigningSecret))
			if err != nil {
				t.Fatalf("failed to sign token: %v", err)
			}
			if _, err := validator.ValidateToken(signed); !errors.Is(err, testCase.want) {
				t.Fatalf("expected %v, got %v", testCase.want, err)
			}
		})
	}
}

func TestSessionClaimsIsAdmin(t *testing.T) {
	if (SessionClaims{UserRoles: []string{"viewer"}}).IsAdmin() {
		t.Fatalf("expected a non-admin role to be refused")
	}
	if !(SessionClaims{UserRoles: []string{RoleAdmin}}).IsAdmin() {
		t.Fatalf("expected the admin role to be accepted")
	}
}
