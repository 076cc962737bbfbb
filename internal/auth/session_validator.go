package auth

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSessionSigningKey = errors.New("auth: session signing key required")
	ErrMissingSessionCookieName = errors.New("auth: session cookie name required")
	ErrMissingSessionToken      = errors.New("auth: no admin session presented")
	ErrInvalidSessionToken      = errors.New("auth: admin session rejected")
	ErrExpiredSessionToken      = errors.New("auth: admin session expired")
	ErrMissingSessionSubject    = errors.New("auth: admin session names no account")
)

// RoleAdmin is the role carried by every session issued after a passcode login.
const RoleAdmin = "admin"

const bearerScheme = "bearer"

// SessionClaims is the JWT payload of an admin session. Subject and UserID both
// hold the admin account id.
type SessionClaims struct {
	UserID          string   `json:"user_id"`
	UserEmail       string   `json:"user_email"`
	UserDisplayName string   `json:"user_display_name"`
	UserRoles       []string `json:"user_roles"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the session may use the admin editors.
func (c SessionClaims) IsAdmin() bool {
	return slices.Contains(c.UserRoles, RoleAdmin)
}

// SessionValidatorConfig describes how admin session cookies are checked.
type SessionValidatorConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	Clock         func() time.Time
}

// SessionValidator checks the admin session JWTs minted by TokenIssuer.
type SessionValidator struct {
	signingSecret []byte
	cookieName    string
	parser        *jwt.Parser
}

// NewSessionValidator requires a signing secret and the session cookie name.
func NewSessionValidator(cfg SessionValidatorConfig) (*SessionValidator, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSessionSigningKey
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrMissingSessionCookieName
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultSessionIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionValidator{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		cookieName:    cookieName,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock),
		),
	}, nil
}

// CookieName is the cookie the login handler sets and ValidateRequest reads.
func (v *SessionValidator) CookieName() string {
	return v.cookieName
}

// ValidateToken parses a signed session and returns its claims.
func (v *SessionValidator) ValidateToken(tokenString string) (SessionClaims, error) {
	raw := strings.TrimSpace(tokenString)
	if raw == "" {
		return SessionClaims{}, ErrMissingSessionToken
	}
	claims := SessionClaims{}
	if _, err := v.parser.ParseWithClaims(raw, &claims, v.signingKey); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrExpiredSessionToken
		}
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	accountID := strings.TrimSpace(claims.UserID)
	if accountID == "" {
		return SessionClaims{}, ErrMissingSessionSubject
	}
	if claims.Subject != accountID {
		return SessionClaims{}, fmt.Errorf("%w: subject does not match account", ErrInvalidSessionToken)
	}
	return claims, nil
}

// ValidateRequest reads the session from the cookie set at login, or from an
// Authorization bearer header for API clients.
func (v *SessionValidator) ValidateRequest(r *http.Request) (SessionClaims, error) {
	token := v.requestToken(r)
	if token == "" {
		return SessionClaims{}, ErrMissingSessionToken
	}
	return v.ValidateToken(token)
}

func (v *SessionValidator) requestToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(v.cookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return cookie.Value
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

func (v *SessionValidator) signingKey(*jwt.Token) (any, error) {
	return v.signingSecret, nil
}
