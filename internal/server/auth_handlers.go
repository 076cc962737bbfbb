package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type passcodeRequestPayload struct {
	Email string `json:"email"`
}

type passcodeVerifyPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (h *httpHandler) handlePasscodeRequest(c *gin.Context) {
	var request passcodeRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	err := h.passcodes.Request(c.Request.Context(), request.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	case errors.Is(err, auth.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
	case errors.Is(err, auth.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
	default:
		h.logger.Error("passcode request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "passcode_request_failed"})
	}
}

func (h *httpHandler) handlePasscodeVerify(c *gin.Context) {
	var request passcodeVerifyPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" || strings.TrimSpace(request.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	email, err := h.passcodes.Verify(c.Request.Context(), request.Email, request.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasscodeExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "passcode_expired"})
		case errors.Is(err, auth.ErrTooManyAttempts):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "too_many_attempts"})
		case errors.Is(err, auth.ErrInvalidPasscode):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_passcode"})
		default:
			h.logger.Error("passcode verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "passcode_verify_failed"})
		}
		return
	}

	account, err := h.accounts.RecordLogin(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("failed to record admin login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	token, expiresAt, err := h.tokens.IssueSessionToken(c.Request.Context(), auth.Subject{
		UserID:      account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	})
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.sessions.CookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
		TokenType:   "Bearer",
		UserID:      account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.sessions.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id": c.GetString(userIDContextKey),
		"email":   c.GetString(userEmailContextKey),
	})
}
