// Package server exposes the portfolio content API, the admin editor API and the
// passcode login endpoints over gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/auth"
	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"github.com/MarcoPoloResearchLab/portfolio/internal/editor"
	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/MarcoPoloResearchLab/portfolio/internal/metrics"
	"github.com/MarcoPoloResearchLab/portfolio/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "portfolio_user_id"
	userEmailContextKey = "portfolio_user_email"
)

var (
	errMissingContent   = errors.New("content repository dependency required")
	errMissingPasscodes = errors.New("passcode service dependency required")
	errMissingTokens    = errors.New("token issuer dependency required")
	errMissingSessions  = errors.New("session validator dependency required")
	errMissingAccounts  = errors.New("account service dependency required")
)

// PasscodeExchange sends and checks one-time login codes.
type PasscodeExchange interface {
	Request(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (string, error)
}

// SessionIssuer mints admin session tokens.
type SessionIssuer interface {
	IssueSessionToken(ctx context.Context, subject auth.Subject) (string, time.Time, error)
}

// SessionValidator authenticates requests carrying a session cookie or bearer token.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
	CookieName() string
}

// AccountRecorder records admin sign-ins.
type AccountRecorder interface {
	RecordLogin(ctx context.Context, email string) (users.AdminAccount, error)
}

type Dependencies struct {
	Content        *content.Repository
	Passcodes      PasscodeExchange
	Tokens         SessionIssuer
	Sessions       SessionValidator
	Accounts       AccountRecorder
	Realtime       *RealtimeDispatcher
	IDProvider     ids.Provider
	AllowedOrigins []string
	CookieSecure   bool
	EditorIdleTTL  time.Duration
	Clock          func() time.Time
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Content == nil {
		return nil, errMissingContent
	}
	if deps.Passcodes == nil {
		return nil, errMissingPasscodes
	}
	if deps.Tokens == nil {
		return nil, errMissingTokens
	}
	if deps.Sessions == nil {
		return nil, errMissingSessions
	}
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.GinMiddleware())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		content:      deps.Content,
		passcodes:    deps.Passcodes,
		tokens:       deps.Tokens,
		sessions:     deps.Sessions,
		accounts:     deps.Accounts,
		realtime:     realtime,
		editors:      newSessionRegistry(deps.EditorIdleTTL, deps.IDProvider),
		cookieSecure: deps.CookieSecure,
		clock:        clock,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/files/:bucket/:id", handler.handleFile)

	api := router.Group("/api")
	api.GET("/skills", handler.handleListSkills)
	api.GET("/badges", handler.handleListBadges)
	api.GET("/resume", handler.handleListResume)
	api.GET("/projects", handler.handleListProjects)
	api.GET("/projects/:id", handler.handleGetProject)
	api.GET("/cv", handler.handleCurrentCV)
	api.POST("/contact", handler.handleContact)
	api.GET("/events", handler.handleEvents)

	router.POST("/auth/passcode/request", handler.handlePasscodeRequest)
	router.POST("/auth/passcode/verify", handler.handlePasscodeVerify)
	router.POST("/auth/logout", handler.handleLogout)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/auth/session", handler.handleSession)

	admin := protected.Group("/admin")
	admin.POST("/editors/:collection", handler.handleOpenEditor)
	admin.GET("/editors/:collection/:session", handler.handleEditorState)
	admin.DELETE("/editors/:collection/:session", handler.handleCloseEditor)
	admin.POST("/editors/:collection/:session/items", handler.handleAddItem)
	admin.PATCH("/editors/:collection/:session/items/:id", handler.handleUpdateItem)
	admin.POST("/editors/:collection/:session/items/:id/nested", handler.handleNestedItemEdit)
	admin.POST("/editors/:collection/:session/items/:id/delete", handler.handleRequestDelete)
	admin.POST("/editors/:collection/:session/reorder", handler.handleReorder)
	admin.POST("/editors/:collection/:session/save", handler.handleSaveAll)
	admin.POST("/editors/:collection/:session/save-order", handler.handleSaveOrder)
	admin.POST("/editors/:collection/:session/refresh", handler.handleRefresh)
	admin.POST("/editors/:collection/:session/reload", handler.handleReload)
	admin.POST("/editors/:collection/:session/deletions/:token/confirm", handler.handleConfirmDelete)
	admin.POST("/editors/:collection/:session/deletions/:token/cancel", handler.handleCancelDelete)

	admin.POST("/projects/detail", handler.handleOpenProjectDetail)
	admin.GET("/projects/detail/:session", handler.handleProjectDetailState)
	admin.DELETE("/projects/detail/:session", handler.handleCloseProjectDetail)
	admin.PATCH("/projects/detail/:session", handler.handleUpdateProjectDetail)
	admin.POST("/projects/detail/:session/nested", handler.handleNestedProjectDetailEdit)
	admin.POST("/projects/detail/:session/save", handler.handleSaveProjectDetail)

	admin.GET("/badges/search", handler.handleSearchBadges)
	admin.POST("/uploads/icon", handler.handleUploadIcon)
	admin.POST("/cv", handler.handleReplaceCV)

	return router, nil
}

type httpHandler struct {
	content      *content.Repository
	passcodes    PasscodeExchange
	tokens       SessionIssuer
	sessions     SessionValidator
	accounts     AccountRecorder
	realtime     *RealtimeDispatcher
	editors      *sessionRegistry
	cookieSecure bool
	clock        func() time.Time
	logger       *zap.Logger
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !claims.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Set(userIDContextKey, claims.UserID)
	c.Set(userEmailContextKey, claims.UserEmail)
	c.Next()
}

// editorPublisher returns the dispatcher as an editor.Publisher.
func (h *httpHandler) editorPublisher() editor.Publisher {
	return h.realtime
}
