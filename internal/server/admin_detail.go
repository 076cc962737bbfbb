package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"github.com/MarcoPoloResearchLab/portfolio/internal/editor"
	"github.com/MarcoPoloResearchLab/portfolio/internal/store"
	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type detailResponse struct {
	Session       string                `json:"session"`
	Item          any                   `json:"item,omitempty"`
	Result        *editor.SaveResult    `json:"result,omitempty"`
	NavigateTo    string                `json:"navigate_to,omitempty"`
	Notifications []editor.Notification `json:"notifications"`
	Error         string                `json:"error,omitempty"`
	Field         string                `json:"field,omitempty"`
}

type openDetailPayload struct {
	ID string `json:"id"`
}

func (h *httpHandler) newProjectDetailSession(owner string) (*editorSession, error) {
	token, err := h.editors.newToken()
	if err != nil {
		return nil, err
	}
	session := &editorSession{
		id:         token,
		owner:      owner,
		kind:       sessionKindDetail,
		collection: content.CollectionProjects,
		recorder:   &editor.Recorder{},
		navigator:  &navigationRecorder{},
		deletions:  map[string]deletion{},
	}
	session.detail, err = editor.NewDetail(editor.DetailConfig[*content.ProjectCard]{
		Strategy:    h.content.Projects(),
		Notifier:    session.recorder,
		Navigator:   session.navigator,
		ListingPath: projectListingPath,
		Cache:       h.content.Cache(),
		Events:      h.editorPublisher(),
		Clock:       h.clock,
		Logger:      h.logger,
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (h *httpHandler) handleOpenProjectDetail(c *gin.Context) {
	var request openDetailPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}
	session, err := h.newProjectDetailSession(c.GetString(userIDContextKey))
	if err != nil {
		h.logger.Error("failed to open project detail session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "editor_open_failed"})
		return
	}

	id := strings.TrimSpace(request.ID)
	if id == "" {
		session.detail.New()
	} else if _, err := session.detail.Open(c.Request.Context(), id); err != nil {
		response := detailResponse{Session: session.id, Notifications: session.recorder.Drain()}
		if errors.Is(err, store.ErrNotFound) {
			response.Error = "not_found"
			c.JSON(http.StatusNotFound, response)
			return
		}
		response.Error = "load_failed"
		c.JSON(http.StatusBadGateway, response)
		return
	}
	h.editors.register(session)
	c.JSON(http.StatusCreated, h.detailResponse(session))
}

func (h *httpHandler) detailSession(c *gin.Context) (*editorSession, bool) {
	session, ok := h.editors.lookup(c.Param("session"), c.GetString(userIDContextKey), sessionKindDetail)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return nil, false
	}
	return session, true
}

func (h *httpHandler) detailResponse(session *editorSession) detailResponse {
	response := detailResponse{Session: session.id, NavigateTo: session.navigator.take()}
	if item, err := session.detail.Current(); err == nil {
		response.Item = item
	}
	response.Notifications = session.recorder.Drain()
	return response
}

func (h *httpHandler) handleProjectDetailState(c *gin.Context) {
	session, ok := h.detailSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.detailResponse(session))
}

func (h *httpHandler) handleCloseProjectDetail(c *gin.Context) {
	if !h.editors.close(c.Param("session"), c.GetString(userIDContextKey)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUpdateProjectDetail(c *gin.Context) {
	session, ok := h.detailSession(c)
	if !ok {
		return
	}
	var request fieldUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Field) == "" || len(request.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := session.detail.UpdateField(request.Field, request.Value); err != nil {
		response := h.detailResponse(session)
		response.Field = request.Field
		if errors.Is(err, content.ErrDuplicateTechBadge) {
			response.Error = "duplicate_tech_badge"
			c.JSON(http.StatusUnprocessableEntity, response)
			return
		}
		response.Error = "invalid_field"
		c.JSON(http.StatusBadRequest, response)
		return
	}
	c.JSON(http.StatusOK, h.detailResponse(session))
}

func (h *httpHandler) handleNestedProjectDetailEdit(c *gin.Context) {
	session, ok := h.detailSession(c)
	if !ok {
		return
	}
	var request nestedEditPayload
	if err := c.ShouldBindJSON(&request); err != nil || !request.known() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := session.detail.Mutate(request.apply); err != nil {
		response := h.detailResponse(session)
		response.Error = nestedErrorCode(err)
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}
	c.JSON(http.StatusOK, h.detailResponse(session))
}

func (h *httpHandler) handleSaveProjectDetail(c *gin.Context) {
	session, ok := h.detailSession(c)
	if !ok {
		return
	}
	result, err := session.detail.Save(c.Request.Context())
	if err != nil {
		response := h.detailResponse(session)
		var invalid *validation.Error
		if errors.As(err, &invalid) {
			response.Error = "validation_failed"
			response.Field = invalid.Field
			c.JSON(http.StatusBadRequest, response)
			return
		}
		response.Error = "save_failed"
		c.JSON(http.StatusBadGateway, response)
		return
	}
	response := h.detailResponse(session)
	response.Result = &result
	if response.NavigateTo == "" {
		response.NavigateTo = result.NavigateTo
	}
	c.JSON(http.StatusOK, response)
}
