package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"github.com/MarcoPoloResearchLab/portfolio/internal/editor"
	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type editorResponse struct {
	Session       string                `json:"session"`
	Collection    string                `json:"collection"`
	Items         any                   `json:"items"`
	Item          any                   `json:"item,omitempty"`
	Changed       []string              `json:"changed"`
	Outcomes      []outcomePayload      `json:"outcomes,omitempty"`
	Notifications []editor.Notification `json:"notifications"`
	Error         string                `json:"error,omitempty"`
	Field         string                `json:"field,omitempty"`
}

type outcomePayload struct {
	ID          string        `json:"id"`
	TemporaryID string        `json:"temporary_id,omitempty"`
	Action      editor.Action `json:"action"`
	Error       string        `json:"error,omitempty"`
}

type fieldUpdatePayload struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type reorderPayload struct {
	Source      int  `json:"source"`
	Destination *int `json:"destination"`
}

func newListEditor[T editor.Entity[T]](h *httpHandler, strategy editor.Strategy[T], notifier editor.Notifier) (*editor.Editor[T], error) {
	return editor.New(editor.Config[T]{
		Strategy: strategy,
		Notifier: notifier,
		Blobs:    h.content.Blobs(),
		Cache:    h.content.Cache(),
		Events:   h.editorPublisher(),
		Clock:    h.clock,
		Logger:   h.logger,
	})
}

func (h *httpHandler) newCollectionSession(owner, collection string) (*editorSession, error) {
	token, err := h.editors.newToken()
	if err != nil {
		return nil, err
	}
	session := &editorSession{
		id:         token,
		owner:      owner,
		kind:       sessionKindCollection,
		collection: collection,
		recorder:   &editor.Recorder{},
		navigator:  &navigationRecorder{},
		deletions:  map[string]deletion{},
	}
	switch collection {
	case content.CollectionSkills:
		skills, err := newListEditor[*content.Skill](h, h.content.Skills(), session.recorder)
		if err != nil {
			return nil, err
		}
		session.list = listAdapter[*content.Skill]{Editor: skills}
	case content.CollectionBadges:
		badges, err := newListEditor[*content.TechBadge](h, h.content.Badges(), session.recorder)
		if err != nil {
			return nil, err
		}
		session.list = listAdapter[*content.TechBadge]{Editor: badges}
	case content.CollectionResume:
		resume, err := newListEditor[*content.ResumeItem](h, h.content.Resume(), session.recorder)
		if err != nil {
			return nil, err
		}
		session.list = listAdapter[*content.ResumeItem]{Editor: resume}
	case content.CollectionProjects:
		projects, err := newListEditor[*content.ProjectCard](h, h.content.Projects(), session.recorder)
		if err != nil {
			return nil, err
		}
		session.list = listAdapter[*content.ProjectCard]{Editor: projects}
		session.projects = projects
	default:
		return nil, errUnknownCollection
	}
	return session, nil
}

func (h *httpHandler) handleOpenEditor(c *gin.Context) {
	session, err := h.newCollectionSession(c.GetString(userIDContextKey), c.Param("collection"))
	if errors.Is(err, errUnknownCollection) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_collection"})
		return
	}
	if err != nil {
		h.logger.Error("failed to open editor session", zap.String("collection", c.Param("collection")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "editor_open_failed"})
		return
	}
	h.editors.register(session)

	status := http.StatusCreated
	if err := session.list.Load(c.Request.Context()); err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, h.listResponse(session))
}

// collectionSession resolves the session addressed by the request or writes a 404.
func (h *httpHandler) collectionSession(c *gin.Context) (*editorSession, bool) {
	session, ok := h.editors.lookup(c.Param("session"), c.GetString(userIDContextKey), sessionKindCollection)
	if !ok || session.collection != c.Param("collection") {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return nil, false
	}
	return session, true
}

func (h *httpHandler) listResponse(session *editorSession) editorResponse {
	return editorResponse{
		Session:       session.id,
		Collection:    session.collection,
		Items:         session.list.View(),
		Changed:       session.list.Changed(),
		Notifications: session.recorder.Drain(),
	}
}

func (h *httpHandler) handleEditorState(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.listResponse(session))
}

func (h *httpHandler) handleCloseEditor(c *gin.Context) {
	if !h.editors.close(c.Param("session"), c.GetString(userIDContextKey)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleAddItem(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	added := session.list.AddItem()
	response := h.listResponse(session)
	response.Item = added
	c.JSON(http.StatusCreated, response)
}

func (h *httpHandler) handleUpdateItem(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	var request fieldUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Field) == "" || len(request.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	found, err := session.list.UpdateField(c.Param("id"), request.Field, request.Value)
	if !found {
		response := h.listResponse(session)
		response.Error = "record_not_found"
		c.JSON(http.StatusNotFound, response)
		return
	}
	if errors.Is(err, content.ErrDuplicateTechBadge) {
		response := h.listResponse(session)
		response.Error = "duplicate_tech_badge"
		response.Field = request.Field
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}
	if err != nil {
		response := h.listResponse(session)
		response.Error = "invalid_field"
		response.Field = request.Field
		c.JSON(http.StatusBadRequest, response)
		return
	}
	c.JSON(http.StatusOK, h.listResponse(session))
}

func (h *httpHandler) handleNestedItemEdit(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	if session.projects == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNestedUnsupported.Error()})
		return
	}
	var request nestedEditPayload
	if err := c.ShouldBindJSON(&request); err != nil || !request.known() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	err := session.projects.Mutate(c.Param("id"), request.apply)
	if errors.Is(err, editor.ErrUnknownRecord) {
		response := h.listResponse(session)
		response.Error = "record_not_found"
		c.JSON(http.StatusNotFound, response)
		return
	}
	if err != nil {
		response := h.listResponse(session)
		response.Error = nestedErrorCode(err)
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}
	c.JSON(http.StatusOK, h.listResponse(session))
}

func nestedErrorCode(err error) string {
	switch {
	case errors.Is(err, content.ErrDuplicateTechBadge):
		return "duplicate_tech_badge"
	case errors.Is(err, content.ErrIndexOutOfRange):
		return "index_out_of_range"
	default:
		return "nested_edit_rejected"
	}
}

func (h *httpHandler) handleReorder(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	var request reorderPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := session.list.Reorder(request.Source, request.Destination); err != nil {
		response := h.listResponse(session)
		response.Error = "invalid_index"
		c.JSON(http.StatusBadRequest, response)
		return
	}
	c.JSON(http.StatusOK, h.listResponse(session))
}

func (h *httpHandler) handleSaveAll(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	result, err := session.list.SaveAll(c.Request.Context())
	h.respondBatch(c, session, result, err)
}

func (h *httpHandler) handleSaveOrder(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	result, err := session.list.SaveOrder(c.Request.Context())
	h.respondBatch(c, session, result, err)
}

func (h *httpHandler) respondBatch(c *gin.Context, session *editorSession, result editor.BatchResult, err error) {
	response := h.listResponse(session)
	response.Outcomes = outcomePayloads(result)
	var invalid *validation.Error
	var batchErr *editor.BatchError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, response)
	case errors.As(err, &invalid):
		response.Error = "validation_failed"
		response.Field = invalid.Field
		c.JSON(http.StatusBadRequest, response)
	case errors.As(err, &batchErr):
		response.Error = "save_failed"
		c.JSON(http.StatusBadGateway, response)
	default:
		h.logger.Error("editor batch failed", zap.String("collection", session.collection), zap.Error(err))
		response.Error = "save_failed"
		c.JSON(http.StatusInternalServerError, response)
	}
}

func outcomePayloads(result editor.BatchResult) []outcomePayload {
	if len(result.Outcomes) == 0 {
		return nil
	}
	payloads := make([]outcomePayload, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		payload := outcomePayload{ID: outcome.ID, TemporaryID: outcome.TemporaryID, Action: outcome.Action}
		if outcome.Err != nil {
			payload.Error = outcome.Err.Error()
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

func (h *httpHandler) handleRefresh(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	session.list.Refresh()
	c.JSON(http.StatusOK, h.listResponse(session))
}

func (h *httpHandler) handleReload(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	if err := session.list.Load(c.Request.Context()); err != nil {
		response := h.listResponse(session)
		response.Error = "load_failed"
		c.JSON(http.StatusBadGateway, response)
		return
	}
	c.JSON(http.StatusOK, h.listResponse(session))
}

func (h *httpHandler) handleRequestDelete(c *gin.Context) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	pending, err := session.list.RequestDeletion(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record_not_found"})
		return
	}
	token, err := h.editors.newToken()
	if err != nil {
		h.logger.Error("failed to issue deletion token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_request_failed"})
		return
	}
	session.stageDeletion(token, pending)
	c.JSON(http.StatusOK, gin.H{"confirmation": token, "label": pending.Label()})
}

func (h *httpHandler) handleConfirmDelete(c *gin.Context) {
	h.settleDeletion(c, func(ctx context.Context, pending deletion) error {
		return pending.Confirm(ctx)
	})
}

func (h *httpHandler) handleCancelDelete(c *gin.Context) {
	h.settleDeletion(c, func(_ context.Context, pending deletion) error {
		return pending.Cancel()
	})
}

// settleDeletion consumes the staged deletion token and applies settle to it.
func (h *httpHandler) settleDeletion(c *gin.Context, settle func(context.Context, deletion) error) {
	session, ok := h.collectionSession(c)
	if !ok {
		return
	}
	pending, ok := session.takeDeletion(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errUnknownDeletion.Error()})
		return
	}
	err := settle(c.Request.Context(), pending)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.listResponse(session))
	case errors.Is(err, editor.ErrDeletionSettled):
		c.JSON(http.StatusConflict, gin.H{"error": "deletion_settled"})
	default:
		response := h.listResponse(session)
		response.Error = "delete_failed"
		c.JSON(http.StatusBadGateway, response)
	}
}
