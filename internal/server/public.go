package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const fileCacheControl = "public, max-age=86400"

func (h *httpHandler) handleListSkills(c *gin.Context) {
	skills, err := h.content.ListSkills(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "skills_unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

func (h *httpHandler) handleListBadges(c *gin.Context) {
	term, searching := c.GetQuery("search")
	rawLimit, limited := c.GetQuery("limit")
	if !searching && !limited {
		badges, err := h.content.ListBadges(c.Request.Context())
		if err != nil {
			h.respondServiceError(c, err, "badges_unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"badges": badges})
		return
	}
	limit, ok := parseLimit(rawLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
		return
	}
	badges, err := h.content.SearchBadges(c.Request.Context(), term, limit)
	if err != nil {
		h.respondServiceError(c, err, "badges_unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

func (h *httpHandler) handleListResume(c *gin.Context) {
	items, err := h.content.ListResume(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "resume_unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"resume": items})
}

func (h *httpHandler) handleListProjects(c *gin.Context) {
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
		return
	}
	featured, err := strconv.ParseBool(strings.TrimSpace(c.DefaultQuery("featured", "false")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_featured"})
		return
	}
	projects, err := h.content.ListProjects(c.Request.Context(), content.ProjectQuery{FeaturedOnly: featured, Limit: limit})
	if err != nil {
		h.respondServiceError(c, err, "projects_unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *httpHandler) handleGetProject(c *gin.Context) {
	project, err := h.content.GetProject(c.Request.Context(), c.Param("id"))
	if errors.Is(err, content.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.respondServiceError(c, err, "project_unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (h *httpHandler) handleCurrentCV(c *gin.Context) {
	cv, err := h.content.CurrentCV(c.Request.Context())
	if errors.Is(err, content.ErrNoCV) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.respondServiceError(c, err, "cv_unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cv": cv})
}

func (h *httpHandler) handleContact(c *gin.Context) {
	var request content.ContactInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	message, err := h.content.SubmitContact(c.Request.Context(), request)
	if err != nil {
		h.respondServiceError(c, err, "contact_failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": message.ID, "received_at": message.ReceivedAt})
}

func (h *httpHandler) handleFile(c *gin.Context) {
	bucket := c.Param("bucket")
	blobID := c.Param("id")
	store := h.content.Blobs()
	opener, ok := store.(blob.Opener)
	if !ok {
		c.Redirect(http.StatusFound, store.ViewURL(bucket, blobID))
		return
	}
	reader, contentType, err := opener.Open(c.Request.Context(), bucket, blobID)
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidName) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("blob open failed", zap.String("bucket", bucket), zap.String("blob_id", blobID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "file_unavailable"})
		return
	}
	defer reader.Close()
	c.Header("Cache-Control", fileCacheControl)
	c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
}

type realtimePayload struct {
	Collection string   `json:"collection"`
	Action     string   `json:"action"`
	IDs        []string `json:"ids"`
	Source     string   `json:"source"`
	Timestamp  int64    `json:"timestamp_s"`
}

func (h *httpHandler) handleEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	heartbeat := time.NewTicker(realtimeHeartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(realtimeEventHeartbeat, gin.H{"source": realtimeSourceBackend})
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, realtimePayload{
				Collection: message.Collection,
				Action:     message.Action,
				IDs:        message.IDs,
				Source:     realtimeSourceBackend,
				Timestamp:  message.Timestamp.Unix(),
			})
			return true
		case <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"source": realtimeSourceBackend})
			return true
		}
	})
}

func parseLimit(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}

// respondServiceError maps validation failures to 400 and everything else to a
// logged 500 carrying the service error code when there is one.
func (h *httpHandler) respondServiceError(c *gin.Context, err error, fallback string) {
	var invalid *validation.Error
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"field":   invalid.Field,
			"rule":    invalid.Rule,
			"message": invalid.Message,
		})
		return
	}
	if errors.Is(err, blob.ErrExtensionNotAllowed) || errors.Is(err, blob.ErrContentMismatch) || errors.Is(err, blob.ErrTooLarge) {
		c.JSON(http.StatusBadRequest, gin.H{"error": serviceErrorCode(err, fallback), "message": err.Error()})
		return
	}
	h.logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": serviceErrorCode(err, fallback)})
}

func serviceErrorCode(err error, fallback string) string {
	var serviceErr *content.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code()
	}
	return fallback
}
