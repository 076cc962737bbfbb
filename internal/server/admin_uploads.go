package server

import (
	"net/http"
	"strconv"

	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"github.com/MarcoPoloResearchLab/portfolio/internal/editor"
	"github.com/gin-gonic/gin"
)

const (
	uploadFormField  = "file"
	multipartReserve = 1 << 20
	cvDocumentKey    = "current"
)

func (h *httpHandler) handleSearchBadges(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
		return
	}
	badges, err := h.content.SearchBadges(c.Request.Context(), c.Query("term"), limit)
	if err != nil {
		h.respondServiceError(c, err, "badge_search_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

// uploadedFile reads the multipart file field, bounding the request body by the
// blob size limit.
func (h *httpHandler) uploadedFile(c *gin.Context) (blob.File, func(), bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, blob.MaxUploadBytes+multipartReserve)
	header, err := c.FormFile(uploadFormField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return blob.File{}, nil, false
	}
	reader, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_file"})
		return blob.File{}, nil, false
	}
	file := blob.File{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        reader,
	}
	return file, func() { _ = reader.Close() }, true
}

func (h *httpHandler) handleUploadIcon(c *gin.Context) {
	file, release, ok := h.uploadedFile(c)
	if !ok {
		return
	}
	defer release()
	icon, err := h.content.UploadIcon(c.Request.Context(), file)
	if err != nil {
		h.respondServiceError(c, err, "upload_failed")
		return
	}
	c.JSON(http.StatusCreated, icon)
}

func (h *httpHandler) handleReplaceCV(c *gin.Context) {
	file, release, ok := h.uploadedFile(c)
	if !ok {
		return
	}
	defer release()
	cv, err := h.content.ReplaceCV(c.Request.Context(), file)
	if err != nil {
		h.respondServiceError(c, err, "cv_upload_failed")
		return
	}
	h.realtime.Publish(editor.Change{Collection: content.CollectionCV, Action: editor.ChangeSaved, IDs: []string{cvDocumentKey}})
	c.JSON(http.StatusCreated, gin.H{"cv": cv})
}
