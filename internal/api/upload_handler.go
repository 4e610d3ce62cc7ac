package api

import (
	"fmt"
	"net/http"

	"github.com/content-dashboard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// UploadHandler stages images ahead of a form submission
type UploadHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(services *service.Services, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		services: services,
		log:      log.With().Str("handler", "upload").Logger(),
	}
}

// StageUpload handles POST /v1/uploads
func (h *UploadHandler) StageUpload(c *gin.Context) {
	if !sessionFrom(c).CanEdit() {
		respondError(c, h.log, service.ErrForbidden, nil)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	defer file.Close()

	maxSize := h.services.Validator.MaxFileSize()
	if header.Size > maxSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", maxSize/(1024*1024)),
		})
		return
	}

	staged, err := h.services.Uploads.Stage(c.Request.Context(), header.Filename, file)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"upload": staged, "ref": stagedPrefix + staged.ID})
}

// ReleaseUpload handles DELETE /v1/uploads/:id
func (h *UploadHandler) ReleaseUpload(c *gin.Context) {
	if err := h.services.Uploads.Release(c.Param("id")); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}
