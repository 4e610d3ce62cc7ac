package api

import (
	"net/http"
	"strconv"

	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MetaHandler serves statuses, taxonomy and notifications
type MetaHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewMetaHandler creates a new MetaHandler
func NewMetaHandler(services *service.Services, log zerolog.Logger) *MetaHandler {
	return &MetaHandler{
		services: services,
		log:      log.With().Str("handler", "meta").Logger(),
	}
}

// Statuses handles GET /v1/statuses
func (h *MetaHandler) Statuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": models.AllStatuses()})
}

// Categories handles GET /v1/categories
func (h *MetaHandler) Categories(c *gin.Context) {
	categories, err := h.services.Taxonomy.Categories(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// Subcategories handles GET /v1/categories/:category_id/subcategories
func (h *MetaHandler) Subcategories(c *gin.Context) {
	categoryID, ok := idParam(c, "category_id")
	if !ok {
		return
	}

	subcategories, err := h.services.Taxonomy.Subcategories(c.Request.Context(), sessionFrom(c), categoryID)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subcategories})
}

// Notifications handles GET /v1/notifications
func (h *MetaHandler) Notifications(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.services.Notifier.Recent(limit)})
}
