package api

import (
	"net/http"
	"time"

	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = maxFormMemory

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log, m))
	router.Use(corsMiddleware())

	// Handlers
	contentHandler := NewContentHandler(services, log)
	uploadHandler := NewUploadHandler(services, log)
	metaHandler := NewMetaHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(cfg))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// API v1
	v1 := router.Group("/v1", sessionMiddleware())
	{
		v1.GET("/statuses", metaHandler.Statuses)
		v1.GET("/notifications", metaHandler.Notifications)

		categories := v1.Group("/categories")
		{
			categories.GET("", metaHandler.Categories)
			categories.GET("/:category_id/subcategories", metaHandler.Subcategories)

			listing := categories.Group("/:category_id/subcategories/:subcategory_id/contents")
			listing.GET("", contentHandler.ListContents)
			listing.POST("/refresh", contentHandler.RefreshContents)
			listing.GET("/:id/form", contentHandler.EditForm)
		}

		contents := v1.Group("/contents")
		{
			contents.POST("", contentHandler.CreateContent)
			contents.PUT("/:id", contentHandler.UpdateContent)
			contents.POST("/:id", contentHandler.OverrideUpdate)
			contents.POST("/:id/status", contentHandler.ChangeStatus)
			contents.POST("/:id/deletion", contentHandler.RequestDeletion)
		}

		deletions := v1.Group("/deletions")
		{
			deletions.POST("/:token/confirm", contentHandler.ConfirmDeletion)
			deletions.DELETE("/:token", contentHandler.CancelDeletion)
		}

		uploads := v1.Group("/uploads")
		{
			uploads.POST("", uploadHandler.StageUpload)
			uploads.DELETE("/:id", uploadHandler.ReleaseUpload)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"timestamp":   time.Now().Format(time.RFC3339),
			"service":     "content-dashboard",
			"content_api": cfg.ContentAPI.BaseURL,
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests and records them in the metrics
func loggingMiddleware(log zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, statusCode, duration)

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Dashboard-Role, X-Dashboard-Theme")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
