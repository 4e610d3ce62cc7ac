package api

import (
	"errors"
	"net/http"

	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/service"
	"github.com/content-dashboard/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const fallbackMessage = "Something went wrong"

// errorStatus maps service and client errors to an HTTP status and the
// message shown to the dashboard user.
func errorStatus(err error) (int, string) {
	var formErr *validation.FormError
	var appErr *client.ApplicationError
	var transportErr *client.TransportError

	switch {
	case errors.As(err, &formErr):
		return http.StatusUnprocessableEntity, "validation failed"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrDeletionNotFound),
		errors.Is(err, service.ErrUploadNotFound),
		errors.Is(err, service.ErrContentNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, validation.ErrUnsupportedImage),
		errors.Is(err, validation.ErrImageTooLarge):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &appErr):
		return http.StatusUnprocessableEntity, client.UserMessage(err, fallbackMessage)
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, client.UserMessage(err, fallbackMessage)
	}
	return http.StatusInternalServerError, fallbackMessage
}

// respondError writes err in the {"error": ...} shape. Form errors carry the
// per-field list as well.
func respondError(c *gin.Context, log zerolog.Logger, err error, extra gin.H) {
	code, message := errorStatus(err)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	body := gin.H{"error": message}
	var formErr *validation.FormError
	if errors.As(err, &formErr) {
		body["errors"] = formErr.Errors
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}
