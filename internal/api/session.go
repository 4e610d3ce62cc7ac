package api

import (
	"net/http"
	"strings"

	"github.com/content-dashboard/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session"
	roleHeader = "X-Dashboard-Role"
)

// sessionMiddleware builds the request's Session from the bearer token and
// the role asserted by the upstream auth proxy. A missing role means editor.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := models.Session{Role: models.RoleEditor}

		if auth := c.GetHeader("Authorization"); auth != "" {
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization must be a bearer token"})
				return
			}
			session.Token = strings.TrimSpace(token)
		}

		if role := strings.ToLower(strings.TrimSpace(c.GetHeader(roleHeader))); role != "" {
			if !models.ValidRoles[models.Role(role)] {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "role must be one of: admin, editor, viewer"})
				return
			}
			session.Role = models.Role(role)
		}

		session.DarkMode = c.GetHeader("X-Dashboard-Theme") == "dark"

		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(models.Session); ok {
			return s
		}
	}
	return models.Session{Role: models.RoleViewer}
}
