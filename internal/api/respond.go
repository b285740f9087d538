package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"habitflow/internal/apperr"
)

// respondError maps the error taxonomy to HTTP statuses with user-safe
// messages. Internals never leak to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperr.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to work with, add a habit first"})
	case errors.Is(err, apperr.ErrConfiguration):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not configured"})
	case errors.Is(err, apperr.ErrSchema):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream returned an invalid response"})
	case errors.Is(err, apperr.ErrTransport):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func userID(c *gin.Context) (int, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
