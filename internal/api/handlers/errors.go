package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"focusroom/internal/api/middleware"
	"focusroom/internal/core"

	"github.com/gin-gonic/gin"
)

// respondError maps core error families onto HTTP status codes
func respondError(c *gin.Context, logger *slog.Logger, message string, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "INVALID_INPUT",
		})
	case errors.Is(err, core.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"code":  "INVALID_TRANSITION",
		})
	default:
		logger.Error(message,
			"component", "api",
			"request_id", c.GetString(middleware.RequestIDKey),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": message,
			"code":  "INTERNAL_ERROR",
		})
	}
	_ = c.Error(err)
}

// invalidRequest reports a body or query that could not be bound
func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"code":    "INVALID_REQUEST",
		"details": err.Error(),
	})
}
