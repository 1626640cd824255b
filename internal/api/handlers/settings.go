package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"focusroom/internal/api/dto"
	"focusroom/internal/core"

	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes the user settings, catalog statistics and history
type SettingsHandler struct {
	service core.FocusService
	logger  *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(service core.FocusService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger,
	}
}

// GetSettings returns the settings in effect
// GET /v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve settings", err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings replaces the settings
// PUT /v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req core.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	applied, err := h.service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "Failed to update settings", err)
		return
	}

	c.JSON(http.StatusOK, applied)
}

// GetCatalogStats returns rule counts per category
// GET /v1/catalog/stats
func (h *SettingsHandler) GetCatalogStats(c *gin.Context) {
	stats, err := h.service.CatalogStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve catalog stats", err)
		return
	}
	if stats == nil {
		stats = []core.CategoryStats{}
	}

	c.JSON(http.StatusOK, stats)
}

// ListHistory returns finished sessions, newest first
// GET /v1/history?limit=
func (h *SettingsHandler) ListHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a non-negative integer",
				"code":  "INVALID_LIMIT",
			})
			return
		}
		limit = n
	}

	history, err := h.service.ListHistory(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve history", err)
		return
	}

	response := make([]dto.Session, 0, len(history))
	for _, session := range history {
		response = append(response, dto.FromSession(session))
	}

	c.JSON(http.StatusOK, response)
}
