package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"focusroom/internal/api/dto"
	"focusroom/internal/core"

	"github.com/gin-gonic/gin"
)

// NavigationHandler answers navigation checks and issues temporary grants
type NavigationHandler struct {
	service core.FocusService
	logger  *slog.Logger
	now     func() time.Time
}

// NewNavigationHandler creates a new navigation handler
func NewNavigationHandler(service core.FocusService, clock core.Clock, logger *slog.Logger) *NavigationHandler {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &NavigationHandler{
		service: service,
		logger:  logger,
		now:     clock.Now,
	}
}

// CheckNavigation decides a single URL. It always answers 200; an internal failure allows.
// POST /v1/navigation/check
func (h *NavigationHandler) CheckNavigation(c *gin.Context) {
	var req dto.CheckNavigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	verdict := h.service.CheckNavigation(c.Request.Context(), req.URL, time.Time{})
	c.JSON(http.StatusOK, dto.FromVerdict(verdict))
}

// GetLastBlocked returns the last blocked navigation of the current session
// GET /v1/navigation/last-blocked
func (h *NavigationHandler) GetLastBlocked(c *gin.Context) {
	reason, err := h.service.GetLastBlocked(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve last blocked navigation", err)
		return
	}
	if reason == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No navigation has been blocked in this session",
			"code":  "NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromBlockingReason(reason))
}

// GrantAccess issues a temporary exception for one site
// POST /v1/access-grants
func (h *NavigationHandler) GrantAccess(c *gin.Context) {
	var req dto.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	grant, err := h.service.GrantTemporaryAccess(c.Request.Context(), req.URL, req.Minutes)
	if err != nil {
		respondError(c, h.logger, "Failed to grant access", err)
		return
	}

	h.logger.Info("Temporary access granted",
		"component", "api",
		"domain", grant.Domain,
		"minutes", grant.Minutes,
		"session_id", grant.SessionID,
	)

	c.JSON(http.StatusCreated, dto.FromGrant(grant, h.now()))
}
