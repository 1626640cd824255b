package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"focusroom/internal/api/dto"
	"focusroom/internal/core"

	"github.com/gin-gonic/gin"
)

// SessionHandler drives the focus session lifecycle
type SessionHandler struct {
	service core.FocusService
	logger  *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service core.FocusService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// StartSession starts a focus session
// POST /v1/session
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	snap, err := h.service.StartSession(c.Request.Context(), time.Duration(req.DurationMinutes)*time.Minute, req.Goal)
	if err != nil {
		respondError(c, h.logger, "Failed to start session", err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromSnapshot(snap))
}

// GetSession returns the current session, or the idle state
// GET /v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	snap, err := h.service.GetSnapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve session", err)
		return
	}

	c.JSON(http.StatusOK, dto.FromSnapshot(snap))
}

// PauseSession pauses the running session. The body is optional.
// POST /v1/session/pause
func (h *SessionHandler) PauseSession(c *gin.Context) {
	req := dto.PauseSessionRequest{PauseMinutes: core.DefaultPauseMinutes}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		invalidRequest(c, err)
		return
	}

	if err := h.service.PauseSession(c.Request.Context(), req.PauseMinutes); err != nil {
		respondError(c, h.logger, "Failed to pause session", err)
		return
	}

	h.GetSession(c)
}

// ResumeSession resumes a paused session
// POST /v1/session/resume
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	if err := h.service.ResumeSession(c.Request.Context()); err != nil {
		respondError(c, h.logger, "Failed to resume session", err)
		return
	}

	h.GetSession(c)
}

// StopSession ends the session early
// POST /v1/session/stop
func (h *SessionHandler) StopSession(c *gin.Context) {
	snap, err := h.service.StopSession(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to stop session", err)
		return
	}

	c.JSON(http.StatusOK, dto.FromSnapshot(snap))
}

// CompleteSession completes the session if its deadline has passed
// POST /v1/session/complete
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	snap, err := h.service.CompleteIfDue(c.Request.Context(), time.Time{})
	if err != nil {
		respondError(c, h.logger, "Failed to complete session", err)
		return
	}

	resp := dto.CompleteResponse{Completed: snap != nil}
	if snap != nil {
		s := dto.FromSnapshot(snap)
		resp.Session = &s
	}
	c.JSON(http.StatusOK, resp)
}
