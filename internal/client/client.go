// Package client talks to the focusroom HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"focusroom/internal/api/dto"
	"focusroom/internal/core"
)

// APIKeyHeader carries the shared secret expected by /v1 routes
const APIKeyHeader = "X-Focusroom-Key"

// Client is a client for the focusroom REST API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a new API client
func New(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// APIError represents an API error response
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error %d: %s (%s)", e.Status, e.Message, e.Code)
}

// Unwrap lets callers match the server's error family with errors.Is
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "INVALID_INPUT", "INVALID_REQUEST", "INVALID_LIMIT":
		return core.ErrInvalidInput
	case "INVALID_TRANSITION":
		return core.ErrInvalidTransition
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Health checks that the daemon is reachable
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartSession starts a focus session
func (c *Client) StartSession(ctx context.Context, minutes int, goal string) (*dto.Session, error) {
	var session dto.Session
	req := dto.StartSessionRequest{DurationMinutes: minutes, Goal: goal}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/session", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession returns the current session; State is "idle" when there is none
func (c *Client) GetSession(ctx context.Context) (*dto.Session, error) {
	var session dto.Session
	if err := c.doRequest(ctx, http.MethodGet, "/v1/session", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// PauseSession pauses the running session
func (c *Client) PauseSession(ctx context.Context, pauseMinutes int) (*dto.Session, error) {
	var session dto.Session
	req := dto.PauseSessionRequest{PauseMinutes: pauseMinutes}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/session/pause", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResumeSession resumes a paused session
func (c *Client) ResumeSession(ctx context.Context) (*dto.Session, error) {
	var session dto.Session
	if err := c.doRequest(ctx, http.MethodPost, "/v1/session/resume", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// StopSession ends the session early
func (c *Client) StopSession(ctx context.Context) (*dto.Session, error) {
	var session dto.Session
	if err := c.doRequest(ctx, http.MethodPost, "/v1/session/stop", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CompleteSession asks the daemon to complete the session if it is due
func (c *Client) CompleteSession(ctx context.Context) (*dto.CompleteResponse, error) {
	var resp dto.CompleteResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/session/complete", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckNavigation asks whether url would be blocked right now
func (c *Client) CheckNavigation(ctx context.Context, rawURL string) (*dto.Verdict, error) {
	var verdict dto.Verdict
	req := dto.CheckNavigationRequest{URL: rawURL}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/navigation/check", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// LastBlocked returns the last blocked navigation, or nil when nothing was blocked
func (c *Client) LastBlocked(ctx context.Context) (*dto.BlockingReason, error) {
	var reason dto.BlockingReason
	if err := c.doRequest(ctx, http.MethodGet, "/v1/navigation/last-blocked", nil, &reason); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &reason, nil
}

// GrantAccess issues a temporary exception for a site
func (c *Client) GrantAccess(ctx context.Context, rawURL string, minutes int) (*dto.Grant, error) {
	var grant dto.Grant
	req := dto.GrantRequest{URL: rawURL, Minutes: minutes}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/access-grants", req, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// GetSettings retrieves the settings in effect
func (c *Client) GetSettings(ctx context.Context) (*core.Settings, error) {
	var settings core.Settings
	if err := c.doRequest(ctx, http.MethodGet, "/v1/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings replaces the settings
func (c *Client) UpdateSettings(ctx context.Context, settings core.Settings) (*core.Settings, error) {
	var applied core.Settings
	if err := c.doRequest(ctx, http.MethodPut, "/v1/settings", settings, &applied); err != nil {
		return nil, err
	}
	return &applied, nil
}

// CatalogStats retrieves rule counts per category
func (c *Client) CatalogStats(ctx context.Context) ([]core.CategoryStats, error) {
	var stats []core.CategoryStats
	if err := c.doRequest(ctx, http.MethodGet, "/v1/catalog/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// ListHistory retrieves finished sessions, newest first. limit <= 0 returns all.
func (c *Client) ListHistory(ctx context.Context, limit int) ([]dto.Session, error) {
	path := "/v1/history"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var history []dto.Session
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// doRequest performs an HTTP request to the focusroom API
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(APIKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("API request",
		"method", method,
		"url", endpoint,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
