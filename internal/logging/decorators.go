package logging

import (
	"context"
	"log/slog"
	"time"

	"focusroom/internal/core"
)

// FocusServiceLogger wraps a FocusService and logs all method calls
type FocusServiceLogger struct {
	service core.FocusService
	logger  *slog.Logger
}

// NewFocusServiceLogger creates a new logging decorator for FocusService
func NewFocusServiceLogger(service core.FocusService, logger *slog.Logger) core.FocusService {
	return &FocusServiceLogger{
		service: service,
		logger:  logger.With("interface", "FocusService"),
	}
}

// result logs the outcome of a call at Info, or Error when it failed
func (l *FocusServiceLogger) result(method string, start time.Time, err error, attrs ...any) {
	attrs = append(attrs, "duration", time.Since(start))
	if err != nil {
		l.logger.Error(method+" failed", append(attrs, "error", err)...)
		return
	}
	l.logger.Info(method+" completed", attrs...)
}

func (l *FocusServiceLogger) StartSession(ctx context.Context, duration time.Duration, goal string) (*core.SessionSnapshot, error) {
	start := time.Now()
	l.logger.Info("StartSession called",
		"duration", duration,
		"goal", goal)

	snap, err := l.service.StartSession(ctx, duration, goal)
	if err != nil {
		l.result("StartSession", start, err, "planned_duration", duration)
		return nil, err
	}

	l.result("StartSession", start, nil,
		"session_id", snap.ID,
		"end_time", snap.EndTime)
	return snap, nil
}

func (l *FocusServiceLogger) PauseSession(ctx context.Context, pauseMinutes int) error {
	start := time.Now()
	l.logger.Info("PauseSession called", "pause_minutes", pauseMinutes)

	err := l.service.PauseSession(ctx, pauseMinutes)
	l.result("PauseSession", start, err, "pause_minutes", pauseMinutes)
	return err
}

func (l *FocusServiceLogger) ResumeSession(ctx context.Context) error {
	start := time.Now()
	l.logger.Info("ResumeSession called")

	err := l.service.ResumeSession(ctx)
	l.result("ResumeSession", start, err)
	return err
}

func (l *FocusServiceLogger) StopSession(ctx context.Context) (*core.SessionSnapshot, error) {
	start := time.Now()
	l.logger.Info("StopSession called")

	snap, err := l.service.StopSession(ctx)
	if err != nil {
		l.result("StopSession", start, err)
		return nil, err
	}

	l.result("StopSession", start, nil,
		"session_id", snap.ID,
		"active_elapsed", snap.ActiveElapsed)
	return snap, nil
}

func (l *FocusServiceLogger) CompleteIfDue(ctx context.Context, now time.Time) (*core.SessionSnapshot, error) {
	snap, err := l.service.CompleteIfDue(ctx, now)
	if err != nil {
		l.logger.Error("CompleteIfDue failed", "error", err)
		return nil, err
	}
	if snap != nil {
		l.logger.Info("CompleteIfDue completed session", "session_id", snap.ID)
	}
	return snap, nil
}

func (l *FocusServiceLogger) GrantTemporaryAccess(ctx context.Context, url string, minutes int) (*core.AccessGrant, error) {
	start := time.Now()
	l.logger.Info("GrantTemporaryAccess called",
		"url", url,
		"minutes", minutes)

	grant, err := l.service.GrantTemporaryAccess(ctx, url, minutes)
	if err != nil {
		l.result("GrantTemporaryAccess", start, err, "url", url, "minutes", minutes)
		return nil, err
	}

	l.result("GrantTemporaryAccess", start, nil,
		"domain", grant.Domain,
		"session_id", grant.SessionID,
		"end_time", grant.EndTime)
	return grant, nil
}

// CheckNavigation is called for every page load, so only the outcome is logged and only at Debug
func (l *FocusServiceLogger) CheckNavigation(ctx context.Context, url string, now time.Time) core.Verdict {
	verdict := l.service.CheckNavigation(ctx, url, now)
	l.logger.Debug("CheckNavigation",
		"url", url,
		"blocked", verdict.Blocked,
		"reason", verdict.Reason)
	return verdict
}

func (l *FocusServiceLogger) GetSnapshot(ctx context.Context) (*core.SessionSnapshot, error) {
	snap, err := l.service.GetSnapshot(ctx)
	if err != nil {
		l.logger.Error("GetSnapshot failed", "error", err)
	}
	return snap, err
}

func (l *FocusServiceLogger) GetLastBlocked(ctx context.Context) (*core.BlockingReason, error) {
	reason, err := l.service.GetLastBlocked(ctx)
	if err != nil {
		l.logger.Error("GetLastBlocked failed", "error", err)
	}
	return reason, err
}

func (l *FocusServiceLogger) GetSettings(ctx context.Context) (core.Settings, error) {
	settings, err := l.service.GetSettings(ctx)
	if err != nil {
		l.logger.Error("GetSettings failed", "error", err)
	}
	return settings, err
}

func (l *FocusServiceLogger) UpdateSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	start := time.Now()
	l.logger.Info("UpdateSettings called",
		"custom_domains", len(settings.CustomDomains),
		"custom_keywords", len(settings.CustomKeywords))

	updated, err := l.service.UpdateSettings(ctx, settings)
	l.result("UpdateSettings", start, err)
	return updated, err
}

func (l *FocusServiceLogger) ReplaceCatalog(ctx context.Context, catalog core.Catalog) error {
	start := time.Now()
	l.logger.Info("ReplaceCatalog called", "categories", len(catalog))

	err := l.service.ReplaceCatalog(ctx, catalog)
	l.result("ReplaceCatalog", start, err, "categories", len(catalog))
	return err
}

func (l *FocusServiceLogger) CatalogStats(ctx context.Context) ([]core.CategoryStats, error) {
	stats, err := l.service.CatalogStats(ctx)
	if err != nil {
		l.logger.Error("CatalogStats failed", "error", err)
	}
	return stats, err
}

func (l *FocusServiceLogger) ListHistory(ctx context.Context, limit int) ([]*core.Session, error) {
	history, err := l.service.ListHistory(ctx, limit)
	if err != nil {
		l.logger.Error("ListHistory failed", "limit", limit, "error", err)
	}
	return history, err
}
