package core

import (
	"context"
	"time"
)

// FocusService defines the caller-facing contract of the focus core
type FocusService interface {
	StartSession(ctx context.Context, duration time.Duration, goal string) (*SessionSnapshot, error)
	PauseSession(ctx context.Context, pauseMinutes int) error
	ResumeSession(ctx context.Context) error
	StopSession(ctx context.Context) (*SessionSnapshot, error)
	CompleteIfDue(ctx context.Context, now time.Time) (*SessionSnapshot, error)
	GrantTemporaryAccess(ctx context.Context, url string, minutes int) (*AccessGrant, error)
	CheckNavigation(ctx context.Context, url string, now time.Time) Verdict
	GetSnapshot(ctx context.Context) (*SessionSnapshot, error)
	GetLastBlocked(ctx context.Context) (*BlockingReason, error)
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, settings Settings) (Settings, error)
	ReplaceCatalog(ctx context.Context, catalog Catalog) error
	CatalogStats(ctx context.Context) ([]CategoryStats, error)
	ListHistory(ctx context.Context, limit int) ([]*Session, error)
}
