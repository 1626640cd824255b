package storage

import (
	"context"

	"focusroom/internal/core"
)

// DefaultHistoryLimit caps the stored session history
const DefaultHistoryLimit = 100

// Storage defines the interface for data persistence.
// Load methods return nil without error when nothing was stored.
type Storage interface {
	// Current session
	SaveCurrentSession(ctx context.Context, session *core.Session) error
	LoadCurrentSession(ctx context.Context) (*core.Session, error)
	DeleteCurrentSession(ctx context.Context) error

	// Temporary access
	SaveAccessGrant(ctx context.Context, grant *core.AccessGrant) error
	LoadAccessGrant(ctx context.Context) (*core.AccessGrant, error)
	DeleteAccessGrant(ctx context.Context) error

	// Session history, newest first
	AppendSessionHistory(ctx context.Context, session *core.Session, limit int) error
	ListSessionHistory(ctx context.Context, limit int) ([]*core.Session, error)

	// Settings
	SaveSettings(ctx context.Context, settings core.Settings) error
	LoadSettings(ctx context.Context) (*core.Settings, error)

	// Lifecycle
	Close() error
}
