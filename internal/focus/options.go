package focus

import (
	"log/slog"

	"focusroom/internal/core"
	"focusroom/internal/idgen"
	"focusroom/internal/storage"
)

// Options configures a Service
type Options struct {
	Clock  core.Clock
	Store  *storage.WriteBehind // nil disables persistence
	Sink   core.EventSink
	Logger *slog.Logger

	Catalog  core.Catalog
	Settings *core.Settings // used when nothing was persisted; nil means defaults

	MaxGrantMinutes int
	HistoryLimit    int
	Milestones      []int // empty disables milestone events
	QueueSize       int
	NewID           func() string
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = core.RealClock{}
	}
	if o.Sink == nil {
		o.Sink = core.NopSink{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = storage.DefaultHistoryLimit
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.NewID == nil {
		o.NewID = idgen.NewSession
	}
	return o
}
