package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"focusroom/internal/core"
)

// LogSink writes every lifecycle event as a structured log record
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink logging at the given level
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	return &LogSink{
		logger: logger.With("component", "events"),
		level:  level,
	}
}

// Emit implements core.EventSink
func (s *LogSink) Emit(ctx context.Context, event core.Event) error {
	s.logger.Log(ctx, s.level, "focus event",
		"event", event.Type,
		"session_id", event.SessionID,
		"at", event.At,
		"data", event.Data)
	return nil
}

// MultiSink fans an event out to several sinks. Every sink is called even when an
// earlier one fails; the failures are joined.
type MultiSink []core.EventSink

// Emit implements core.EventSink
func (m MultiSink) Emit(ctx context.Context, event core.Event) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps emitted events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements core.EventSink
func (r *Recorder) Emit(_ context.Context, event core.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Event(nil), r.events...)
}

// OfType returns the recorded events of one type, in emission order
func (r *Recorder) OfType(t core.EventType) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Types returns the sequence of recorded event types
func (r *Recorder) Types() []core.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// Reset forgets all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var (
	_ core.EventSink = (*LogSink)(nil)
	_ core.EventSink = MultiSink(nil)
	_ core.EventSink = (*Recorder)(nil)
)
