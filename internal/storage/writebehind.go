package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"focusroom/internal/core"
)

// ErrClosed is returned by reads issued after Close
var ErrClosed = errors.New("write-behind queue closed")

// WriteBehindConfig tunes the persistence queue
type WriteBehindConfig struct {
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

func (c WriteBehindConfig) normalized() WriteBehindConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}

type op struct {
	name  string
	run   func(ctx context.Context) error
	write bool
	done  chan error
}

// WriteBehind applies storage writes asynchronously, in submission order, on a single
// worker. Writes never block the caller: a full queue drops the write and logs it. Reads
// travel through the same queue so they observe every earlier write.
type WriteBehind struct {
	store  Storage
	cfg    WriteBehindConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	ops    chan op
	done   chan struct{}

	failures atomic.Int64
	dropped  atomic.Int64
}

// NewWriteBehind starts the worker over store
func NewWriteBehind(store Storage, cfg WriteBehindConfig, logger *slog.Logger) *WriteBehind {
	cfg = cfg.normalized()
	w := &WriteBehind{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "write_behind"),
		ops:    make(chan op, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *WriteBehind) loop() {
	defer close(w.done)
	for o := range w.ops {
		err := w.apply(o)
		if o.done != nil {
			o.done <- err
		}
	}
}

func (w *WriteBehind) apply(o op) error {
	ctx := context.Background()
	if !o.write {
		return o.run(ctx)
	}

	var err error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err = o.run(ctx); err == nil {
			return nil
		}
		if attempt < w.cfg.MaxAttempts {
			time.Sleep(w.cfg.RetryBackoff * time.Duration(attempt))
		}
	}
	w.failures.Add(1)
	err = fmt.Errorf("%w: %s: %v", core.ErrPersistence, o.name, err)
	w.logger.Warn("persistence write failed",
		"op", o.name,
		"attempts", w.cfg.MaxAttempts,
		"error", err)
	return err
}

// enqueue submits a write without blocking
func (w *WriteBehind) enqueue(name string, run func(ctx context.Context) error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		w.logger.Warn("persistence write after close dropped", "op", name)
		return
	}
	select {
	case w.ops <- op{name: name, run: run, write: true}:
	default:
		w.dropped.Add(1)
		w.logger.Error("persistence queue full, write dropped", "op", name)
	}
}

// call submits an operation and waits for its result
func (w *WriteBehind) call(ctx context.Context, name string, write bool, run func(ctx context.Context) error) error {
	done := make(chan error, 1)
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrClosed
	}
	select {
	case w.ops <- op{name: name, run: run, write: write, done: done}:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveCurrentSession queues a copy of the session
func (w *WriteBehind) SaveCurrentSession(session *core.Session) {
	s := session.Clone()
	w.enqueue("save_current_session", func(ctx context.Context) error {
		return w.store.SaveCurrentSession(ctx, s)
	})
}

// DeleteCurrentSession queues removal of the current session
func (w *WriteBehind) DeleteCurrentSession() {
	w.enqueue("delete_current_session", w.store.DeleteCurrentSession)
}

// SaveAccessGrant queues a copy of the grant
func (w *WriteBehind) SaveAccessGrant(grant *core.AccessGrant) {
	g := grant.Clone()
	w.enqueue("save_access_grant", func(ctx context.Context) error {
		return w.store.SaveAccessGrant(ctx, g)
	})
}

// DeleteAccessGrant queues removal of the grant
func (w *WriteBehind) DeleteAccessGrant() {
	w.enqueue("delete_access_grant", w.store.DeleteAccessGrant)
}

// AppendSessionHistory queues a history entry
func (w *WriteBehind) AppendSessionHistory(session *core.Session, limit int) {
	s := session.Clone()
	w.enqueue("append_session_history", func(ctx context.Context) error {
		return w.store.AppendSessionHistory(ctx, s, limit)
	})
}

// SaveSettings queues a copy of the settings
func (w *WriteBehind) SaveSettings(settings core.Settings) {
	s := settings.Clone()
	w.enqueue("save_settings", func(ctx context.Context) error {
		return w.store.SaveSettings(ctx, s)
	})
}

// LoadCurrentSession reads the stored session after all queued writes
func (w *WriteBehind) LoadCurrentSession(ctx context.Context) (*core.Session, error) {
	var out *core.Session
	err := w.call(ctx, "load_current_session", false, func(ctx context.Context) error {
		var err error
		out, err = w.store.LoadCurrentSession(ctx)
		return err
	})
	return out, err
}

// LoadAccessGrant reads the stored grant after all queued writes
func (w *WriteBehind) LoadAccessGrant(ctx context.Context) (*core.AccessGrant, error) {
	var out *core.AccessGrant
	err := w.call(ctx, "load_access_grant", false, func(ctx context.Context) error {
		var err error
		out, err = w.store.LoadAccessGrant(ctx)
		return err
	})
	return out, err
}

// LoadSettings reads the stored settings after all queued writes
func (w *WriteBehind) LoadSettings(ctx context.Context) (*core.Settings, error) {
	var out *core.Settings
	err := w.call(ctx, "load_settings", false, func(ctx context.Context) error {
		var err error
		out, err = w.store.LoadSettings(ctx)
		return err
	})
	return out, err
}

// ListSessionHistory reads the history after all queued writes
func (w *WriteBehind) ListSessionHistory(ctx context.Context, limit int) ([]*core.Session, error) {
	var out []*core.Session
	err := w.call(ctx, "list_session_history", false, func(ctx context.Context) error {
		var err error
		out, err = w.store.ListSessionHistory(ctx, limit)
		return err
	})
	return out, err
}

// Flush waits until every write queued before it has been applied
func (w *WriteBehind) Flush(ctx context.Context) error {
	return w.call(ctx, "flush", false, func(context.Context) error { return nil })
}

// Failures returns how many writes were given up after retries
func (w *WriteBehind) Failures() int64 {
	return w.failures.Load()
}

// Dropped returns how many writes were discarded without being attempted
func (w *WriteBehind) Dropped() int64 {
	return w.dropped.Load()
}

// Close drains the queue, stops the worker and closes the underlying store
func (w *WriteBehind) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ops)
	w.mu.Unlock()

	<-w.done
	return w.store.Close()
}
