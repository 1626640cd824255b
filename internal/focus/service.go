package focus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"focusroom/internal/core"
	"focusroom/internal/storage"
)

// ErrStopped is returned by calls made after the service loop has exited
var ErrStopped = errors.New("focus service stopped")

// Service owns the session, the grant and the policy. Every call, timer expiry and
// configuration change is a message on one queue, handled one at a time by Run.
type Service struct {
	clock  core.Clock
	store  *storage.WriteBehind
	logger *slog.Logger

	grants   *core.AccessGrantStore
	sessions *core.SessionManager
	gate     *core.NavigationGate
	deadline *deadlineTimer

	catalog      core.Catalog
	settings     core.Settings
	history      []*core.Session
	historyLimit int

	queue   chan func()
	stopped chan struct{}
}

// New builds the service and restores persisted state. Persistence failures are logged and
// the service starts from a clean state.
func New(ctx context.Context, opts Options) (*Service, error) {
	opts = opts.withDefaults()

	s := &Service{
		clock:        opts.Clock,
		store:        opts.Store,
		logger:       opts.Logger.With("component", "focus_service"),
		catalog:      opts.Catalog,
		historyLimit: opts.HistoryLimit,
		queue:        make(chan func(), opts.QueueSize),
		stopped:      make(chan struct{}),
	}
	s.deadline = &deadlineTimer{clock: opts.Clock, post: s.postDeadline}
	s.grants = core.NewAccessGrantStore()
	s.sessions = core.NewSessionManager(core.SessionManagerConfig{
		Grants:     s.grants,
		Deadline:   s.deadline,
		Sink:       opts.Sink,
		NewID:      opts.NewID,
		Milestones: opts.Milestones,
		Logger:     opts.Logger,
	})

	s.settings = core.DefaultSettings()
	if opts.Settings != nil {
		s.settings = opts.Settings.Normalized()
	}
	s.restoreSettings(ctx)

	s.gate = core.NewNavigationGate(core.GateConfig{
		Sessions:        s.sessions,
		Grants:          s.grants,
		Policy:          core.NewPolicyStore(s.catalog, s.settings),
		Sink:            opts.Sink,
		MaxGrantMinutes: opts.MaxGrantMinutes,
		Logger:          opts.Logger,
	})

	s.restoreHistory(ctx)
	s.restoreSession(ctx)

	return s, nil
}

// Run processes the queue until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("focus service started")
	defer func() {
		close(s.stopped)
		s.deadline.Cancel()
		s.logger.Info("focus service stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-s.queue:
			job()
		}
	}
}

// do runs f on the service loop and waits for it
func (s *Service) do(ctx context.Context, f func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		f()
	}

	select {
	case s.queue <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		// the job may have run just before the loop exited
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	}
}

// postDeadline is called from the timer goroutine
func (s *Service) postDeadline(sessionID string) {
	select {
	case s.queue <- func() { s.onDeadline(sessionID) }:
	case <-s.stopped:
	}
}

func (s *Service) onDeadline(sessionID string) {
	current := s.sessions.Current()
	if current == nil || current.ID != sessionID {
		s.logger.Debug("stale completion timer ignored", "session_id", sessionID)
		return
	}
	now := s.clock.Now()
	if snap := s.sessions.CompletionTick(context.Background(), now); snap != nil {
		s.finished(snap)
		return
	}
	// fired early or while paused; a paused session is rescheduled on resume
	if current.IsActive && !current.IsPaused {
		s.deadline.Schedule(current.ID, current.EndTime)
	}
}

// StartSession begins a focus session of the given length
func (s *Service) StartSession(ctx context.Context, duration time.Duration, goal string) (*core.SessionSnapshot, error) {
	var snap *core.SessionSnapshot
	var err error
	if doErr := s.do(ctx, func() {
		snap, err = s.sessions.Start(ctx, s.clock.Now(), duration, goal)
		if err != nil {
			return
		}
		s.gate.ResetLastBlocked()
		s.persistSession()
		s.persistGrant()
	}); doErr != nil {
		return nil, doErr
	}
	return snap, err
}

// PauseSession suspends the countdown. pauseMinutes is informational; 0 means the default.
func (s *Service) PauseSession(ctx context.Context, pauseMinutes int) error {
	var err error
	if doErr := s.do(ctx, func() {
		if err = s.sessions.Pause(ctx, s.clock.Now(), pauseMinutes); err == nil {
			s.persistSession()
		}
	}); doErr != nil {
		return doErr
	}
	return err
}

// ResumeSession restarts the countdown with the deadline pushed back
func (s *Service) ResumeSession(ctx context.Context) error {
	var err error
	if doErr := s.do(ctx, func() {
		if err = s.sessions.Resume(ctx, s.clock.Now()); err == nil {
			s.persistSession()
		}
	}); doErr != nil {
		return doErr
	}
	return err
}

// StopSession ends the session early
func (s *Service) StopSession(ctx context.Context) (*core.SessionSnapshot, error) {
	var snap *core.SessionSnapshot
	var err error
	if doErr := s.do(ctx, func() {
		if snap, err = s.sessions.Stop(ctx, s.clock.Now()); err == nil {
			s.finished(snap)
		}
	}); doErr != nil {
		return nil, doErr
	}
	return snap, err
}

// CompleteIfDue completes the session when its deadline has passed. It returns nil when
// nothing was due. A zero now means the service clock.
func (s *Service) CompleteIfDue(ctx context.Context, now time.Time) (*core.SessionSnapshot, error) {
	var snap *core.SessionSnapshot
	err := s.do(ctx, func() {
		snap = s.completeIfDue(ctx, s.at(now))
	})
	return snap, err
}

func (s *Service) completeIfDue(ctx context.Context, now time.Time) *core.SessionSnapshot {
	snap := s.sessions.CompletionTick(ctx, now)
	if snap != nil {
		s.finished(snap)
	}
	return snap
}

// Tick is the safety-net check run by the scheduler: completion and progress milestones
func (s *Service) Tick(ctx context.Context, now time.Time) error {
	return s.do(ctx, func() {
		now := s.at(now)
		if s.completeIfDue(ctx, now) != nil {
			return
		}
		if reached := s.sessions.CheckMilestones(ctx, now); len(reached) > 0 {
			s.persistSession()
		}
	})
}

// GrantTemporaryAccess issues a temporary exception for url in the current session
func (s *Service) GrantTemporaryAccess(ctx context.Context, url string, minutes int) (*core.AccessGrant, error) {
	var grant *core.AccessGrant
	var err error
	if doErr := s.do(ctx, func() {
		grant, err = s.gate.Grant(ctx, url, minutes, s.clock.Now())
		if err != nil {
			return
		}
		s.persistGrant()
		s.persistSession()
	}); doErr != nil {
		return nil, doErr
	}
	return grant, err
}

// CheckNavigation decides one navigation attempt. It never fails: if the service cannot
// answer, the navigation is allowed.
func (s *Service) CheckNavigation(ctx context.Context, url string, now time.Time) core.Verdict {
	var verdict core.Verdict
	err := s.do(ctx, func() {
		hadGrant := s.grants.Current() != nil
		verdict = s.gate.Decide(ctx, url, s.at(now))
		if hadGrant && s.grants.Current() == nil {
			s.persistGrant()
		}
		if verdict.Blocked {
			s.persistSession()
		}
	})
	if err != nil {
		s.logger.Warn("navigation check unavailable, allowing", "url", url, "error", err)
		return core.Allow("unavailable", err.Error())
	}
	return verdict
}

// GetSnapshot returns the current session, or nil when idle
func (s *Service) GetSnapshot(ctx context.Context) (*core.SessionSnapshot, error) {
	var snap *core.SessionSnapshot
	err := s.do(ctx, func() {
		snap = s.sessions.Snapshot(s.clock.Now())
	})
	return snap, err
}

// GetLastBlocked returns the most recent blocking reason of the current session
func (s *Service) GetLastBlocked(ctx context.Context) (*core.BlockingReason, error) {
	var reason *core.BlockingReason
	err := s.do(ctx, func() {
		reason = s.gate.LastBlocked()
	})
	return reason, err
}

// GetSettings returns the settings in effect
func (s *Service) GetSettings(ctx context.Context) (core.Settings, error) {
	var settings core.Settings
	err := s.do(ctx, func() {
		settings = s.settings.Clone()
	})
	return settings, err
}

// UpdateSettings replaces the settings. The next navigation check uses them.
func (s *Service) UpdateSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	var applied core.Settings
	err := s.do(ctx, func() {
		s.settings = settings.Normalized()
		s.gate.SetPolicy(core.NewPolicyStore(s.catalog, s.settings))
		applied = s.settings.Clone()
		if s.store != nil {
			s.store.SaveSettings(applied)
		}
		s.logger.Info("settings updated",
			"custom_domains", len(applied.CustomDomains),
			"custom_keywords", len(applied.CustomKeywords))
	})
	return applied, err
}

// ReplaceCatalog swaps the static category rules
func (s *Service) ReplaceCatalog(ctx context.Context, catalog core.Catalog) error {
	return s.do(ctx, func() {
		s.catalog = catalog
		s.gate.SetPolicy(core.NewPolicyStore(s.catalog, s.settings))
		s.logger.Info("catalog replaced", "categories", len(catalog))
	})
}

// CatalogStats reports rule counts per category
func (s *Service) CatalogStats(ctx context.Context) ([]core.CategoryStats, error) {
	var stats []core.CategoryStats
	err := s.do(ctx, func() {
		stats = s.gate.Policy().Stats()
	})
	return stats, err
}

// ListHistory returns finished sessions, newest first. limit <= 0 returns all.
func (s *Service) ListHistory(ctx context.Context, limit int) ([]*core.Session, error) {
	var out []*core.Session
	err := s.do(ctx, func() {
		n := len(s.history)
		if limit > 0 && limit < n {
			n = limit
		}
		out = make([]*core.Session, 0, n)
		for _, session := range s.history[:n] {
			out = append(out, session.Clone())
		}
	})
	return out, err
}

// finished records a completed or stopped session
func (s *Service) finished(snap *core.SessionSnapshot) {
	s.gate.ResetLastBlocked()
	s.appendHistory(&snap.Session)
	if s.store != nil {
		s.store.AppendSessionHistory(&snap.Session, s.historyLimit)
	}
	s.persistSession()
	s.persistGrant()

	s.logger.Info("session finished",
		"session_id", snap.ID,
		"state", snap.State,
		"blocked_attempts", snap.BlockedAttempts,
		"override_count", snap.OverrideCount)
}

func (s *Service) appendHistory(session *core.Session) {
	history := make([]*core.Session, 0, len(s.history)+1)
	history = append(history, session.Clone())
	for _, h := range s.history {
		if h.ID != session.ID {
			history = append(history, h)
		}
	}
	if len(history) > s.historyLimit {
		history = history[:s.historyLimit]
	}
	s.history = history
}

func (s *Service) persistSession() {
	if s.store == nil {
		return
	}
	if current := s.sessions.Current(); current != nil {
		s.store.SaveCurrentSession(current)
	} else {
		s.store.DeleteCurrentSession()
	}
}

func (s *Service) persistGrant() {
	if s.store == nil {
		return
	}
	if grant := s.grants.Current(); grant != nil {
		s.store.SaveAccessGrant(grant)
	} else {
		s.store.DeleteAccessGrant()
	}
}

func (s *Service) at(now time.Time) time.Time {
	if now.IsZero() {
		return s.clock.Now()
	}
	return now
}

var _ core.FocusService = (*Service)(nil)
