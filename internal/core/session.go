package core

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// DefaultPauseMinutes is reported in pause_chosen when the caller gives no pause length
const DefaultPauseMinutes = 5

// DefaultMilestones are the progress percentages announced during a session
var DefaultMilestones = []int{25, 50, 75}

// DeadlineScheduler arms the single deferred completion check of the current session
type DeadlineScheduler interface {
	Schedule(sessionID string, at time.Time)
	Cancel()
}

// SessionManager is the focus session state machine:
// Idle -> Active -> {Paused <-> Active} -> {Completed | Stopped} -> Idle.
// It is not safe for concurrent use; one owner serialises every call.
type SessionManager struct {
	current    *Session
	grants     *AccessGrantStore
	deadline   DeadlineScheduler
	sink       EventSink
	newID      func() string
	milestones []int
	logger     *slog.Logger
}

// SessionManagerConfig holds the collaborators of a SessionManager
type SessionManagerConfig struct {
	Grants     *AccessGrantStore
	Deadline   DeadlineScheduler
	Sink       EventSink
	NewID      func() string
	Milestones []int
	Logger     *slog.Logger
}

// NewSessionManager creates a session manager in the Idle state
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.Grants == nil {
		cfg.Grants = NewAccessGrantStore()
	}
	if cfg.Deadline == nil {
		cfg.Deadline = noDeadline{}
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	milestones := slices.Clone(cfg.Milestones)
	slices.Sort(milestones)

	return &SessionManager{
		grants:     cfg.Grants,
		deadline:   cfg.Deadline,
		sink:       cfg.Sink,
		newID:      cfg.NewID,
		milestones: milestones,
		logger:     cfg.Logger.With("component", "session_manager"),
	}
}

// Current returns the live session, or nil when idle. Callers must not retain it.
func (m *SessionManager) Current() *Session {
	return m.current
}

// Snapshot returns a copy of the current session, or nil when idle
func (m *SessionManager) Snapshot(now time.Time) *SessionSnapshot {
	return m.current.Snapshot(now)
}

// Start begins a new session. A session that is still active or paused must be stopped first.
func (m *SessionManager) Start(ctx context.Context, now time.Time, planned time.Duration, goal string) (*SessionSnapshot, error) {
	if planned <= 0 {
		return nil, ErrInvalidDuration
	}
	if m.current != nil && !m.current.IsTerminal() {
		return nil, ErrSessionInProgress
	}

	m.deadline.Cancel()
	m.grants.Clear()

	session := &Session{
		ID:              m.nextID(now),
		Goal:            goal,
		StartTime:       now,
		PlannedDuration: planned,
		EndTime:         now.Add(planned),
		IsActive:        true,
	}
	m.current = session
	m.deadline.Schedule(session.ID, session.EndTime)

	m.emit(ctx, Event{
		Type:      EventSessionStart,
		SessionID: session.ID,
		At:        now,
		Data: SessionStartData{
			SessionID: session.ID,
			StartTime: session.StartTime,
			Duration:  planned,
			Goal:      goal,
		},
	})

	return session.Snapshot(now), nil
}

// Pause suspends the countdown. The pending completion is cancelled until Resume.
func (m *SessionManager) Pause(ctx context.Context, now time.Time, pauseMinutes int) error {
	if pauseMinutes < 0 {
		return ErrInvalidMinutes
	}
	s := m.current
	if s == nil || !s.IsActive {
		return ErrNoActiveSession
	}
	if s.IsPaused {
		return ErrAlreadyPaused
	}
	if pauseMinutes == 0 {
		pauseMinutes = DefaultPauseMinutes
	}

	m.deadline.Cancel()
	pausedAt := now
	s.IsPaused = true
	s.WasPaused = true
	s.PauseStartTime = &pausedAt

	m.emit(ctx, Event{
		Type:      EventPauseChosen,
		SessionID: s.ID,
		At:        now,
		Data:      PauseChosenData{PauseMinutes: pauseMinutes},
	})
	return nil
}

// Resume restarts the countdown and pushes the deadline back by the time spent paused
func (m *SessionManager) Resume(ctx context.Context, now time.Time) error {
	s := m.current
	if s == nil || !s.IsActive {
		return ErrNoActiveSession
	}
	if !s.IsPaused || s.PauseStartTime == nil {
		return ErrNotPaused
	}

	elapsedPause := now.Sub(*s.PauseStartTime)
	if elapsedPause < 0 {
		elapsedPause = 0
	}
	s.PausedAccumulated += elapsedPause
	s.EndTime = s.EndTime.Add(elapsedPause)
	s.IsPaused = false
	s.PauseStartTime = nil

	m.deadline.Schedule(s.ID, s.EndTime)

	m.logger.Debug("session resumed",
		"session_id", s.ID,
		"pause", elapsedPause,
		"end_time", s.EndTime)
	return nil
}

// RecordBlockedAttempt counts a blocked navigation. Valid while active, including paused.
func (m *SessionManager) RecordBlockedAttempt() error {
	s := m.current
	if s == nil || !s.IsActive {
		return ErrNoActiveSession
	}
	s.BlockedAttempts++
	s.HadBlockedAttempts = true
	return nil
}

// RecordOverride notes that the user earned a temporary access grant
func (m *SessionManager) RecordOverride() error {
	s := m.current
	if s == nil || !s.IsActive {
		return ErrNoActiveSession
	}
	s.HadOverrides = true
	s.OverrideCount++
	return nil
}

// Stop ends the session early. The deadline and the grant are cleared with the transition.
func (m *SessionManager) Stop(ctx context.Context, now time.Time) (*SessionSnapshot, error) {
	s := m.current
	if s == nil || !s.IsActive {
		return nil, ErrNoActiveSession
	}

	m.deadline.Cancel()
	m.grants.Clear()

	if s.IsPaused && s.PauseStartTime != nil {
		if pause := now.Sub(*s.PauseStartTime); pause > 0 {
			s.PausedAccumulated += pause
		}
	}
	s.IsPaused = false
	s.PauseStartTime = nil
	s.IsActive = false
	s.Completed = false
	s.StoppedEarly = true
	s.EndTime = now

	snap := s.Snapshot(now)
	m.emit(ctx, Event{
		Type:      EventSessionAbort,
		SessionID: s.ID,
		At:        now,
		Data:      SessionEndData{Snapshot: snap},
	})
	m.current = nil

	return snap, nil
}

// CompletionTick finalises the session once its deadline has passed. It is a no-op when
// idle, paused or early, so a stale or duplicate timer does nothing.
func (m *SessionManager) CompletionTick(ctx context.Context, now time.Time) *SessionSnapshot {
	s := m.current
	if s == nil || !s.IsActive || s.IsPaused || now.Before(s.EndTime) {
		return nil
	}

	m.deadline.Cancel()
	m.grants.Clear()

	s.IsActive = false
	s.Completed = true
	s.StoppedEarly = false

	snap := s.Snapshot(now)
	m.emit(ctx, Event{
		Type:      EventSessionComplete,
		SessionID: s.ID,
		At:        now,
		Data:      SessionEndData{Snapshot: snap},
	})
	m.current = nil

	return snap
}

// CheckMilestones announces each configured progress percentage once per session.
// Paused time does not count towards progress.
func (m *SessionManager) CheckMilestones(ctx context.Context, now time.Time) []int {
	s := m.current
	if s == nil || !s.IsActive || s.IsPaused {
		return nil
	}

	progress := s.Progress(now) * 100
	var reached []int
	for _, percent := range m.milestones {
		if progress < float64(percent) || slices.Contains(s.AchievedMilestones, percent) {
			continue
		}
		s.AchievedMilestones = append(s.AchievedMilestones, percent)
		reached = append(reached, percent)
		m.emit(ctx, Event{
			Type:      EventSessionMilestone,
			SessionID: s.ID,
			At:        now,
			Data:      MilestoneData{Percent: percent},
		})
	}
	return reached
}

// Restore reinstalls a session reloaded from persistence. Terminal or invalid records
// leave the manager idle.
func (m *SessionManager) Restore(s *Session) error {
	if s == nil {
		return nil
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if s.IsTerminal() || !s.IsActive {
		return nil
	}

	m.current = s.Clone()
	if !m.current.IsPaused {
		m.deadline.Schedule(m.current.ID, m.current.EndTime)
	}
	return nil
}

func (m *SessionManager) nextID(now time.Time) string {
	if m.newID != nil {
		return m.newID()
	}
	return "session_" + now.UTC().Format("20060102T150405.000000000")
}

func (m *SessionManager) emit(ctx context.Context, event Event) {
	if err := m.sink.Emit(ctx, event); err != nil {
		m.logger.Warn("event delivery failed",
			"event", event.Type,
			"session_id", event.SessionID,
			"error", err)
	}
}

type noDeadline struct{}

func (noDeadline) Schedule(string, time.Time) {}
func (noDeadline) Cancel()                    {}
