package core

import (
	"errors"
	"fmt"
	"time"
)

// SessionState represents where a focus session is in its lifecycle
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateActive    SessionState = "active"
	StatePaused    SessionState = "paused"
	StateCompleted SessionState = "completed"
	StateStopped   SessionState = "stopped"
)

// MatchType tells which kind of rule produced a verdict
type MatchType string

const (
	MatchNone    MatchType = "none"
	MatchDomain  MatchType = "domain"
	MatchKeyword MatchType = "keyword"
)

// Session is one timed focus interval during which the navigation gate is active
type Session struct {
	ID                 string
	Goal               string
	StartTime          time.Time
	PlannedDuration    time.Duration // originally requested length, never changes
	EndTime            time.Time     // deadline; shifted forward by every pause on resume
	IsActive           bool
	IsPaused           bool
	PauseStartTime     *time.Time
	PausedAccumulated  time.Duration
	WasPaused          bool
	BlockedAttempts    int
	HadBlockedAttempts bool
	HadOverrides       bool
	OverrideCount      int
	Completed          bool
	StoppedEarly       bool
	AchievedMilestones []int
}

// SessionSnapshot is a read-only copy of a session with derived timing figures
type SessionSnapshot struct {
	Session
	State         SessionState
	ActiveElapsed time.Duration
	Remaining     time.Duration
	TakenAt       time.Time
}

// AccessGrant is a short-lived, session-scoped exception for one URL or domain
type AccessGrant struct {
	URL       string
	Domain    string
	Keyword   string // set when the granted URL was blocked by a keyword rule
	SessionID string
	Minutes   int
	GrantedAt time.Time
	EndTime   time.Time
}

// Verdict is the allow/block answer for a single URL
type Verdict struct {
	Blocked    bool
	Category   string
	MatchType  MatchType
	MatchValue string
	// Reason and Trace describe how the decision was reached, for debugging only
	Reason string
	Trace  []string
}

// BlockingReason records the last navigation that was blocked in the current session
type BlockingReason struct {
	URL        string
	Category   string
	MatchType  MatchType
	MatchValue string
	At         time.Time
}

// Error taxonomy. Callers match with errors.Is against the family sentinels.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid transition")

	ErrInvalidURL      = fmt.Errorf("%w: url must be an absolute url with a host", ErrInvalidInput)
	ErrInvalidDuration = fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	ErrInvalidMinutes  = fmt.Errorf("%w: minutes must be positive and within the allowed maximum", ErrInvalidInput)
	ErrEmptyField      = fmt.Errorf("%w: required field is empty", ErrInvalidInput)

	ErrNoActiveSession   = fmt.Errorf("%w: no active session", ErrInvalidTransition)
	ErrSessionInProgress = fmt.Errorf("%w: a session is already in progress", ErrInvalidTransition)
	ErrNotPaused         = fmt.Errorf("%w: session is not paused", ErrInvalidTransition)
	ErrAlreadyPaused     = fmt.Errorf("%w: session is already paused", ErrInvalidTransition)

	ErrGrantExpired         = errors.New("grant expired")
	ErrGrantSessionMismatch = errors.New("grant belongs to another session")

	ErrPersistence = errors.New("persistence failure")
	ErrPolicyLoad  = errors.New("policy load failure")

	ErrInvalidSessionRecord = errors.New("invalid session record")
)

// State derives the lifecycle state from the session flags
func (s *Session) State() SessionState {
	switch {
	case s == nil:
		return StateIdle
	case s.Completed:
		return StateCompleted
	case s.StoppedEarly:
		return StateStopped
	case s.IsActive && s.IsPaused:
		return StatePaused
	case s.IsActive:
		return StateActive
	default:
		return StateIdle
	}
}

// IsTerminal returns true once the session has completed or was stopped
func (s *Session) IsTerminal() bool {
	state := s.State()
	return state == StateCompleted || state == StateStopped
}

// Validate checks that a session record is structurally consistent.
// Used when a session is reloaded from persistence.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSessionRecord)
	}
	if s.PlannedDuration <= 0 {
		return fmt.Errorf("%w: planned duration must be positive", ErrInvalidSessionRecord)
	}
	if s.StartTime.IsZero() || s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("%w: end time precedes start time", ErrInvalidSessionRecord)
	}
	if s.Completed && s.StoppedEarly {
		return fmt.Errorf("%w: session cannot be both completed and stopped", ErrInvalidSessionRecord)
	}
	if (s.Completed || s.StoppedEarly) && s.IsActive {
		return fmt.Errorf("%w: terminal session marked active", ErrInvalidSessionRecord)
	}
	if s.IsPaused && (s.PauseStartTime == nil || !s.IsActive) {
		return fmt.Errorf("%w: paused session without pause start", ErrInvalidSessionRecord)
	}
	if s.PausedAccumulated < 0 || s.BlockedAttempts < 0 || s.OverrideCount < 0 {
		return fmt.Errorf("%w: negative counter", ErrInvalidSessionRecord)
	}
	return nil
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.PauseStartTime != nil {
		t := *s.PauseStartTime
		c.PauseStartTime = &t
	}
	if s.AchievedMilestones != nil {
		c.AchievedMilestones = append([]int(nil), s.AchievedMilestones...)
	}
	return &c
}

// ActiveElapsed returns the focused time so far, excluding pauses
func (s *Session) ActiveElapsed(now time.Time) time.Duration {
	ref := now
	switch {
	case !s.IsActive:
		ref = s.EndTime
	case s.IsPaused && s.PauseStartTime != nil:
		ref = *s.PauseStartTime
	}
	elapsed := ref.Sub(s.StartTime) - s.PausedAccumulated
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns the active time left before the deadline
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.IsActive {
		return 0
	}
	ref := now
	if s.IsPaused && s.PauseStartTime != nil {
		ref = *s.PauseStartTime
	}
	remaining := s.EndTime.Sub(ref)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress returns the fraction of planned active time already spent
func (s *Session) Progress(now time.Time) float64 {
	if s.PlannedDuration <= 0 {
		return 0
	}
	return float64(s.ActiveElapsed(now)) / float64(s.PlannedDuration)
}

// Snapshot captures the session at the given instant
func (s *Session) Snapshot(now time.Time) *SessionSnapshot {
	if s == nil {
		return nil
	}
	return &SessionSnapshot{
		Session:       *s.Clone(),
		State:         s.State(),
		ActiveElapsed: s.ActiveElapsed(now),
		Remaining:     s.Remaining(now),
		TakenAt:       now,
	}
}

// Clone returns a copy of the grant
func (g *AccessGrant) Clone() *AccessGrant {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// IsExpired returns true once now has reached the grant's end time
func (g *AccessGrant) IsExpired(now time.Time) bool {
	return !now.Before(g.EndTime)
}

// RemainingTime returns the time left on the grant
func (g *AccessGrant) RemainingTime(now time.Time) time.Duration {
	remaining := g.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Allow builds a non-blocking verdict
func Allow(reason string, trace ...string) Verdict {
	return Verdict{
		Blocked:   false,
		MatchType: MatchNone,
		Reason:    reason,
		Trace:     trace,
	}
}
