// Package dto holds the JSON bodies exchanged by the HTTP API and its client.
package dto

import (
	"time"

	"focusroom/internal/core"
)

// StartSessionRequest is the body of POST /v1/session
type StartSessionRequest struct {
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
	Goal            string `json:"goal"`
}

// PauseSessionRequest is the optional body of POST /v1/session/pause
type PauseSessionRequest struct {
	PauseMinutes int `json:"pause_minutes"`
}

// CheckNavigationRequest is the body of POST /v1/navigation/check
type CheckNavigationRequest struct {
	URL string `json:"url" binding:"required"`
}

// GrantRequest is the body of POST /v1/access-grants
type GrantRequest struct {
	URL     string `json:"url" binding:"required"`
	Minutes int    `json:"minutes" binding:"required"`
}

// Session is the wire form of a session snapshot. State is "idle" and the
// remaining fields are empty when no session exists.
type Session struct {
	ID                 string     `json:"id,omitempty"`
	State              string     `json:"state"`
	Goal               string     `json:"goal,omitempty"`
	StartTime          *time.Time `json:"start_time,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	PlannedSeconds     int64      `json:"planned_seconds"`
	ActiveSeconds      int64      `json:"active_seconds"`
	RemainingSeconds   int64      `json:"remaining_seconds"`
	PausedSeconds      int64      `json:"paused_seconds"`
	PauseStartTime     *time.Time `json:"pause_start_time,omitempty"`
	WasPaused          bool       `json:"was_paused"`
	BlockedAttempts    int        `json:"blocked_attempts"`
	HadBlockedAttempts bool       `json:"had_blocked_attempts"`
	OverrideCount      int        `json:"override_count"`
	HadOverrides       bool       `json:"had_overrides"`
	AchievedMilestones []int      `json:"achieved_milestones,omitempty"`
}

// CompleteResponse reports whether POST /v1/session/complete finished the session
type CompleteResponse struct {
	Completed bool     `json:"completed"`
	Session   *Session `json:"session,omitempty"`
}

// Verdict is the wire form of a navigation decision
type Verdict struct {
	Blocked    bool     `json:"blocked"`
	Category   string   `json:"category,omitempty"`
	MatchType  string   `json:"match_type"`
	MatchValue string   `json:"match_value,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Trace      []string `json:"trace,omitempty"`
}

// BlockingReason is the wire form of the last blocked navigation
type BlockingReason struct {
	URL        string    `json:"url"`
	Category   string    `json:"category"`
	MatchType  string    `json:"match_type"`
	MatchValue string    `json:"match_value"`
	At         time.Time `json:"at"`
}

// Grant is the wire form of a temporary access grant
type Grant struct {
	URL              string    `json:"url"`
	Domain           string    `json:"domain"`
	Keyword          string    `json:"keyword,omitempty"`
	SessionID        string    `json:"session_id"`
	Minutes          int       `json:"minutes"`
	GrantedAt        time.Time `json:"granted_at"`
	EndTime          time.Time `json:"end_time"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

// IdleSession is returned when there is no session
func IdleSession() Session {
	return Session{State: string(core.StateIdle)}
}

// FromSnapshot converts a snapshot; nil maps to the idle session
func FromSnapshot(snap *core.SessionSnapshot) Session {
	if snap == nil {
		return IdleSession()
	}
	start := snap.StartTime
	end := snap.EndTime
	out := Session{
		ID:                 snap.ID,
		State:              string(snap.State),
		Goal:               snap.Goal,
		StartTime:          &start,
		EndTime:            &end,
		PlannedSeconds:     int64(snap.PlannedDuration / time.Second),
		ActiveSeconds:      int64(snap.ActiveElapsed / time.Second),
		RemainingSeconds:   int64(snap.Remaining / time.Second),
		PausedSeconds:      int64(snap.PausedAccumulated / time.Second),
		WasPaused:          snap.WasPaused,
		BlockedAttempts:    snap.BlockedAttempts,
		HadBlockedAttempts: snap.HadBlockedAttempts,
		OverrideCount:      snap.OverrideCount,
		HadOverrides:       snap.HadOverrides,
		AchievedMilestones: snap.AchievedMilestones,
	}
	if snap.PauseStartTime != nil {
		t := *snap.PauseStartTime
		out.PauseStartTime = &t
	}
	return out
}

// FromSession converts a finished session from history
func FromSession(s *core.Session) Session {
	return FromSnapshot(s.Snapshot(s.EndTime))
}

func FromVerdict(v core.Verdict) Verdict {
	return Verdict{
		Blocked:    v.Blocked,
		Category:   v.Category,
		MatchType:  string(v.MatchType),
		MatchValue: v.MatchValue,
		Reason:     v.Reason,
		Trace:      v.Trace,
	}
}

func FromBlockingReason(r *core.BlockingReason) *BlockingReason {
	if r == nil {
		return nil
	}
	return &BlockingReason{
		URL:        r.URL,
		Category:   r.Category,
		MatchType:  string(r.MatchType),
		MatchValue: r.MatchValue,
		At:         r.At,
	}
}

func FromGrant(g *core.AccessGrant, now time.Time) Grant {
	return Grant{
		URL:              g.URL,
		Domain:           g.Domain,
		Keyword:          g.Keyword,
		SessionID:        g.SessionID,
		Minutes:          g.Minutes,
		GrantedAt:        g.GrantedAt,
		EndTime:          g.EndTime,
		RemainingSeconds: int64(g.RemainingTime(now) / time.Second),
	}
}
