package core

import (
	"context"
	"time"
)

// EventType names a lifecycle event delivered to the event sink
type EventType string

const (
	EventSessionStart     EventType = "session_start"
	EventBlockedAttempt   EventType = "blocked_attempt"
	EventOverride         EventType = "override"
	EventPauseChosen      EventType = "pause_chosen"
	EventSessionAbort     EventType = "session_abort"
	EventSessionComplete  EventType = "session_complete"
	EventSessionMilestone EventType = "session_milestone"
)

// Event is one lifecycle fact. Data holds the type-specific payload.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Data      any       `json:"data,omitempty"`
}

// SessionStartData is the payload of session_start
type SessionStartData struct {
	SessionID string        `json:"session_id"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Goal      string        `json:"goal,omitempty"`
}

// BlockedAttemptData is the payload of blocked_attempt
type BlockedAttemptData struct {
	URL        string    `json:"url"`
	Category   string    `json:"category"`
	MatchType  MatchType `json:"match_type"`
	MatchValue string    `json:"match_value"`
}

// OverrideData is the payload of override
type OverrideData struct {
	URL     string `json:"url"`
	Minutes int    `json:"minutes"`
}

// PauseChosenData is the payload of pause_chosen
type PauseChosenData struct {
	PauseMinutes int `json:"pause_minutes"`
}

// SessionEndData is the payload of session_abort and session_complete
type SessionEndData struct {
	Snapshot *SessionSnapshot `json:"snapshot"`
}

// MilestoneData is the payload of session_milestone
type MilestoneData struct {
	Percent int `json:"percent"`
}

// EventSink consumes lifecycle events. A returned error is logged by the emitter and
// never changes a decision already made.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// NopSink discards every event
type NopSink struct{}

// Emit implements EventSink
func (NopSink) Emit(context.Context, Event) error { return nil }
