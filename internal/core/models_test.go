package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_Validate(t *testing.T) {
	pausedAt := at(1000)
	valid := func() Session {
		return Session{
			ID:              "sess_1",
			StartTime:       t0,
			PlannedDuration: 25 * time.Minute,
			EndTime:         t0.Add(25 * time.Minute),
			IsActive:        true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Session)
		wantErr bool
	}{
		{name: "valid active session", mutate: func(s *Session) {}},
		{name: "valid paused session", mutate: func(s *Session) {
			s.IsPaused = true
			s.PauseStartTime = &pausedAt
		}},
		{name: "missing id", mutate: func(s *Session) { s.ID = "" }, wantErr: true},
		{name: "zero duration", mutate: func(s *Session) { s.PlannedDuration = 0 }, wantErr: true},
		{name: "end before start", mutate: func(s *Session) { s.EndTime = t0.Add(-time.Second) }, wantErr: true},
		{name: "completed and stopped", mutate: func(s *Session) {
			s.IsActive = false
			s.Completed = true
			s.StoppedEarly = true
		}, wantErr: true},
		{name: "terminal but active", mutate: func(s *Session) { s.Completed = true }, wantErr: true},
		{name: "paused without start", mutate: func(s *Session) { s.IsPaused = true }, wantErr: true},
		{name: "negative counter", mutate: func(s *Session) { s.BlockedAttempts = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSessionRecord), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSession_State(t *testing.T) {
	var idle *Session
	assert.Equal(t, StateIdle, idle.State())
	assert.Equal(t, StateActive, (&Session{IsActive: true}).State())
	assert.Equal(t, StatePaused, (&Session{IsActive: true, IsPaused: true}).State())
	assert.Equal(t, StateCompleted, (&Session{Completed: true}).State())
	assert.Equal(t, StateStopped, (&Session{StoppedEarly: true}).State())
	assert.True(t, (&Session{StoppedEarly: true}).IsTerminal())
	assert.False(t, (&Session{IsActive: true}).IsTerminal())
}

func TestSession_Timing(t *testing.T) {
	s := &Session{
		ID:              "sess_1",
		StartTime:       t0,
		PlannedDuration: 10 * time.Minute,
		EndTime:         t0.Add(10 * time.Minute),
		IsActive:        true,
	}

	assert.Equal(t, 4*time.Minute, s.ActiveElapsed(t0.Add(4*time.Minute)))
	assert.Equal(t, 6*time.Minute, s.Remaining(t0.Add(4*time.Minute)))
	assert.InDelta(t, 0.4, s.Progress(t0.Add(4*time.Minute)), 0.0001)

	// time stands still while paused
	pausedAt := t0.Add(4 * time.Minute)
	s.IsPaused = true
	s.PauseStartTime = &pausedAt
	assert.Equal(t, 4*time.Minute, s.ActiveElapsed(t0.Add(9*time.Minute)))
	assert.Equal(t, 6*time.Minute, s.Remaining(t0.Add(9*time.Minute)))

	// after a 2 minute pause the deadline moved by 2 minutes
	s.IsPaused = false
	s.PauseStartTime = nil
	s.PausedAccumulated = 2 * time.Minute
	s.EndTime = s.EndTime.Add(2 * time.Minute)
	assert.Equal(t, 5*time.Minute, s.ActiveElapsed(t0.Add(7*time.Minute)))
	assert.Equal(t, 5*time.Minute, s.Remaining(t0.Add(7*time.Minute)))
	assert.Equal(t, time.Duration(0), s.Remaining(t0.Add(time.Hour)))
}

func TestSession_CloneIsDeep(t *testing.T) {
	pausedAt := at(10)
	s := &Session{ID: "sess_1", PauseStartTime: &pausedAt, AchievedMilestones: []int{25}}
	c := s.Clone()

	*c.PauseStartTime = at(99)
	c.AchievedMilestones[0] = 50

	assert.Equal(t, at(10), *s.PauseStartTime)
	assert.Equal(t, []int{25}, s.AchievedMilestones)
	assert.Nil(t, (*Session)(nil).Clone())
}

func TestAccessGrant_IsExpired(t *testing.T) {
	g := &AccessGrant{GrantedAt: t0, EndTime: at(1000)}

	assert.False(t, g.IsExpired(at(999)))
	assert.True(t, g.IsExpired(at(1000)))
	assert.Equal(t, 400*time.Millisecond, g.RemainingTime(at(600)))
	assert.Equal(t, time.Duration(0), g.RemainingTime(at(5000)))
}

func TestErrorFamilies(t *testing.T) {
	for _, err := range []error{ErrInvalidURL, ErrInvalidDuration, ErrInvalidMinutes, ErrEmptyField} {
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.NotErrorIs(t, err, ErrInvalidTransition)
	}
	for _, err := range []error{ErrNoActiveSession, ErrSessionInProgress, ErrNotPaused, ErrAlreadyPaused} {
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.NotErrorIs(t, err, ErrInvalidInput)
	}
}
