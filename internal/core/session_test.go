package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_Start(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())

	snap, err := f.sessions.Start(ctx, t0, 25*time.Minute, "write report")
	require.NoError(t, err)

	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, "sess_1", snap.ID)
	assert.Equal(t, t0.Add(25*time.Minute), snap.EndTime)
	assert.Equal(t, 25*time.Minute, snap.Remaining)
	assert.Equal(t, "sess_1", f.deadline.scheduledID)
	require.NotNil(t, f.deadline.scheduledAt)
	assert.Equal(t, snap.EndTime, *f.deadline.scheduledAt)

	starts := f.sink.ofType(EventSessionStart)
	require.Len(t, starts, 1)
	data := starts[0].Data.(SessionStartData)
	assert.Equal(t, 25*time.Minute, data.Duration)
	assert.Equal(t, "write report", data.Goal)
}

func TestSessionManager_StartRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())

	_, err := f.sessions.Start(ctx, t0, 0, "")
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.sessions.Start(ctx, t0, time.Minute, "")
	require.NoError(t, err)
	_, err = f.sessions.Start(ctx, at(10), time.Minute, "")
	assert.ErrorIs(t, err, ErrSessionInProgress)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, f.sessions.Pause(ctx, at(20), 0))
	_, err = f.sessions.Start(ctx, at(30), time.Minute, "")
	assert.ErrorIs(t, err, ErrSessionInProgress)
}

func TestSessionManager_StartClearsPreviousGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.grants.Grant(GrantRequest{URL: "https://a.com/", Domain: "a.com", SessionID: "old", Minutes: 5}, t0)
	require.NoError(t, err)

	_, err = f.sessions.Start(ctx, t0, time.Minute, "")
	require.NoError(t, err)
	assert.Nil(t, f.grants.Current())
}

func TestSessionManager_PauseResume(t *testing.T) {
	// Scenario: pause at 500s, resume 30s later pushes the deadline by 30s
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, 1500000*time.Millisecond, "")
	require.NoError(t, err)

	require.NoError(t, f.sessions.Pause(ctx, at(500000), 0))
	assert.Nil(t, f.deadline.scheduledAt, "pause cancels the deadline")
	assert.Equal(t, StatePaused, f.sessions.Current().State())
	assert.True(t, f.sessions.Current().WasPaused)

	pauses := f.sink.ofType(EventPauseChosen)
	require.Len(t, pauses, 1)
	assert.Equal(t, PauseChosenData{PauseMinutes: DefaultPauseMinutes}, pauses[0].Data)

	assert.ErrorIs(t, f.sessions.Pause(ctx, at(510000), 5), ErrAlreadyPaused)

	require.NoError(t, f.sessions.Resume(ctx, at(530000)))
	s := f.sessions.Current()
	assert.Equal(t, at(1530000), s.EndTime)
	assert.Equal(t, 30*time.Second, s.PausedAccumulated)
	assert.Equal(t, 1500000*time.Millisecond, s.PlannedDuration)
	require.NotNil(t, f.deadline.scheduledAt)
	assert.Equal(t, at(1530000), *f.deadline.scheduledAt)
	assert.True(t, s.WasPaused, "wasPaused stays set after resume")

	assert.ErrorIs(t, f.sessions.Resume(ctx, at(540000)), ErrNotPaused)
}

func TestSessionManager_TransitionsWithoutSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())

	assert.ErrorIs(t, f.sessions.Pause(ctx, t0, 0), ErrNoActiveSession)
	assert.ErrorIs(t, f.sessions.Resume(ctx, t0), ErrNoActiveSession)
	_, err := f.sessions.Stop(ctx, t0)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.ErrorIs(t, f.sessions.RecordBlockedAttempt(), ErrNoActiveSession)
	assert.ErrorIs(t, f.sessions.RecordOverride(), ErrNoActiveSession)
	assert.Nil(t, f.sessions.CompletionTick(ctx, t0))
	assert.Nil(t, f.sessions.Snapshot(t0))
	assert.Empty(t, f.sink.events)
}

func TestSessionManager_PauseNegativeMinutes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, time.Minute, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.sessions.Pause(ctx, at(10), -1), ErrInvalidMinutes)
	assert.Equal(t, StateActive, f.sessions.Current().State())
}

func TestSessionManager_Stop(t *testing.T) {
	// Scenario: stop while active, then a stale completion tick does nothing
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, 1500000*time.Millisecond, "")
	require.NoError(t, err)
	require.NoError(t, f.sessions.RecordBlockedAttempt())
	_, err = f.grants.Grant(GrantRequest{URL: "https://a.com/", Domain: "a.com", SessionID: "sess_1", Minutes: 5}, at(10))
	require.NoError(t, err)

	snap, err := f.sessions.Stop(ctx, at(600000))
	require.NoError(t, err)
	assert.True(t, snap.StoppedEarly)
	assert.False(t, snap.Completed)
	assert.False(t, snap.IsActive)
	assert.Equal(t, StateStopped, snap.State)
	assert.Equal(t, at(600000), snap.EndTime)
	assert.Equal(t, 600000*time.Millisecond, snap.ActiveElapsed)
	assert.Equal(t, 1, snap.BlockedAttempts)

	assert.Nil(t, f.sessions.Current())
	assert.Nil(t, f.grants.Current())
	assert.Nil(t, f.deadline.scheduledAt)

	aborts := f.sink.ofType(EventSessionAbort)
	require.Len(t, aborts, 1)
	assert.Equal(t, snap, aborts[0].Data.(SessionEndData).Snapshot)

	assert.Nil(t, f.sessions.CompletionTick(ctx, at(2000000)))
	assert.Empty(t, f.sink.ofType(EventSessionComplete))
}

func TestSessionManager_StopWhilePaused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, 10*time.Minute, "")
	require.NoError(t, err)
	require.NoError(t, f.sessions.Pause(ctx, t0.Add(2*time.Minute), 0))

	snap, err := f.sessions.Stop(ctx, t0.Add(5*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Minute, snap.PausedAccumulated)
	assert.Equal(t, 2*time.Minute, snap.ActiveElapsed)
	assert.Nil(t, snap.PauseStartTime)
	assert.False(t, snap.IsPaused)
	assert.True(t, snap.WasPaused)
}

func TestSessionManager_CompletionTick(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, time.Minute, "")
	require.NoError(t, err)

	assert.Nil(t, f.sessions.CompletionTick(ctx, t0.Add(59*time.Second)), "early tick is a no-op")
	assert.Equal(t, StateActive, f.sessions.Current().State())

	snap := f.sessions.CompletionTick(ctx, t0.Add(61*time.Second))
	require.NotNil(t, snap)
	assert.True(t, snap.Completed)
	assert.False(t, snap.StoppedEarly)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, t0.Add(time.Minute), snap.EndTime, "end time stays at the deadline")
	assert.Equal(t, time.Minute, snap.ActiveElapsed)
	assert.Nil(t, f.sessions.Current())

	// a duplicate timer firing afterwards changes nothing
	assert.Nil(t, f.sessions.CompletionTick(ctx, t0.Add(62*time.Second)))
	assert.Len(t, f.sink.ofType(EventSessionComplete), 1)
}

func TestSessionManager_CompletionTickWhilePaused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, time.Minute, "")
	require.NoError(t, err)
	require.NoError(t, f.sessions.Pause(ctx, t0.Add(30*time.Second), 0))

	assert.Nil(t, f.sessions.CompletionTick(ctx, t0.Add(2*time.Minute)))
	assert.Equal(t, StatePaused, f.sessions.Current().State())
}

func TestSessionManager_CountersNeverDecrease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, time.Hour, "")
	require.NoError(t, err)

	last := 0
	for i := 0; i < 5; i++ {
		require.NoError(t, f.sessions.RecordBlockedAttempt())
		if i == 2 {
			require.NoError(t, f.sessions.Pause(ctx, at(int64(i)), 0))
		}
		if i == 3 {
			require.NoError(t, f.sessions.Resume(ctx, at(int64(i))))
		}
		s := f.sessions.Current()
		assert.GreaterOrEqual(t, s.BlockedAttempts, last)
		last = s.BlockedAttempts
		assert.True(t, s.HadBlockedAttempts)
	}
	assert.Equal(t, 5, last)

	require.NoError(t, f.sessions.RecordOverride())
	require.NoError(t, f.sessions.RecordOverride())
	assert.Equal(t, 2, f.sessions.Current().OverrideCount)
	assert.True(t, f.sessions.Current().HadOverrides)
}

func TestSessionManager_Milestones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	_, err := f.sessions.Start(ctx, t0, 100*time.Minute, "")
	require.NoError(t, err)

	assert.Empty(t, f.sessions.CheckMilestones(ctx, t0.Add(10*time.Minute)))
	assert.Equal(t, []int{25}, f.sessions.CheckMilestones(ctx, t0.Add(26*time.Minute)))
	assert.Empty(t, f.sessions.CheckMilestones(ctx, t0.Add(27*time.Minute)), "each threshold fires once")

	// paused time does not count towards progress
	require.NoError(t, f.sessions.Pause(ctx, t0.Add(40*time.Minute), 0))
	assert.Empty(t, f.sessions.CheckMilestones(ctx, t0.Add(90*time.Minute)))
	require.NoError(t, f.sessions.Resume(ctx, t0.Add(90*time.Minute)))
	assert.Empty(t, f.sessions.CheckMilestones(ctx, t0.Add(95*time.Minute)))

	assert.Equal(t, []int{50, 75}, f.sessions.CheckMilestones(ctx, t0.Add(130*time.Minute)))

	events := f.sink.ofType(EventSessionMilestone)
	require.Len(t, events, 3)
	assert.Equal(t, MilestoneData{Percent: 75}, events[2].Data)
	assert.Equal(t, []int{25, 50, 75}, f.sessions.Current().AchievedMilestones)
}

func TestSessionManager_SinkFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultSettings())
	f.sink.fail = true

	_, err := f.sessions.Start(ctx, t0, time.Minute, "")
	require.NoError(t, err)
	_, err = f.sessions.Stop(ctx, at(10))
	require.NoError(t, err)
	assert.Len(t, f.sink.events, 2)
}

func TestSessionManager_Restore(t *testing.T) {
	pausedAt := t0.Add(time.Minute)

	tests := []struct {
		name         string
		session      *Session
		wantErr      bool
		wantCurrent  bool
		wantSchedule bool
	}{
		{name: "nil", session: nil},
		{
			name:         "active",
			session:      &Session{ID: "s1", StartTime: t0, PlannedDuration: time.Hour, EndTime: t0.Add(time.Hour), IsActive: true},
			wantCurrent:  true,
			wantSchedule: true,
		},
		{
			name:        "paused keeps no timer",
			session:     &Session{ID: "s1", StartTime: t0, PlannedDuration: time.Hour, EndTime: t0.Add(time.Hour), IsActive: true, IsPaused: true, PauseStartTime: &pausedAt},
			wantCurrent: true,
		},
		{
			name:    "terminal is skipped",
			session: &Session{ID: "s1", StartTime: t0, PlannedDuration: time.Hour, EndTime: t0.Add(time.Hour), Completed: true},
		},
		{
			name:    "invalid",
			session: &Session{ID: "", StartTime: t0, PlannedDuration: time.Hour, EndTime: t0.Add(time.Hour), IsActive: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(DefaultSettings())
			err := f.sessions.Restore(tt.session)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSessionRecord)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCurrent, f.sessions.Current() != nil)
			assert.Equal(t, tt.wantSchedule, f.deadline.schedules == 1)
		})
	}
}
