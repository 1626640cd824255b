package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_AfterFunc(t *testing.T) {
	clock := NewMockClock(t0)
	var fired []string

	clock.AfterFunc(2*time.Second, func() { fired = append(fired, "late") })
	clock.AfterFunc(time.Second, func() { fired = append(fired, "early") })
	stopped := clock.AfterFunc(time.Second, func() { fired = append(fired, "stopped") })
	assert.Equal(t, 3, clock.PendingTimers())

	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	clock.Advance(500 * time.Millisecond)
	assert.Empty(t, fired)

	clock.Advance(3 * time.Second)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 0, clock.PendingTimers())
	assert.Equal(t, t0.Add(3500*time.Millisecond), clock.Now())
}

func TestMockClock_TimerMayRearm(t *testing.T) {
	clock := NewMockClock(t0)
	count := 0
	var rearm func()
	rearm = func() {
		count++
		if count < 3 {
			clock.AfterFunc(time.Second, rearm)
		}
	}
	clock.AfterFunc(time.Second, rearm)

	clock.Set(t0.Add(time.Second))
	clock.Set(t0.Add(2 * time.Second))
	clock.Set(t0.Add(3 * time.Second))
	assert.Equal(t, 3, count)
}
