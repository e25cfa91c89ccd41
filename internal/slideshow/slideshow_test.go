package slideshow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStartsPausedWithSaneInterval(t *testing.T) {
	s := New(0)
	assert.False(t, s.IsPlaying())
	assert.Equal(t, defaultInterval, s.Interval())
	assert.Equal(t, 2*time.Second, New(2*time.Second).Interval())
	assert.Equal(t, defaultInterval, New(time.Millisecond).Interval())
}

func TestToggle(t *testing.T) {
	s := New(time.Second)
	assert.True(t, s.Toggle())
	assert.True(t, s.IsPlaying())
	assert.False(t, s.Toggle())
}

func TestPauseForOperationRestoresState(t *testing.T) {
	s := New(time.Second)
	s.Toggle()
	s.Pause(true)
	assert.False(t, s.IsPlaying())
	s.ResumeAfterOperation()
	assert.True(t, s.IsPlaying())

	s.Toggle() // paused by the user
	s.Pause(true)
	s.ResumeAfterOperation()
	assert.False(t, s.IsPlaying(), "an operation never starts a paused slideshow")

	s.Toggle()
	s.Pause(false)
	s.ResumeAfterOperation()
	assert.False(t, s.IsPlaying(), "a plain pause is not undone")
}

func TestRunAdvancesOnlyWhilePlaying(t *testing.T) {
	s := New(minInterval)
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func() { calls.Add(1) })
		close(done)
	}()

	time.Sleep(3 * minInterval)
	assert.Zero(t, calls.Load())

	s.Toggle()
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
