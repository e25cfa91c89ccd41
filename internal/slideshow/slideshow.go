// Package slideshow advances to a new random image on a timer.
package slideshow

import (
	"context"
	"sync"
	"time"
)

const (
	defaultInterval = 5 * time.Second
	minInterval     = 100 * time.Millisecond
)

// Slideshow ticks at a fixed interval and calls the advance callback while
// playing. It starts paused.
type Slideshow struct {
	mu                 sync.Mutex
	playing            bool
	wasPlayingBeforeOp bool
	interval           time.Duration
	reset              chan struct{}
}

// New creates a paused Slideshow. Intervals below 100ms fall back to the default.
func New(interval time.Duration) *Slideshow {
	return &Slideshow{
		interval: normalize(interval),
		reset:    make(chan struct{}, 1),
	}
}

func normalize(d time.Duration) time.Duration {
	if d < minInterval {
		return defaultInterval
	}
	return d
}

// Toggle switches between playing and paused and returns the new state.
func (s *Slideshow) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = !s.playing
	s.wasPlayingBeforeOp = false
	return s.playing
}

// Pause stops advancing. With forOperation the current state is remembered
// so ResumeAfterOperation can restore it, e.g. around a delete confirmation.
func (s *Slideshow) Pause(forOperation bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if forOperation {
		s.wasPlayingBeforeOp = s.playing
	}
	s.playing = false
}

// ResumeAfterOperation restarts playback if Pause(true) interrupted it.
func (s *Slideshow) ResumeAfterOperation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wasPlayingBeforeOp {
		s.playing = true
		s.restartLocked()
	}
	s.wasPlayingBeforeOp = false
}

func (s *Slideshow) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Slideshow) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the tick interval; a running loop picks it up at once.
func (s *Slideshow) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = normalize(d)
	s.restartLocked()
}

// Touch restarts the countdown, so a manual "next" gets a full interval.
func (s *Slideshow) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restartLocked()
}

func (s *Slideshow) restartLocked() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

// Run calls advance on every tick while playing, until ctx is done.
func (s *Slideshow) Run(ctx context.Context, advance func()) {
	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reset:
			ticker.Reset(s.Interval())
		case <-ticker.C:
			if s.IsPlaying() {
				advance()
			}
		}
	}
}
