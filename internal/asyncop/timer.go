package asyncop

import (
	"sync"
	"time"
)

// TimerSlot owns at most one pending scheduled task. Scheduling a new task
// cancels any task still pending, so duplicate timers cannot accumulate.
// The zero value is ready to use.
type TimerSlot struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Schedule runs fn after d, replacing any pending task.
func (s *TimerSlot) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		// A fire that lost the race against Cancel or a newer Schedule
		// must not run.
		s.mu.Lock()
		if s.timer != t {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()

		fn()
	})
	s.timer = t
}

// Cancel stops the pending task, if any.
func (s *TimerSlot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a task is currently scheduled.
func (s *TimerSlot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
