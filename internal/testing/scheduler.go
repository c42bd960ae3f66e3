package testing

import (
	"sync"
	"time"
)

// ManualScheduler is a deterministic timer source. Timers only fire from [ManualScheduler.Advance],
// on the caller's goroutine, in due order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After schedules fn to run d after the scheduler's current time. The returned func cancels the timer and
// reports whether it was still pending.
func (s *ManualScheduler) After(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{at: s.now + d, seq: s.seq, fn: fn}
	s.seq++
	s.timers = append(s.timers, t)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.stopped {
			return false
		}
		t.stopped = true
		s.remove(t)
		return true
	}
}

// Advance moves time forward by d, running every timer that becomes due, including timers scheduled by
// callbacks that fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.earliest(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.stopped = true
		s.remove(next)
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

// RunDue runs timers that are already due.
func (s *ManualScheduler) RunDue() {
	s.Advance(0)
}

// Pending returns the number of scheduled timers.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Elapsed returns the total time advanced.
func (s *ManualScheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) earliest(target time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range s.timers {
		if t.at > target {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (s *ManualScheduler) remove(t *manualTimer) {
	for i, other := range s.timers {
		if other == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}
