package wakeup

import (
	"sync"
	"time"
)

// Handle identifies one scheduled wake-up. Cancel is idempotent and safe to
// call after the wake-up has fired.
type Handle struct {
	mu    sync.Mutex
	timer *time.Timer
	fired bool
	done  bool
}

// Cancel stops the wake-up if it has not fired yet. It reports whether the
// cancellation prevented the wake-up from firing.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done || h.fired {
		return false
	}
	h.done = true
	return h.timer.Stop()
}

// Fired reports whether the wake-up function has run.
func (h *Handle) Fired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fired
}

// Scheduler creates wake-ups. The zero value is a real-time scheduler;
// NewManualScheduler returns one whose wake-ups are fired explicitly from
// tests instead of by the clock.
type Scheduler struct {
	mu      sync.Mutex
	pending map[*Handle]func()
	manual  bool
}

// NewScheduler returns a real-time scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// NewManualScheduler returns a scheduler whose wake-ups only fire when
// FireAll or FireOne is called. Used in tests to make timeouts
// deterministic.
func NewManualScheduler() *Scheduler {
	return &Scheduler{
		pending: make(map[*Handle]func()),
		manual:  true,
	}
}

// Schedule arranges for fn to run after d. fn runs on the timer goroutine;
// it should do nothing but post a message somewhere thread-safe.
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Handle {
	h := &Handle{}

	if s.manual {
		s.mu.Lock()
		s.pending[h] = fn
		s.mu.Unlock()
		// The handle needs a timer that never fires so Cancel works.
		h.timer = time.NewTimer(time.Hour * 24 * 365)
		return h
	}

	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		if h.done {
			h.mu.Unlock()
			return
		}
		h.fired = true
		h.mu.Unlock()
		fn()
	})
	return h
}

// FireAll fires every pending manual wake-up that has not been canceled.
func (s *Scheduler) FireAll() {
	if !s.manual {
		return
	}
	s.mu.Lock()
	fns := make([]func(), 0, len(s.pending))
	handles := make([]*Handle, 0, len(s.pending))
	for h, fn := range s.pending {
		handles = append(handles, h)
		fns = append(fns, fn)
	}
	s.pending = make(map[*Handle]func())
	s.mu.Unlock()

	for i, h := range handles {
		h.mu.Lock()
		skip := h.done
		if !skip {
			h.fired = true
		}
		h.mu.Unlock()
		if !skip {
			fns[i]()
		}
	}
}

// PendingCount returns the number of scheduled, unfired manual wake-ups.
func (s *Scheduler) PendingCount() int {
	if !s.manual {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for h := range s.pending {
		h.mu.Lock()
		if !h.done {
			n++
		}
		h.mu.Unlock()
	}
	return n
}
