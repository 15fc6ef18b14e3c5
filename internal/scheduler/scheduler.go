// Package scheduler fires the periodic report.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// FireFunc is called on every tick. Errors are logged; the schedule goes on.
type FireFunc func(ctx context.Context) error

// Scheduler calls a FireFunc every interval. Changing the interval cancels
// the pending wait and starts a fresh one; a canceled wait never fires.
type Scheduler struct {
	clock  quartz.Clock
	logger *log.Logger
	fire   FireFunc

	mu       sync.Mutex
	ctx      context.Context
	interval time.Duration
	timer    *quartz.Timer
	// gen identifies the current wait; callbacks of older waits are dropped.
	gen     uint64
	running bool
	next    time.Time
}

// New returns a stopped scheduler.
func New(clock quartz.Clock, logger *log.Logger, interval time.Duration, fire FireFunc) *Scheduler {
	return &Scheduler{
		clock:    clock,
		logger:   logger.WithPrefix("scheduler"),
		fire:     fire,
		interval: interval,
	}
}

// Start arms the first wait. Fires stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx = ctx
	s.running = true
	s.armLocked()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// SetInterval replaces the interval and restarts the wait from now.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = d
	if !s.running {
		return
	}
	s.cancelLocked()
	s.armLocked()
	s.logger.Info("Report interval changed", "interval", d, "next", s.next)
}

// Stop cancels the pending wait. A fire already in progress completes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.cancelLocked()
}

// Interval returns the current interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Next returns when the pending wait ends, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.next
}

func (s *Scheduler) armLocked() {
	gen := s.gen
	s.next = s.clock.Now().Add(s.interval)
	s.timer = s.clock.AfterFunc(s.interval, func() { s.onFire(gen) }, "scheduler", "report")
	s.logger.Debug("Next report scheduled", "at", s.next)
}

func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) onFire(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.fire(ctx); err != nil {
		s.logger.Error("Scheduled report failed", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The interval may have changed while firing; that already re-armed.
	if s.running && gen == s.gen {
		s.gen++
		s.armLocked()
	}
}
