// Package autosave decides when the repository should attempt a snapshot,
// balancing data-loss risk against write frequency. Timing policy lives
// here so the repository does not own it.
package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"grana/internal/bus"
)

// Saver is the repository capability the scheduler drives.
type Saver interface {
	HasChanges() bool
	Snapshot() error
}

// Config holds the scheduler's timing knobs. Zero values fall back to the
// defaults below.
type Config struct {
	BaseInterval     time.Duration // between attempts while active (30s)
	IdleInterval     time.Duration // between attempts while idle (120s)
	IdleThreshold    time.Duration // inactivity before switching to idle (60s)
	Debounce         time.Duration // quiet window required around an attempt (5s)
	ActivityDebounce time.Duration // minimum gap between recorded activity events (1s)
	IdleCheckEvery   time.Duration // idle transition poll period (10s)
	AttemptTimeout   time.Duration // per-attempt budget before it counts as failed (10s)
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseInterval <= 0 {
		out.BaseInterval = 30 * time.Second
	}
	if out.IdleInterval <= 0 {
		out.IdleInterval = 120 * time.Second
	}
	if out.IdleThreshold <= 0 {
		out.IdleThreshold = 60 * time.Second
	}
	if out.Debounce <= 0 {
		out.Debounce = 5 * time.Second
	}
	if out.ActivityDebounce <= 0 {
		out.ActivityDebounce = time.Second
	}
	if out.IdleCheckEvery <= 0 {
		out.IdleCheckEvery = 10 * time.Second
	}
	if out.AttemptTimeout <= 0 {
		out.AttemptTimeout = 10 * time.Second
	}
	return out
}

// Stats counts snapshot attempt outcomes.
type Stats struct {
	Attempts int
	Saved    int
	Skipped  int
	Failed   int
}

// Scheduler runs the adaptive snapshot loop:
// Stopped -> Active(base) <-> Active(idle).
type Scheduler struct {
	saver Saver
	bus   *bus.Bus
	cfg   Config
	log   *zap.SugaredLogger

	mu           sync.Mutex
	running      bool
	idle         bool
	lastActivity time.Time
	timer        *time.Timer
	done         chan struct{}
	stats        Stats
}

// New creates a Scheduler over the given saver.
func New(saver Saver, b *bus.Bus, cfg Config, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		saver: saver,
		bus:   b,
		cfg:   cfg.withDefaults(),
		log:   log,
	}
}

// Start moves the scheduler from Stopped to Active(base) and schedules the
// first snapshot attempt. Starting twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.idle = false
	s.lastActivity = time.Now()
	s.done = make(chan struct{})
	s.scheduleLocked(s.cfg.BaseInterval)

	go s.idleLoop(s.done)
	s.log.Infow("auto-save started", "base_interval", s.cfg.BaseInterval)
}

// Stop cancels all pending timers and returns the scheduler to Stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	close(s.done)
	s.log.Info("auto-save stopped")
}

// Activity records a user-activity event. Events within the activity
// debounce window of the previous one are dropped. Activity while idle
// returns the loop to the base interval and reschedules the pending attempt.
func (s *Scheduler) Activity() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastActivity) < s.cfg.ActivityDebounce {
		return
	}
	s.lastActivity = now

	if s.running && s.idle {
		s.idle = false
		s.scheduleLocked(s.cfg.BaseInterval)
		s.log.Debug("activity observed, back to base interval")
	}
}

// ForceSave runs an immediate snapshot attempt, bypassing the debounce.
// Intended for explicit user actions such as leaving the page.
func (s *Scheduler) ForceSave(ctx context.Context) error {
	return s.attempt(ctx, true)
}

// Idle reports whether the loop is currently on the idle interval.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}

// Stats returns a copy of the attempt counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// idleLoop periodically checks whether inactivity crossed the threshold and
// switches the pending attempt to the idle interval.
func (s *Scheduler) idleLoop(done chan struct{}) {
	ticker := time.NewTicker(s.cfg.IdleCheckEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.running && !s.idle && time.Since(s.lastActivity) >= s.cfg.IdleThreshold {
				s.idle = true
				s.scheduleLocked(s.cfg.IdleInterval)
				s.log.Debugw("no recent activity, backing off", "idle_interval", s.cfg.IdleInterval)
			}
			s.mu.Unlock()
		}
	}
}

// scheduleLocked (re)arms the attempt timer. Callers hold s.mu.
func (s *Scheduler) scheduleLocked(d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, func() {
		_ = s.attempt(context.Background(), false)
	})
}

// attempt runs one scheduled snapshot attempt. Failures never stop the
// loop; the next attempt is always rescheduled.
func (s *Scheduler) attempt(ctx context.Context, force bool) error {
	s.mu.Lock()
	if !s.running && !force {
		s.mu.Unlock()
		return nil
	}
	recent := time.Since(s.lastActivity) < s.cfg.Debounce
	s.stats.Attempts++
	s.mu.Unlock()

	// Coalesce rapid edits: push the attempt past the quiet window.
	if !force && recent {
		s.mu.Lock()
		s.stats.Attempts--
		if s.running {
			s.scheduleLocked(s.cfg.Debounce)
		}
		s.mu.Unlock()
		return nil
	}

	var err error
	if !s.saver.HasChanges() {
		s.mu.Lock()
		s.stats.Skipped++
		s.mu.Unlock()
	} else {
		err = s.save(ctx)
		s.mu.Lock()
		if err != nil {
			s.stats.Failed++
		} else {
			s.stats.Saved++
		}
		s.mu.Unlock()

		if err != nil {
			s.log.Warnw("snapshot attempt failed", "error", err)
			s.bus.Emit(bus.TopicSystemError, bus.SystemError{Op: "autosave", Err: err})
		}
	}

	s.mu.Lock()
	if s.running {
		if s.idle {
			s.scheduleLocked(s.cfg.IdleInterval)
		} else {
			s.scheduleLocked(s.cfg.BaseInterval)
		}
	}
	s.mu.Unlock()
	return err
}

// save invokes the saver with the per-attempt budget. A timed-out attempt is
// treated as failed; the abandoned snapshot finishes in the background.
func (s *Scheduler) save(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- s.saver.Snapshot() }()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("snapshot attempt timed out after %s", s.cfg.AttemptTimeout)
	}
}
