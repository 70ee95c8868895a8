package process

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/tauraamui/archbooth/pkg/log"
)

// Scheduler throttles a fast wake source down to a target frame rate.
// A tick runs on a wake only once the minimum interval has elapsed
// since the previous tick, so ticks never exceed the target rate and
// the effective rate falls below it when wakes are sparse.
type Scheduler struct {
	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration
	last     time.Time
	ticked   bool
	tick     func(time.Time)
	onSkip   func()
}

type SchedulerSettings struct {
	TargetFPS int
	Clock     clock.Clock
	Tick      func(time.Time)
	// OnSkip is told about every wake which did not run a tick.
	OnSkip func()
}

func NewScheduler(settings SchedulerSettings) *Scheduler {
	c := settings.Clock
	if c == nil {
		c = clock.New()
	}
	return &Scheduler{
		clock:    c,
		interval: MinInterval(settings.TargetFPS),
		tick:     settings.Tick,
		onSkip:   settings.OnSkip,
	}
}

// MinInterval is 1000/fps milliseconds rounded up to the next nanosecond.
func MinInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Duration((int64(time.Second) + int64(fps) - 1) / int64(fps))
}

func (s *Scheduler) Interval() time.Duration { return s.interval }

// Wake runs the tick if the interval since the last tick has elapsed,
// reporting whether it did.
func (s *Scheduler) Wake(now time.Time) bool {
	s.mu.Lock()
	if s.ticked && now.Sub(s.last) < s.interval {
		s.mu.Unlock()
		if s.onSkip != nil {
			s.onSkip()
		}
		return false
	}
	s.ticked = true
	s.last = now
	s.mu.Unlock()

	if s.tick != nil {
		s.tick(now)
	}
	return true
}

// Run wakes at wakeHz until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, wakeHz int) {
	if wakeHz <= 0 {
		wakeHz = 60
	}
	ticker := s.clock.Ticker(MinInterval(wakeHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Wake(s.clock.Now())
		}
	}
}

// Process wraps Run so the scheduler stops and waits like any other process.
func (s *Scheduler) Process(wakeHz int) Process {
	return New(Settings{
		WaitForShutdownMsg: "Stopping frame scheduler...",
		Process: func(ctx context.Context) []chan interface{} {
			stopped := make(chan interface{})
			go func() {
				defer close(stopped)
				log.Debug("Frame scheduler running at %s minimum interval", s.interval)
				s.Run(ctx, wakeHz)
			}()
			return []chan interface{}{stopped}
		},
	})
}
