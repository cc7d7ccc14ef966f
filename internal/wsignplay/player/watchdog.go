package player

import (
	"context"
	"sync"
	"time"
)

// DefaultWatchdogInterval is how often the watchdog checks for a stall
const DefaultWatchdogInterval = 2 * time.Second

// Expectation is the deadline for the next advance of the item shown under Seq
type Expectation struct {
	Seq   uint64
	Since time.Time
	Bound time.Duration
}

// Watchdog forces an advance when the scheduler fails to produce one in
// time. It never touches playback state; it only posts the stalled sequence
// number, and the engine runs its regular advance for it.
type Watchdog struct {
	interval time.Duration
	fire     chan<- uint64
	now      func() time.Time
	rearm    chan struct{}

	mu    sync.Mutex
	exp   *Expectation
	fired bool
}

// NewWatchdog creates a watchdog posting stalled sequences to fire
func NewWatchdog(interval time.Duration, fire chan<- uint64) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		interval: interval,
		fire:     fire,
		now:      time.Now,
		rearm:    make(chan struct{}, 1),
	}
}

// Arm replaces the expectation and restarts the check interval
func (w *Watchdog) Arm(exp Expectation) {
	w.mu.Lock()
	w.exp = &exp
	w.fired = false
	w.mu.Unlock()

	select {
	case w.rearm <- struct{}{}:
	default:
	}
}

// Disarm drops the expectation
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exp = nil
	w.fired = false
}

// check returns the stalled sequence at most once per expectation
func (w *Watchdog) check(now time.Time) (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.exp == nil || w.fired {
		return 0, false
	}
	if now.Sub(w.exp.Since) <= w.exp.Bound {
		return 0, false
	}
	w.fired = true
	return w.exp.Seq, true
}

// Run checks every interval until ctx is done
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.rearm:
			ticker.Reset(w.interval)
		case <-ticker.C:
			seq, ok := w.check(w.now())
			if !ok {
				continue
			}
			select {
			case w.fire <- seq:
			case <-ctx.Done():
				return
			}
		}
	}
}
