// Package tick drives engines with measured wall-clock deltas.
package tick

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the frame interval used when none is configured.
const DefaultInterval = 50 * time.Millisecond

// Ticker is advanced once per frame.
type Ticker interface {
	Tick()
}

// Meter measures the wall-clock time elapsed between successive calls.
// It is not safe for concurrent use; owners guard it with their own lock.
type Meter struct {
	clock clockwork.Clock
	last  time.Time
}

// NewMeter creates a meter anchored at the clock's current time.
func NewMeter(clock clockwork.Clock) *Meter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Meter{clock: clock, last: clock.Now()}
}

// Reset re-anchors the meter at the current time and discards any elapsed
// time.
func (meter *Meter) Reset() {
	meter.last = meter.clock.Now()
}

// Delta returns the time elapsed since the previous Delta or Reset and
// re-anchors. It never returns a negative value.
func (meter *Meter) Delta() time.Duration {
	now := meter.clock.Now()
	delta := now.Sub(meter.last)
	meter.last = now
	if delta < 0 {
		return 0
	}
	return delta
}

// Loop calls Tick on its targets at a fixed interval from one goroutine.
type Loop struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	interval time.Duration
	targets  []Ticker
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewLoop creates a stopped loop.
func NewLoop(clock clockwork.Clock, interval time.Duration, targets ...Ticker) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		clock:    clock,
		interval: interval,
		targets:  targets,
	}
}

// Start launches the ticking goroutine. Starting a running loop is a no-op.
func (loop *Loop) Start() {
	loop.mu.Lock()
	defer loop.mu.Unlock()
	if loop.running {
		return
	}
	loop.running = true
	loop.stopCh = make(chan struct{})
	loop.doneCh = make(chan struct{})
	ticker := loop.clock.NewTicker(loop.interval)
	go loop.run(ticker, loop.stopCh, loop.doneCh)
}

// Stop halts the loop and waits for the goroutine to exit. Stop is
// idempotent.
func (loop *Loop) Stop() {
	loop.mu.Lock()
	if !loop.running {
		loop.mu.Unlock()
		return
	}
	loop.running = false
	close(loop.stopCh)
	done := loop.doneCh
	loop.mu.Unlock()
	<-done
}

// Running reports whether the loop goroutine is active.
func (loop *Loop) Running() bool {
	loop.mu.Lock()
	defer loop.mu.Unlock()
	return loop.running
}

func (loop *Loop) run(ticker clockwork.Ticker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			for _, target := range loop.targets {
				target.Tick()
			}
		}
	}
}
