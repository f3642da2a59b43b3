// Package stopwatch implements an elapsed-time accumulator with laps.
package stopwatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"clockwidget/internal/core/model"
	"clockwidget/internal/core/observable"
	"clockwidget/internal/core/tick"
)

// Options contains runtime settings for Engine. Zero values select defaults.
type Options struct {
	Clock  clockwork.Clock
	Logger *slog.Logger
	// Guard, when set, is shared with other stopwatches that must not run
	// at the same time.
	Guard *RunGuard
}

// Engine accumulates elapsed time while running. Instances are independent
// unless they share a RunGuard.
type Engine struct {
	mu      sync.Mutex
	logger  *slog.Logger
	meter   *tick.Meter
	guard   *RunGuard
	elapsed time.Duration
	laps    []time.Duration
	running bool
	closed  bool

	state *observable.Property[model.StopwatchState]
}

// New creates a stopped stopwatch at zero.
func New(options Options) *Engine {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Engine{
		logger: options.Logger.With("component", "stopwatch"),
		meter:  tick.NewMeter(options.Clock),
		guard:  options.Guard,
		state:  observable.NewProperty(model.StopwatchState{}),
	}
}

// Start begins accumulating. No-op while running, or while another
// stopwatch holds the shared guard.
func (engine *Engine) Start() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || engine.running {
		return
	}
	if !engine.guard.acquire(engine) {
		engine.logger.Debug("another stopwatch is running, ignoring start")
		return
	}
	engine.running = true
	engine.meter.Reset()
	engine.publishLocked()
}

// Stop freezes the elapsed time, including the time since the last tick.
// No-op unless running.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || !engine.running {
		return
	}
	engine.accumulateLocked()
	engine.stopLocked()
	engine.publishLocked()
}

// Reset stops the stopwatch, zeroes the elapsed time and clears all laps.
func (engine *Engine) Reset() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	if engine.running {
		engine.stopLocked()
	}
	engine.elapsed = 0
	engine.laps = nil
	engine.publishLocked()
}

// RecordLap appends the current elapsed value to the lap list, whether or
// not the stopwatch is running.
func (engine *Engine) RecordLap() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	if engine.running {
		engine.accumulateLocked()
	}
	engine.laps = append(engine.laps, engine.elapsed)
	engine.publishLocked()
}

// Tick adds the wall-clock time elapsed since the previous tick. Ticks
// while stopped are ignored.
func (engine *Engine) Tick() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || !engine.running {
		return
	}
	engine.accumulateLocked()
	engine.publishLocked()
}

func (engine *Engine) accumulateLocked() {
	engine.elapsed += engine.meter.Delta()
}

// State returns the current state. The lap slice is a copy.
func (engine *Engine) State() model.StopwatchState {
	return engine.state.Get().Clone()
}

// Subscribe registers a state observer; the current state is replayed.
func (engine *Engine) Subscribe(buffer int) *observable.Subscription[model.StopwatchState] {
	return engine.state.Subscribe(buffer)
}

// Close stops the stopwatch, releases its guard and closes subscriptions.
// Close is idempotent.
func (engine *Engine) Close() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	if engine.running {
		engine.stopLocked()
	}
	engine.closed = true
	engine.mu.Unlock()

	engine.state.Close()
}

func (engine *Engine) stopLocked() {
	engine.running = false
	engine.guard.release(engine)
}

func (engine *Engine) publishLocked() {
	engine.state.Set(model.StopwatchState{
		Elapsed:   engine.elapsed,
		Laps:      append([]time.Duration(nil), engine.laps...),
		IsRunning: engine.running,
	})
}
