// Package countdown implements a pausable countdown timer that fires a
// completion event when it reaches zero.
package countdown

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
}

// Engine is the countdown state machine:
// idle -> running -> paused -> running -> completed -> idle (via Reset).
type Engine struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	logger    *slog.Logger
	meter     *tick.Meter
	remaining time.Duration
	target    time.Duration
	running   bool
	closed    bool

	state     *observable.Property[model.CountdownState]
	completed *observable.Stream[model.CountdownCompleted]
}

// New creates an idle countdown.
func New(options Options) *Engine {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Engine{
		clock:     options.Clock,
		logger:    options.Logger.With("component", "countdown"),
		meter:     tick.NewMeter(options.Clock),
		state:     observable.NewProperty(model.CountdownState{}),
		completed: observable.NewStream[model.CountdownCompleted](),
	}
}

// Start begins a countdown from duration. A paused countdown with time left
// resumes instead and duration is ignored. Start is a no-op while running
// and for non-positive durations.
func (engine *Engine) Start(duration time.Duration) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || engine.running {
		return
	}

	if engine.remaining > 0 {
		engine.logger.Debug("resuming countdown", "remaining", engine.remaining)
	} else {
		if duration <= 0 {
			engine.logger.Debug("ignoring countdown start with non-positive duration", "duration", duration)
			return
		}
		engine.target = duration
		engine.remaining = duration
		engine.logger.Debug("starting countdown", "duration", duration)
	}

	engine.running = true
	engine.meter.Reset()
	engine.publishLocked()
}

// Pause freezes the remaining time at its last ticked value. No-op unless
// running.
func (engine *Engine) Pause() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || !engine.running {
		return
	}
	engine.running = false
	engine.publishLocked()
}

// Reset stops the countdown and zeroes the remaining time. No completion
// event is emitted.
func (engine *Engine) Reset() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	engine.running = false
	engine.remaining = 0
	engine.target = 0
	engine.publishLocked()
}

// Tick subtracts the wall-clock time elapsed since the previous tick. When
// the countdown reaches zero it stops and emits exactly one completion
// event. Ticks while not running are ignored.
func (engine *Engine) Tick() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || !engine.running {
		return
	}

	engine.remaining -= engine.meter.Delta()
	if engine.remaining <= 0 {
		engine.completeLocked()
		return
	}
	engine.publishLocked()
}

// State returns the current state.
func (engine *Engine) State() model.CountdownState {
	return engine.state.Get()
}

// Target returns the duration of the current run, or zero when idle.
func (engine *Engine) Target() time.Duration {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.target
}

// Subscribe registers a state observer; the current state is replayed.
func (engine *Engine) Subscribe(buffer int) *observable.Subscription[model.CountdownState] {
	return engine.state.Subscribe(buffer)
}

// Completions registers an observer for completion events.
func (engine *Engine) Completions(buffer int) *observable.Subscription[model.CountdownCompleted] {
	return engine.completed.Subscribe(buffer)
}

// Close stops the countdown and closes all subscriptions. Close is
// idempotent.
func (engine *Engine) Close() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	engine.closed = true
	engine.running = false
	engine.mu.Unlock()

	engine.state.Close()
	engine.completed.Close()
}

func (engine *Engine) completeLocked() {
	engine.remaining = 0
	engine.running = false
	engine.publishLocked()
	engine.logger.Info("countdown completed", "duration", engine.target)
	engine.completed.Emit(model.CountdownCompleted{At: engine.clock.Now()})
}

func (engine *Engine) publishLocked() {
	engine.state.Set(model.CountdownState{
		Remaining: engine.remaining,
		IsRunning: engine.running,
	})
}
