// Package clock keeps the displayed wall-clock time, resynchronising it
// from a remote time source and falling back to the local clock when the
// source is unavailable.
package clock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"clockwidget/internal/core/model"
	"clockwidget/internal/core/observable"
	"clockwidget/internal/core/tick"
	"clockwidget/internal/core/timesource"
)

var (
	// ErrResyncInFlight is returned when a fetch is already running.
	ErrResyncInFlight = errors.New("resync already in flight")
	// ErrStopped is returned by Resync after Stop.
	ErrStopped = errors.New("clock engine stopped")
)

// Options contains runtime settings for Engine. Zero values select defaults.
type Options struct {
	ResyncInterval time.Duration
	TickInterval   time.Duration
	FetchTimeout   time.Duration

	Clock    clockwork.Clock
	Logger   *slog.Logger
	Fallback func(now time.Time) model.ClockSnapshot
}

func (options Options) withDefaults() Options {
	if options.ResyncInterval <= 0 {
		options.ResyncInterval = 5 * time.Minute
	}
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.FetchTimeout <= 0 {
		options.FetchTimeout = timesource.DefaultTimeout
	}
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Fallback == nil {
		options.Fallback = timesource.LocalFallbackAt
	}
	return options
}

// Engine owns the displayed time. Between resyncs the cached baseline is
// advanced by the measured wall-clock delta on every tick.
type Engine struct {
	mu       sync.Mutex
	source   timesource.Source
	options  Options
	logger   *slog.Logger
	baseline model.ClockSnapshot
	meter    *tick.Meter
	state    *observable.Property[model.ClockSnapshot]

	fetchCtx    context.Context
	cancelFetch context.CancelFunc
	fetching    bool
	fetches     sync.WaitGroup

	running bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an engine and publishes the local fallback immediately.
func New(source timesource.Source, options Options) *Engine {
	options = options.withDefaults()
	baseline := options.Fallback(options.Clock.Now())
	fetchCtx, cancel := context.WithCancel(context.Background())

	return &Engine{
		source:      source,
		options:     options,
		logger:      options.Logger.With("component", "clock"),
		baseline:    baseline,
		meter:       tick.NewMeter(options.Clock),
		state:       observable.NewProperty(baseline),
		fetchCtx:    fetchCtx,
		cancelFetch: cancel,
	}
}

// Snapshot returns the latest published snapshot.
func (engine *Engine) Snapshot() model.ClockSnapshot {
	return engine.state.Get()
}

// Subscribe registers an observer; the current snapshot is replayed.
func (engine *Engine) Subscribe(buffer int) *observable.Subscription[model.ClockSnapshot] {
	return engine.state.Subscribe(buffer)
}

// Start launches the resync and tick timers. The first resync is issued
// immediately. Start on a running or stopped engine is a no-op.
func (engine *Engine) Start() {
	engine.mu.Lock()
	if engine.running || engine.stopped {
		engine.mu.Unlock()
		return
	}
	engine.running = true
	engine.stopCh = make(chan struct{})
	engine.doneCh = make(chan struct{})
	engine.meter.Reset()
	resync := engine.options.Clock.NewTicker(engine.options.ResyncInterval)
	ticks := engine.options.Clock.NewTicker(engine.options.TickInterval)
	go engine.run(resync, ticks, engine.stopCh, engine.doneCh)
	engine.mu.Unlock()

	engine.RequestResync()
}

// Stop halts both timers, cancels any in-flight fetch and closes
// subscriptions. Stop is idempotent.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	if engine.stopped {
		engine.mu.Unlock()
		return
	}
	engine.stopped = true
	var done chan struct{}
	if engine.running {
		engine.running = false
		close(engine.stopCh)
		done = engine.doneCh
	}
	engine.cancelFetch()
	engine.mu.Unlock()

	if done != nil {
		<-done
	}
	engine.fetches.Wait()
	engine.state.Close()
}

// RequestResync starts a fetch in the background unless one is already
// running.
func (engine *Engine) RequestResync() {
	if !engine.beginFetch() {
		return
	}
	go func() {
		defer engine.endFetch()
		engine.fetchAndAdopt(engine.fetchCtx)
	}()
}

// Resync fetches synchronously and adopts the result, or the local fallback
// when the fetch fails. The fetch error is returned after the fallback has
// been published. Stop cancels a Resync in progress.
func (engine *Engine) Resync(ctx context.Context) error {
	engine.mu.Lock()
	stopped := engine.stopped
	engine.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	if !engine.beginFetch() {
		return ErrResyncInFlight
	}
	defer engine.endFetch()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopCancel := context.AfterFunc(engine.fetchCtx, cancel)
	defer stopCancel()
	return engine.fetchAndAdopt(ctx)
}

// Tick advances the displayed time by the wall-clock time elapsed since the
// previous tick or adoption and publishes it.
func (engine *Engine) Tick() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.stopped {
		return
	}
	engine.baseline = engine.baseline.Advance(engine.meter.Delta())
	engine.state.Set(engine.baseline)
}

func (engine *Engine) run(resync, ticks clockwork.Ticker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer resync.Stop()
	defer ticks.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-resync.Chan():
			engine.RequestResync()
		case <-ticks.Chan():
			engine.Tick()
		}
	}
}

func (engine *Engine) beginFetch() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.fetching || engine.stopped {
		return false
	}
	engine.fetching = true
	// Counted under mu so Stop, which sets stopped under mu, never waits
	// on a counter that is about to grow.
	engine.fetches.Add(1)
	return true
}

func (engine *Engine) endFetch() {
	engine.mu.Lock()
	engine.fetching = false
	engine.mu.Unlock()
	engine.fetches.Done()
}

func (engine *Engine) fetchAndAdopt(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, engine.options.FetchTimeout)
	defer cancel()

	engine.logger.Debug("fetching authoritative time")
	snapshot, err := engine.source.Fetch(ctx)
	engine.adopt(snapshot, err)
	return err
}

func (engine *Engine) adopt(snapshot model.ClockSnapshot, err error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.stopped {
		return
	}

	if err != nil {
		engine.logger.Warn("time fetch failed, falling back to local clock", "error", err)
		snapshot = engine.options.Fallback(engine.options.Clock.Now())
	} else {
		snapshot.IsAuthoritative = true
		engine.logger.Info("adopted authoritative time", "zone", snapshot.ZoneLabel, "offset", snapshot.UTCOffset)
	}

	engine.baseline = snapshot
	engine.meter.Reset()
	engine.state.Set(snapshot)
}
