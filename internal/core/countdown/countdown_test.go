package countdown

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockwidget/internal/core/model"
)

func newTestEngine() (*Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	engine := New(Options{
		Clock:  clock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return engine, clock
}

func advance(engine *Engine, clock *clockwork.FakeClock, step time.Duration, steps int) {
	for i := 0; i < steps; i++ {
		clock.Advance(step)
		engine.Tick()
	}
}

func drainCompletions(sub interface {
	C() <-chan model.CountdownCompleted
}) int {
	count := 0
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}

func TestInitialStateIsIdle(t *testing.T) {
	engine, _ := newTestEngine()
	defer engine.Close()

	assert.Equal(t, model.CountdownState{}, engine.State())
}

func TestTenSecondCountdownCompletesOnce(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()
	completions := engine.Completions(4)

	engine.Start(10 * time.Second)
	advance(engine, clock, 100*time.Millisecond, 100)

	state := engine.State()
	assert.Equal(t, time.Duration(0), state.Remaining)
	assert.False(t, state.IsRunning)

	advance(engine, clock, time.Second, 5)
	assert.Equal(t, 1, drainCompletions(completions))
}

func TestRemainingIsMonotonicAndNeverNegative(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()

	engine.Start(3 * time.Second)
	previous := engine.State().Remaining
	steps := []time.Duration{
		170 * time.Millisecond, 0, 900 * time.Millisecond, 33 * time.Millisecond,
		time.Second, 2 * time.Second, 500 * time.Millisecond,
	}
	for _, step := range steps {
		clock.Advance(step)
		engine.Tick()
		current := engine.State().Remaining
		assert.LessOrEqual(t, current, previous)
		assert.GreaterOrEqual(t, current, time.Duration(0))
		previous = current
	}
	assert.Equal(t, time.Duration(0), previous)
}

func TestPauseFreezesRemaining(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()

	engine.Start(10 * time.Second)
	advance(engine, clock, time.Second, 3)
	engine.Pause()
	require.Equal(t, model.CountdownState{Remaining: 7 * time.Second}, engine.State())

	clock.Advance(2 * time.Second)
	engine.Tick()
	assert.Equal(t, 7*time.Second, engine.State().Remaining)

	engine.Start(time.Hour)
	state := engine.State()
	assert.True(t, state.IsRunning)
	assert.Equal(t, 7*time.Second, state.Remaining)

	advance(engine, clock, time.Second, 1)
	assert.Equal(t, 6*time.Second, engine.State().Remaining)
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()

	engine.Start(5 * time.Second)
	advance(engine, clock, time.Second, 1)
	engine.Start(time.Minute)

	assert.Equal(t, 4*time.Second, engine.State().Remaining)
	assert.Equal(t, 5*time.Second, engine.Target())
}

func TestNonPositiveDurationIsIgnored(t *testing.T) {
	engine, _ := newTestEngine()
	defer engine.Close()

	engine.Start(0)
	engine.Start(-time.Second)

	assert.Equal(t, model.CountdownState{}, engine.State())
}

func TestPauseAndResetNeverComplete(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()
	completions := engine.Completions(4)

	engine.Start(2 * time.Second)
	advance(engine, clock, 500*time.Millisecond, 1)
	engine.Pause()
	engine.Pause()
	engine.Reset()
	engine.Reset()

	assert.Equal(t, model.CountdownState{}, engine.State())
	assert.Equal(t, time.Duration(0), engine.Target())
	assert.Equal(t, 0, drainCompletions(completions))
}

func TestRestartAfterCompletion(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()
	completions := engine.Completions(4)

	engine.Start(time.Second)
	advance(engine, clock, 2*time.Second, 1)
	engine.Start(2 * time.Second)
	require.Equal(t, model.CountdownState{Remaining: 2 * time.Second, IsRunning: true}, engine.State())
	advance(engine, clock, time.Second, 3)

	assert.Equal(t, 2, drainCompletions(completions))
}

func TestPausedCountdownDoesNotDecayAcrossResume(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()

	engine.Start(10 * time.Second)
	advance(engine, clock, time.Second, 3)
	engine.Pause()
	clock.Advance(2 * time.Second)
	engine.Start(10 * time.Second)

	clock.Advance(100 * time.Millisecond)
	engine.Tick()
	assert.Equal(t, 6900*time.Millisecond, engine.State().Remaining)
}

func TestSubscribersSeeTransitions(t *testing.T) {
	engine, clock := newTestEngine()
	defer engine.Close()

	sub := engine.Subscribe(8)
	assert.Equal(t, model.CountdownState{}, <-sub.C())

	engine.Start(2 * time.Second)
	assert.Equal(t, model.CountdownState{Remaining: 2 * time.Second, IsRunning: true}, <-sub.C())

	advance(engine, clock, time.Second, 1)
	assert.Equal(t, model.CountdownState{Remaining: time.Second, IsRunning: true}, <-sub.C())

	advance(engine, clock, time.Second, 1)
	assert.Equal(t, model.CountdownState{}, <-sub.C())
}

func TestCloseIsIdempotent(t *testing.T) {
	engine, _ := newTestEngine()
	state := engine.Subscribe(1)
	completions := engine.Completions(1)
	<-state.C()

	engine.Close()
	engine.Close()
	engine.Start(time.Second)

	_, ok := <-state.C()
	assert.False(t, ok)
	_, ok = <-completions.C()
	assert.False(t, ok)
}
