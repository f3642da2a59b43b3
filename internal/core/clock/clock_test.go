package clock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clockwidget/internal/core/model"
	"clockwidget/internal/core/timesource"
)

type mockSource struct {
	mock.Mock
}

func (source *mockSource) Fetch(ctx context.Context) (model.ClockSnapshot, error) {
	args := source.Called(ctx)
	return args.Get(0).(model.ClockSnapshot), args.Error(1)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeFallback(now time.Time) model.ClockSnapshot {
	return model.ClockSnapshot{
		CurrentTime: now,
		ZoneLabel:   "Local",
		UTCOffset:   "+00:00",
	}
}

func (engine *Engine) isFetching() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.fetching
}

func newTestEngine(source timesource.Source) (*Engine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	engine := New(source, Options{
		Clock:    clock,
		Logger:   quietLogger(),
		Fallback: fakeFallback,
	})
	return engine, clock
}

func authoritative() model.ClockSnapshot {
	return model.ClockSnapshot{
		CurrentTime:     time.Date(2030, 1, 2, 3, 4, 5, 0, time.FixedZone("", 3600)),
		ZoneLabel:       "Europe/Berlin",
		UTCOffset:       "+01:00",
		IsAuthoritative: true,
	}
}

func TestNewPublishesFallbackSynchronously(t *testing.T) {
	engine, clock := newTestEngine(&mockSource{})
	defer engine.Stop()

	sub := engine.Subscribe(1)
	defer sub.Close()

	snapshot := <-sub.C()
	assert.False(t, snapshot.IsAuthoritative)
	assert.Equal(t, "Local", snapshot.ZoneLabel)
	assert.True(t, snapshot.CurrentTime.Equal(clock.Now()))
}

func TestConstructedWithoutNetworkUsesLocalTime(t *testing.T) {
	source := timesource.SourceFunc(func(context.Context) (model.ClockSnapshot, error) {
		return model.ClockSnapshot{}, fmt.Errorf("%w: offline", timesource.ErrTransport)
	})
	engine := New(source, Options{Logger: quietLogger()})
	defer engine.Stop()

	snapshot := engine.Snapshot()
	assert.False(t, snapshot.IsAuthoritative)
	assert.WithinDuration(t, time.Now(), snapshot.CurrentTime, time.Second)
}

func TestResyncSuccessAdoptsFetchedValues(t *testing.T) {
	source := &mockSource{}
	source.On("Fetch", mock.Anything).Return(authoritative(), nil).Once()
	engine, _ := newTestEngine(source)
	defer engine.Stop()

	sub := engine.Subscribe(4)
	defer sub.Close()
	<-sub.C()

	require.NoError(t, engine.Resync(context.Background()))

	published := <-sub.C()
	assert.Equal(t, authoritative(), published)
	assert.Equal(t, authoritative(), engine.Snapshot())
	source.AssertExpectations(t)
}

func TestResyncFailureFallsBackToLocalTime(t *testing.T) {
	source := &mockSource{}
	source.On("Fetch", mock.Anything).Return(authoritative(), nil).Once()
	source.On("Fetch", mock.Anything).Return(model.ClockSnapshot{}, timesource.ErrFormat).Once()
	engine, clock := newTestEngine(source)
	defer engine.Stop()

	require.NoError(t, engine.Resync(context.Background()))
	require.True(t, engine.Snapshot().IsAuthoritative)

	clock.Advance(42 * time.Second)
	err := engine.Resync(context.Background())
	assert.True(t, errors.Is(err, timesource.ErrFormat))

	snapshot := engine.Snapshot()
	assert.False(t, snapshot.IsAuthoritative)
	assert.True(t, snapshot.CurrentTime.Equal(clock.Now()))
	source.AssertExpectations(t)
}

func TestTickAdvancesByMeasuredDeltaAndKeepsAuthority(t *testing.T) {
	source := &mockSource{}
	source.On("Fetch", mock.Anything).Return(authoritative(), nil).Once()
	engine, clock := newTestEngine(source)
	defer engine.Stop()

	require.NoError(t, engine.Resync(context.Background()))

	clock.Advance(1500 * time.Millisecond)
	engine.Tick()
	clock.Advance(time.Second)
	engine.Tick()

	snapshot := engine.Snapshot()
	assert.True(t, snapshot.IsAuthoritative)
	assert.True(t, snapshot.CurrentTime.Equal(authoritative().CurrentTime.Add(2500*time.Millisecond)))
	assert.Equal(t, "Europe/Berlin", snapshot.ZoneLabel)
}

func TestStartResyncsImmediatelyThenPeriodically(t *testing.T) {
	fetched := make(chan struct{}, 4)
	source := timesource.SourceFunc(func(context.Context) (model.ClockSnapshot, error) {
		fetched <- struct{}{}
		return authoritative(), nil
	})
	engine, clock := newTestEngine(source)
	defer engine.Stop()

	engine.Start()
	engine.Start()

	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate fetch")
	}
	require.Eventually(t, func() bool {
		return engine.Snapshot().IsAuthoritative && !engine.isFetching()
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 2))

	clock.Advance(5 * time.Minute)
	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("expected a periodic fetch")
	}
}

func TestOverlappingResyncIsRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	source := timesource.SourceFunc(func(ctx context.Context) (model.ClockSnapshot, error) {
		close(started)
		<-release
		return authoritative(), nil
	})
	engine, _ := newTestEngine(source)
	defer engine.Stop()

	engine.RequestResync()
	<-started

	assert.ErrorIs(t, engine.Resync(context.Background()), ErrResyncInFlight)
	close(release)
	require.Eventually(t, func() bool {
		return engine.Snapshot().IsAuthoritative
	}, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotentAndClosesSubscriptions(t *testing.T) {
	source := timesource.SourceFunc(func(ctx context.Context) (model.ClockSnapshot, error) {
		<-ctx.Done()
		return model.ClockSnapshot{}, ctx.Err()
	})
	engine, _ := newTestEngine(source)
	sub := engine.Subscribe(1)
	<-sub.C()

	engine.Start()
	engine.Stop()
	engine.Stop()

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.ErrorIs(t, engine.Resync(context.Background()), ErrStopped)
}

func TestStopWaitsForBackgroundResync(t *testing.T) {
	for i := 0; i < 50; i++ {
		finished := make(chan struct{})
		source := timesource.SourceFunc(func(ctx context.Context) (model.ClockSnapshot, error) {
			defer close(finished)
			<-ctx.Done()
			return model.ClockSnapshot{}, ctx.Err()
		})
		engine, _ := newTestEngine(source)

		engine.RequestResync()
		engine.Stop()

		select {
		case <-finished:
		default:
			t.Fatalf("iteration %d: Stop returned before the fetch finished", i)
		}
		assert.False(t, engine.isFetching())
	}
}

func TestStopCancelsSynchronousResync(t *testing.T) {
	started := make(chan struct{})
	source := timesource.SourceFunc(func(ctx context.Context) (model.ClockSnapshot, error) {
		close(started)
		<-ctx.Done()
		return model.ClockSnapshot{}, ctx.Err()
	})
	engine, _ := newTestEngine(source)

	result := make(chan error, 1)
	go func() { result <- engine.Resync(context.Background()) }()
	<-started

	engine.Stop()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Resync did not return after Stop")
	}
	assert.False(t, engine.isFetching())
}
