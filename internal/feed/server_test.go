package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockwidget/internal/core/countdown"
	"clockwidget/internal/core/model"
	"clockwidget/internal/core/observable"
	"clockwidget/internal/core/stopwatch"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	state   *observable.Property[model.ClockSnapshot]
	resyncs atomic.Int32
}

func (clock *fakeClock) Snapshot() model.ClockSnapshot { return clock.state.Get() }

func (clock *fakeClock) Subscribe(buffer int) *observable.Subscription[model.ClockSnapshot] {
	return clock.state.Subscribe(buffer)
}

func (clock *fakeClock) RequestResync() { clock.resyncs.Add(1) }

type fixture struct {
	server    *Server
	clock     *fakeClock
	countdown *countdown.Engine
	stopwatch *stopwatch.Engine
	ticks     *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ticks := clockwork.NewFakeClock()
	fx := &fixture{
		clock: &fakeClock{state: observable.NewProperty(model.ClockSnapshot{
			CurrentTime:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			ZoneLabel:       "Etc/UTC",
			UTCOffset:       "+00:00",
			IsAuthoritative: true,
		})},
		countdown: countdown.New(countdown.Options{Clock: ticks, Logger: quietLogger}),
		stopwatch: stopwatch.New(stopwatch.Options{Clock: ticks, Logger: quietLogger}),
		ticks:     ticks,
	}
	t.Cleanup(fx.countdown.Close)
	t.Cleanup(fx.stopwatch.Close)
	fx.server = New(Engines{
		Clock:     fx.clock,
		Countdown: fx.countdown,
		Stopwatch: fx.stopwatch,
	}, Options{Logger: quietLogger})
	return fx
}

func (fx *fixture) do(t *testing.T, method, target string, out any) int {
	t.Helper()
	resp, err := fx.server.App().Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetClock(t *testing.T) {
	fx := newFixture(t)

	var view ClockView
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodGet, "/api/clock", &view))
	assert.Equal(t, "12:00:00", view.Display)
	assert.Equal(t, "Etc/UTC", view.Zone)
	assert.Equal(t, "+00:00", view.UTCOffset)
	assert.True(t, view.Authoritative)
}

func TestResyncClock(t *testing.T) {
	fx := newFixture(t)

	assert.Equal(t, http.StatusAccepted, fx.do(t, http.MethodPost, "/api/clock/resync", nil))
	assert.Equal(t, int32(1), fx.clock.resyncs.Load())
}

func TestCountdownRoutes(t *testing.T) {
	fx := newFixture(t)

	var view CountdownView
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/countdown/start?seconds=90", &view))
	assert.True(t, view.Running)
	assert.Equal(t, int64(90_000), view.RemainingMs)
	assert.Equal(t, "01:30", view.Display)

	fx.ticks.Advance(10 * time.Second)
	fx.countdown.Tick()

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/countdown/pause", &view))
	assert.False(t, view.Running)
	assert.Equal(t, int64(80_000), view.RemainingMs)

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodGet, "/api/countdown", &view))
	assert.Equal(t, int64(80_000), view.RemainingMs)

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/countdown/reset", &view))
	assert.Equal(t, CountdownView{Display: "00:00"}, view)
}

func TestCountdownStartAcceptsMinutesAndSeconds(t *testing.T) {
	fx := newFixture(t)

	var view CountdownView
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/countdown/start?duration=02:30", &view))
	assert.Equal(t, int64(150_000), view.RemainingMs)
}

func TestCountdownStartRejectsBadInput(t *testing.T) {
	fx := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, fx.do(t, http.MethodPost, "/api/countdown/start?seconds=soon", nil))
	assert.Equal(t, http.StatusBadRequest, fx.do(t, http.MethodPost, "/api/countdown/start?seconds=0", nil))
	assert.Equal(t, http.StatusBadRequest, fx.do(t, http.MethodPost, "/api/countdown/start", nil))
	assert.Equal(t, http.StatusBadRequest, fx.do(t, http.MethodPost, "/api/countdown/start?seconds=99999999999", nil))
	assert.False(t, fx.countdown.State().IsRunning)
}

func TestStopwatchRoutes(t *testing.T) {
	fx := newFixture(t)

	var view StopwatchView
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/stopwatch/start", &view))
	assert.True(t, view.Running)

	fx.ticks.Advance(1230 * time.Millisecond)
	fx.stopwatch.Tick()
	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/stopwatch/lap", &view))
	assert.Equal(t, []int64{1230}, view.LapsMs)

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/stopwatch/stop", &view))
	assert.False(t, view.Running)
	assert.Equal(t, "00:01.2", view.Display)

	require.Equal(t, http.StatusOK, fx.do(t, http.MethodPost, "/api/stopwatch/reset", &view))
	assert.Equal(t, int64(0), view.ElapsedMs)
	assert.Empty(t, view.LapsMs)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	fx := newFixture(t)

	assert.Equal(t, http.StatusUpgradeRequired, fx.do(t, http.MethodGet, "/ws", nil))
}

func waitForMessage(t *testing.T, ch <-chan Message, match func(Message) bool) Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case message, ok := <-ch:
			require.True(t, ok, "client channel closed")
			if match(message) {
				return message
			}
		case <-deadline:
			require.FailNow(t, "timed out waiting for feed message")
		}
	}
}

func TestPumpBroadcastsEngineChanges(t *testing.T) {
	fx := newFixture(t)
	client, ok := fx.server.hub.add("test-client")
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fx.server.pump(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	waitForMessage(t, client.send, func(m Message) bool { return m.Type == MessageTypeClock })

	fx.countdown.Start(time.Second)
	message := waitForMessage(t, client.send, func(m Message) bool {
		view, ok := m.Data.(CountdownView)
		return m.Type == MessageTypeCountdown && ok && view.Running
	})
	assert.Equal(t, int64(1000), message.Data.(CountdownView).RemainingMs)

	fx.ticks.Advance(2 * time.Second)
	fx.countdown.Tick()
	completed := waitForMessage(t, client.send, func(m Message) bool { return m.Type == MessageTypeCompleted })
	assert.Equal(t, fx.ticks.Now(), completed.Data.(CompletedView).At)

	fx.stopwatch.Start()
	waitForMessage(t, client.send, func(m Message) bool {
		view, ok := m.Data.(StopwatchView)
		return m.Type == MessageTypeStopwatch && ok && view.Running
	})
}

func TestHubCloseAllRejectsNewClients(t *testing.T) {
	h := newHub(quietLogger)
	client, ok := h.add("a")
	require.True(t, ok)

	h.closeAll()
	_, open := <-client.send
	assert.False(t, open)
	assert.Zero(t, h.count())

	_, ok = h.add("b")
	assert.False(t, ok)
	h.remove("a")
}

func TestRunRequiresListenAddress(t *testing.T) {
	fx := newFixture(t)
	assert.ErrorIs(t, fx.server.Run(context.Background()), ErrNoListenAddress)
}

func TestRunStopsOnCancel(t *testing.T) {
	fx := newFixture(t)
	fx.server.options.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- fx.server.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		require.FailNow(t, "Run did not return after cancel")
	}
}
