// Package notify announces finished countdowns.
package notify

import (
	"context"
	"log/slog"

	"clockwidget/internal/core/model"
	"clockwidget/internal/core/observable"
)

// Sink reacts to a finished countdown. OnCountdownCompleted is called at
// most once per completion event, from whichever goroutine forwards the
// events.
type Sink interface {
	OnCountdownCompleted()
}

// SinkFunc adapts a function to Sink.
type SinkFunc func()

// OnCountdownCompleted calls fn.
func (fn SinkFunc) OnCountdownCompleted() {
	fn()
}

// Forward delivers completion events to sink until ctx is done or the
// subscription is closed.
func Forward(ctx context.Context, events *observable.Subscription[model.CountdownCompleted], sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events.C():
			if !ok {
				return
			}
			sink.OnCountdownCompleted()
		}
	}
}

// Multi fans one completion out to several sinks in order.
type Multi []Sink

// OnCountdownCompleted notifies every sink.
func (sinks Multi) OnCountdownCompleted() {
	for _, sink := range sinks {
		if sink != nil {
			sink.OnCountdownCompleted()
		}
	}
}

// LogSink records completions in the structured log.
type LogSink struct {
	Logger *slog.Logger
}

// OnCountdownCompleted logs the completion.
func (sink LogSink) OnCountdownCompleted() {
	logger := sink.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("time's up", "component", "notify")
}
