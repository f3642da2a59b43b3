package feed

import (
	"time"

	"clockwidget/internal/core/model"
	"clockwidget/internal/display"
)

// MessageType tags a websocket envelope.
type MessageType string

const (
	MessageTypeClock     MessageType = "clock"
	MessageTypeCountdown MessageType = "countdown"
	MessageTypeStopwatch MessageType = "stopwatch"
	MessageTypeCompleted MessageType = "completed"
)

// Message is the websocket envelope pushed to every client.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// ClockView is the JSON form of a clock snapshot.
type ClockView struct {
	Time          time.Time `json:"time"`
	Display       string    `json:"display"`
	Zone          string    `json:"zone"`
	UTCOffset     string    `json:"utcOffset"`
	Authoritative bool      `json:"authoritative"`
}

// CountdownView is the JSON form of the countdown state.
type CountdownView struct {
	RemainingMs int64  `json:"remainingMs"`
	Display     string `json:"display"`
	Running     bool   `json:"running"`
}

// StopwatchView is the JSON form of the stopwatch state.
type StopwatchView struct {
	ElapsedMs int64   `json:"elapsedMs"`
	Display   string  `json:"display"`
	LapsMs    []int64 `json:"lapsMs"`
	Running   bool    `json:"running"`
}

// CompletedView reports a finished countdown.
type CompletedView struct {
	At time.Time `json:"at"`
}

func clockView(snapshot model.ClockSnapshot) ClockView {
	return ClockView{
		Time:          snapshot.CurrentTime,
		Display:       display.FormatClock(snapshot),
		Zone:          snapshot.ZoneLabel,
		UTCOffset:     snapshot.UTCOffset,
		Authoritative: snapshot.IsAuthoritative,
	}
}

func countdownView(state model.CountdownState) CountdownView {
	return CountdownView{
		RemainingMs: state.Remaining.Milliseconds(),
		Display:     display.FormatCountdown(state.Remaining),
		Running:     state.IsRunning,
	}
}

func stopwatchView(state model.StopwatchState) StopwatchView {
	laps := make([]int64, 0, len(state.Laps))
	for _, lap := range state.Laps {
		laps = append(laps, lap.Milliseconds())
	}
	return StopwatchView{
		ElapsedMs: state.Elapsed.Milliseconds(),
		Display:   display.FormatStopwatch(state.Elapsed),
		LapsMs:    laps,
		Running:   state.IsRunning,
	}
}
