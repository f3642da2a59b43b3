package model

import "time"

// Zone defaults used when no authoritative source is available.
const (
	DefaultZoneLabel = "Local"
	DefaultUTCOffset = ""
)

// ClockSnapshot is the displayed time at one instant. It is replaced
// wholesale on every update.
type ClockSnapshot struct {
	CurrentTime     time.Time
	ZoneLabel       string
	UTCOffset       string
	IsAuthoritative bool
}

// Advance returns a copy of the snapshot moved forward by delta.
func (snapshot ClockSnapshot) Advance(delta time.Duration) ClockSnapshot {
	snapshot.CurrentTime = snapshot.CurrentTime.Add(delta)
	return snapshot
}

// CountdownState is the observable state of a countdown.
// Remaining is never negative and IsRunning is false when Remaining is zero.
type CountdownState struct {
	Remaining time.Duration
	IsRunning bool
}

// CountdownCompleted is emitted once each time a countdown reaches zero.
type CountdownCompleted struct {
	At time.Time
}

// StopwatchState is the observable state of a stopwatch.
type StopwatchState struct {
	Elapsed   time.Duration
	Laps      []time.Duration
	IsRunning bool
}

// Clone returns a copy whose lap slice does not alias the receiver's.
func (state StopwatchState) Clone() StopwatchState {
	if state.Laps != nil {
		state.Laps = append([]time.Duration(nil), state.Laps...)
	}
	return state
}
