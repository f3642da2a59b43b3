// Package display renders engine state as the text shown by the hosts and
// parses the duration input typed by users.
package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clockwidget/internal/core/model"
)

var (
	// ErrInvalidDuration is returned for input that is not a number.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrZeroDuration is returned when the parsed duration is not positive.
	ErrZeroDuration = errors.New("duration must be positive")
	// ErrDurationTooLong is returned when the parsed duration exceeds
	// MaxDuration.
	ErrDurationTooLong = errors.New("duration too long")
)

// MaxDuration bounds countdown input.
const MaxDuration = 24 * time.Hour

// FormatClock renders the wall clock as HH:mm:ss.
func FormatClock(snapshot model.ClockSnapshot) string {
	return snapshot.CurrentTime.Format("15:04:05")
}

// FormatZone renders the zone line, e.g. "Europe/Berlin (UTC+02:00)".
func FormatZone(snapshot model.ClockSnapshot) string {
	label := snapshot.ZoneLabel
	if label == "" {
		label = model.DefaultZoneLabel
	}
	if snapshot.UTCOffset == "" {
		return label
	}
	return fmt.Sprintf("%s (UTC%s)", label, snapshot.UTCOffset)
}

// FormatCountdown renders remaining time as mm:ss where minutes may exceed 59.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	totalSeconds := int64(remaining / time.Second)
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}

// FormatStopwatch renders elapsed time as mm:ss.t with tenths truncated.
func FormatStopwatch(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	tenths := int64(elapsed / (100 * time.Millisecond))
	totalSeconds := tenths / 10
	return fmt.Sprintf("%02d:%02d.%d", totalSeconds/60, totalSeconds%60, tenths%10)
}

// FormatLap renders the lap at zero-based index.
func FormatLap(index int, lap time.Duration) string {
	return fmt.Sprintf("LAP %d: %s", index+1, FormatStopwatch(lap))
}

// ParseDuration turns the minutes and seconds fields of the timer form into
// a duration. Seconds are clamped to 0..59 and negative minutes to 0.
func ParseDuration(minutesText, secondsText string) (time.Duration, error) {
	minutes, err := parseField(minutesText)
	if err != nil {
		return 0, fmt.Errorf("minutes: %w", err)
	}
	seconds, err := parseField(secondsText)
	if err != nil {
		return 0, fmt.Errorf("seconds: %w", err)
	}

	minutes = max(minutes, 0)
	seconds = min(max(seconds, 0), 59)
	if minutes > int(MaxDuration/time.Minute) {
		return 0, ErrDurationTooLong
	}

	duration := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if duration <= 0 {
		return 0, ErrZeroDuration
	}
	if duration > MaxDuration {
		return 0, ErrDurationTooLong
	}
	return duration, nil
}

// ParseSpec accepts either "mm:ss" or a plain number of seconds.
func ParseSpec(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if minutesText, secondsText, ok := strings.Cut(spec, ":"); ok {
		return ParseDuration(minutesText, secondsText)
	}

	seconds, err := parseField(spec)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, ErrZeroDuration
	}
	if seconds > int(MaxDuration/time.Second) {
		return 0, ErrDurationTooLong
	}
	return time.Duration(seconds) * time.Second, nil
}

// SplitDuration returns the whole minutes and remaining seconds of d, used to
// prefill the timer form.
func SplitDuration(d time.Duration) (minutes, seconds int) {
	if d < 0 {
		return 0, 0
	}
	totalSeconds := int(d / time.Second)
	return totalSeconds / 60, totalSeconds % 60
}

func parseField(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	return value, nil
}
