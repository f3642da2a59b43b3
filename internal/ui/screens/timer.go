package screens

import (
	"errors"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"clockwidget/internal/core/model"
	"clockwidget/internal/display"
)

// CountdownControl is the command surface the timer screen drives.
type CountdownControl interface {
	Start(duration time.Duration)
	Pause()
	Reset()
	State() model.CountdownState
}

// TimerScreen is the countdown tab: a minutes/seconds form, the remaining
// time and start, pause and reset buttons.
type TimerScreen struct {
	control CountdownControl

	// lastValid is the most recent duration the form accepted.
	lastValid time.Duration

	content fyne.CanvasObject
	display *widget.Label
	minutes *widget.Entry
	seconds *widget.Entry
	message *widget.Label
	start   *widget.Button
	pause   *widget.Button
	reset   *widget.Button
}

// NewTimerScreen builds the timer tab with the form prefilled from preset.
func NewTimerScreen(control CountdownControl, preset time.Duration) *TimerScreen {
	screen := &TimerScreen{
		control: control,
		display: widget.NewLabelWithStyle(display.FormatCountdown(0), fyne.TextAlignCenter, fyne.TextStyle{Bold: true, Monospace: true}),
		minutes: widget.NewEntry(),
		seconds: widget.NewEntry(),
		message: widget.NewLabel(""),
	}
	screen.lastValid = preset
	screen.display.SizeName = theme.SizeNameHeadingText
	screen.minutes.SetPlaceHolder("mm")
	screen.seconds.SetPlaceHolder("ss")
	screen.fillForm(preset)

	screen.start = widget.NewButton("Start", screen.handleStart)
	screen.pause = widget.NewButton("Pause", control.Pause)
	screen.reset = widget.NewButton("Reset", control.Reset)

	form := container.NewGridWithColumns(4,
		widget.NewLabel("Minutes"), screen.minutes,
		widget.NewLabel("Seconds"), screen.seconds,
	)
	buttons := container.NewHBox(layout.NewSpacer(), screen.start, screen.pause, screen.reset, layout.NewSpacer())
	screen.content = container.NewVBox(screen.display, form, buttons, screen.message)

	screen.Render(control.State())
	return screen
}

// Content returns the tab body.
func (screen *TimerScreen) Content() fyne.CanvasObject {
	return screen.content
}

// Render shows state and enables the controls that apply to it. Must run on
// the fyne main thread.
func (screen *TimerScreen) Render(state model.CountdownState) {
	screen.display.SetText(display.FormatCountdown(state.Remaining))

	setEnabled(screen.start, !state.IsRunning)
	setEnabled(screen.pause, state.IsRunning)
	setEnabled(screen.reset, !state.IsRunning || state.Remaining > 0)

	editable := !state.IsRunning && state.Remaining <= 0
	setEnabled(screen.minutes, editable)
	setEnabled(screen.seconds, editable)
	if state.Remaining > 0 && !state.IsRunning {
		screen.start.SetText("Resume")
	} else {
		screen.start.SetText("Start")
	}
}

func (screen *TimerScreen) handleStart() {
	screen.message.SetText("")

	// A paused countdown resumes regardless of the form.
	if current := screen.control.State(); current.Remaining > 0 {
		screen.control.Start(current.Remaining)
		return
	}

	duration, err := display.ParseDuration(screen.minutes.Text, screen.seconds.Text)
	switch {
	case errors.Is(err, display.ErrInvalidDuration):
		screen.message.SetText("Minutes and seconds must be whole numbers")
		screen.fillForm(screen.lastValid)
		return
	case errors.Is(err, display.ErrDurationTooLong):
		screen.message.SetText("Enter at most 24 hours")
		screen.fillForm(screen.lastValid)
		return
	case err != nil:
		screen.message.SetText("Enter a time greater than 00:00")
		return
	}
	screen.lastValid = duration
	screen.fillForm(duration)
	screen.control.Start(duration)
}

func (screen *TimerScreen) fillForm(duration time.Duration) {
	minutes, seconds := display.SplitDuration(duration)
	screen.minutes.SetText(pad2(minutes))
	screen.seconds.SetText(pad2(seconds))
}

func pad2(value int) string {
	if value < 10 {
		return "0" + strconv.Itoa(value)
	}
	return strconv.Itoa(value)
}

type disableable interface {
	Enable()
	Disable()
}

func setEnabled(object disableable, enabled bool) {
	if enabled {
		object.Enable()
	} else {
		object.Disable()
	}
}
