package screens

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"clockwidget/internal/core/model"
	"clockwidget/internal/display"
)

// StopwatchControl is the command surface the stopwatch screen drives.
type StopwatchControl interface {
	Start()
	Stop()
	Reset()
	RecordLap()
	State() model.StopwatchState
}

// StopwatchScreen is the stopwatch tab with its lap list.
type StopwatchScreen struct {
	control StopwatchControl

	content fyne.CanvasObject
	display *widget.Label
	toggle  *widget.Button
	lap     *widget.Button
	reset   *widget.Button
	lapList *widget.List
	laps    []string
}

// NewStopwatchScreen builds the stopwatch tab.
func NewStopwatchScreen(control StopwatchControl) *StopwatchScreen {
	screen := &StopwatchScreen{
		control: control,
		display: widget.NewLabelWithStyle(display.FormatStopwatch(0), fyne.TextAlignCenter, fyne.TextStyle{Bold: true, Monospace: true}),
	}
	screen.display.SizeName = theme.SizeNameHeadingText

	screen.toggle = widget.NewButton("Start", screen.handleToggle)
	screen.lap = widget.NewButton("Lap", control.RecordLap)
	screen.reset = widget.NewButton("Reset", control.Reset)

	screen.lapList = widget.NewList(
		func() int { return len(screen.laps) },
		func() fyne.CanvasObject { return widget.NewLabel("LAP 00: 00:00.0") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			item.(*widget.Label).SetText(screen.laps[id])
		},
	)

	buttons := container.NewHBox(layout.NewSpacer(), screen.toggle, screen.lap, screen.reset, layout.NewSpacer())
	header := container.NewVBox(screen.display, buttons)
	screen.content = container.NewBorder(header, nil, nil, nil, screen.lapList)

	screen.Render(control.State())
	return screen
}

// Content returns the tab body.
func (screen *StopwatchScreen) Content() fyne.CanvasObject {
	return screen.content
}

// Laps returns the rendered lap lines.
func (screen *StopwatchScreen) Laps() []string {
	return append([]string(nil), screen.laps...)
}

// Render shows state. Must run on the fyne main thread.
func (screen *StopwatchScreen) Render(state model.StopwatchState) {
	screen.display.SetText(display.FormatStopwatch(state.Elapsed))

	if state.IsRunning {
		screen.toggle.SetText("Stop")
	} else {
		screen.toggle.SetText("Start")
	}

	if len(state.Laps) != len(screen.laps) {
		screen.laps = screen.laps[:0]
		for index, lap := range state.Laps {
			screen.laps = append(screen.laps, display.FormatLap(index, lap))
		}
		screen.lapList.Refresh()
	}
}

func (screen *StopwatchScreen) handleToggle() {
	if screen.control.State().IsRunning {
		screen.control.Stop()
		return
	}
	screen.control.Start()
}
