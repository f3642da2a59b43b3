package screens

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"clockwidget/internal/core/model"
	"clockwidget/internal/display"
)

// ClockScreen shows the current time, the zone and whether the time came
// from the network.
type ClockScreen struct {
	content fyne.CanvasObject
	time    *widget.Label
	zone    *widget.Label
	source  *widget.Label
	refresh *widget.Button
}

// NewClockScreen builds the clock tab. onRefresh is invoked from the
// refresh button and may be nil.
func NewClockScreen(onRefresh func()) *ClockScreen {
	screen := &ClockScreen{
		time:   widget.NewLabelWithStyle("--:--:--", fyne.TextAlignCenter, fyne.TextStyle{Bold: true, Monospace: true}),
		zone:   widget.NewLabelWithStyle(model.DefaultZoneLabel, fyne.TextAlignCenter, fyne.TextStyle{}),
		source: widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Italic: true}),
	}
	screen.time.SizeName = theme.SizeNameHeadingText
	screen.refresh = widget.NewButton("Sync now", func() {
		if onRefresh != nil {
			onRefresh()
		}
	})
	if onRefresh == nil {
		screen.refresh.Disable()
	}

	screen.content = container.NewVBox(
		screen.time,
		screen.zone,
		screen.source,
		container.NewCenter(screen.refresh),
	)
	return screen
}

// Content returns the tab body.
func (screen *ClockScreen) Content() fyne.CanvasObject {
	return screen.content
}

// Render shows snapshot. Must run on the fyne main thread.
func (screen *ClockScreen) Render(snapshot model.ClockSnapshot) {
	screen.time.SetText(display.FormatClock(snapshot))
	screen.zone.SetText(display.FormatZone(snapshot))
	if snapshot.IsAuthoritative {
		screen.source.SetText("Network time")
	} else {
		screen.source.SetText("Local time (offline)")
	}
}
