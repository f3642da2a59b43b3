// Package screens builds the Clock, Timer and Stopwatch tabs of the desktop
// window. Screens only render values handed to them; Bind connects an engine
// subscription to a screen on the fyne main thread.
package screens

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"

	"clockwidget/internal/core/observable"
)

// Bind renders every value delivered on sub until the subscription closes.
func Bind[T any](sub *observable.Subscription[T], render func(T)) {
	go func() {
		for value := range sub.C() {
			fyne.Do(func() {
				render(value)
			})
		}
	}()
}

// NewTabs lays the three screens out as the widget's tab bar.
func NewTabs(clock *ClockScreen, timer *TimerScreen, stopwatch *StopwatchScreen) *container.AppTabs {
	tabs := container.NewAppTabs(
		container.NewTabItemWithIcon("Clock", theme.HistoryIcon(), clock.Content()),
		container.NewTabItemWithIcon("Timer", theme.MediaPlayIcon(), timer.Content()),
		container.NewTabItemWithIcon("Stopwatch", theme.MediaRecordIcon(), stopwatch.Content()),
	)
	tabs.SetTabLocation(container.TabLocationTop)
	return tabs
}
