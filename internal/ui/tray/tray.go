package tray

import (
	"fmt"

	"fyne.io/fyne/v2"

	"clockwidget/internal/core/model"
	"clockwidget/internal/display"
)

// MenuHost is the part of desktop.App the tray needs.
type MenuHost interface {
	SetSystemTrayMenu(menu *fyne.Menu)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow            func()
	OnToggleTimer     func()
	OnResetTimer      func()
	OnToggleStopwatch func()
	OnLap             func()
	OnQuit            func()
}

// Manager keeps the tray menu in step with the engines.
type Manager struct {
	host      MenuHost
	callbacks Callbacks
	menu      *fyne.Menu

	clockItem       *fyne.MenuItem
	timerItem       *fyne.MenuItem
	timerToggle     *fyne.MenuItem
	timerReset      *fyne.MenuItem
	stopwatchItem   *fyne.MenuItem
	stopwatchToggle *fyne.MenuItem
	lapItem         *fyne.MenuItem
}

// New creates the tray menu and installs it on host.
func New(host MenuHost, callbacks Callbacks) *Manager {
	manager := &Manager{
		host:      host,
		callbacks: callbacks,
	}

	manager.clockItem = status("--:--:--")
	manager.timerItem = status("Timer: " + display.FormatCountdown(0))
	manager.stopwatchItem = status("Stopwatch: " + display.FormatStopwatch(0))

	manager.timerToggle = fyne.NewMenuItem("Start timer", invoke(&manager.callbacks.OnToggleTimer))
	manager.timerReset = fyne.NewMenuItem("Reset timer", invoke(&manager.callbacks.OnResetTimer))
	manager.stopwatchToggle = fyne.NewMenuItem("Start stopwatch", invoke(&manager.callbacks.OnToggleStopwatch))
	manager.lapItem = fyne.NewMenuItem("Lap", invoke(&manager.callbacks.OnLap))

	quit := fyne.NewMenuItem("Quit", invoke(&manager.callbacks.OnQuit))
	quit.IsQuit = true

	manager.menu = fyne.NewMenu("Clock Widget",
		fyne.NewMenuItem("Show", invoke(&manager.callbacks.OnShow)),
		manager.clockItem,
		fyne.NewMenuItemSeparator(),
		manager.timerItem,
		manager.timerToggle,
		manager.timerReset,
		fyne.NewMenuItemSeparator(),
		manager.stopwatchItem,
		manager.stopwatchToggle,
		manager.lapItem,
		fyne.NewMenuItemSeparator(),
		quit,
	)
	manager.refreshMenu()
	return manager
}

// Menu returns the installed menu.
func (manager *Manager) Menu() *fyne.Menu {
	return manager.menu
}

// SetClock shows the current time in the menu header.
func (manager *Manager) SetClock(snapshot model.ClockSnapshot) {
	label := display.FormatClock(snapshot)
	if !snapshot.IsAuthoritative {
		label += " (local)"
	}
	if manager.clockItem.Label == label {
		return
	}
	manager.clockItem.Label = label
	manager.refreshMenu()
}

// SetCountdown updates the timer entries.
func (manager *Manager) SetCountdown(state model.CountdownState) {
	label := fmt.Sprintf("Timer: %s", display.FormatCountdown(state.Remaining))
	var toggle string
	switch {
	case state.IsRunning:
		toggle = "Pause timer"
	case state.Remaining > 0:
		toggle = "Resume timer"
	default:
		toggle = "Start timer"
	}
	resetDisabled := !state.IsRunning && state.Remaining == 0
	if manager.timerItem.Label == label && manager.timerToggle.Label == toggle &&
		manager.timerReset.Disabled == resetDisabled {
		return
	}
	manager.timerItem.Label = label
	manager.timerToggle.Label = toggle
	manager.timerReset.Disabled = resetDisabled
	manager.refreshMenu()
}

// SetStopwatch updates the stopwatch entries.
func (manager *Manager) SetStopwatch(state model.StopwatchState) {
	label := fmt.Sprintf("Stopwatch: %s (%d laps)", display.FormatStopwatch(state.Elapsed), len(state.Laps))
	toggle := "Start stopwatch"
	if state.IsRunning {
		toggle = "Stop stopwatch"
	}
	if manager.stopwatchItem.Label == label && manager.stopwatchToggle.Label == toggle {
		return
	}
	manager.stopwatchItem.Label = label
	manager.stopwatchToggle.Label = toggle
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.host != nil {
		manager.host.SetSystemTrayMenu(manager.menu)
	}
}

func status(label string) *fyne.MenuItem {
	item := fyne.NewMenuItem(label, nil)
	item.Disabled = true
	return item
}

func invoke(callback *func()) func() {
	return func() {
		if *callback != nil {
			(*callback)()
		}
	}
}
