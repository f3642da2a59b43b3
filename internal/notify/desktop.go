package notify

import "fyne.io/fyne/v2"

// DesktopSink raises a desktop notification through the fyne app.
type DesktopSink struct {
	App   fyne.App
	Title string
	Body  string
}

// OnCountdownCompleted sends the notification.
func (sink DesktopSink) OnCountdownCompleted() {
	if sink.App == nil {
		return
	}
	title := sink.Title
	if title == "" {
		title = "Timer"
	}
	body := sink.Body
	if body == "" {
		body = "Time's up!"
	}
	sink.App.SendNotification(fyne.NewNotification(title, body))
}
