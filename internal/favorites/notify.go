package favorites

import "log/slog"

// Messages for successful toggles.
const (
	MessageAdded   = "Added to Favourites"
	MessageRemoved = "Removed from Favourites"
)

// Level is the severity of a Notification.
type Level int

const (
	Info Level = iota
	Error
)

func (l Level) String() string {
	if l == Error {
		return "error"
	}
	return "info"
}

// Notification is a short, dismissible message about a settled toggle.
type Notification struct {
	Level    Level
	ArtistID string
	Message  string
	Err      error
}

// Notifier receives notifications. Notify may be called from any
// goroutine.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notification) {
	if n.Level == Error {
		l.Logger.Error(n.Message, "artist_id", n.ArtistID, "error", n.Err)
		return
	}
	l.Logger.Info(n.Message, "artist_id", n.ArtistID)
}
