package launcher

import "time"

type EventKind string

const (
	EventConfigured EventKind = "configured"
	EventAnnounced  EventKind = "announced"
	EventStarted    EventKind = "started"
	EventExited     EventKind = "exited"
	EventFailed     EventKind = "failed"
)

// Event describes one step of a launch
type Event struct {
	Kind       EventKind
	Time       time.Time
	Address    string
	WorkDir    string
	EntryPoint string
	PID        int
	ExitCode   int
	Err        error
}
