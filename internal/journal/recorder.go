package journal

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"resumeparser.dev/launcher/internal/environment"
	"resumeparser.dev/launcher/internal/launcher"
)

// Recorder stores the lifecycle events of one launch as a Launch row.
// Storage failures are logged and never interrupt the launch.
type Recorder struct {
	journal *SQLiteJournal
	launch  Launch
}

func NewRecorder(journal *SQLiteJournal, env *environment.Environment) *Recorder {
	return &Recorder{
		journal: journal,
		launch: Launch{
			ID:   uuid.NewString(),
			Host: env.Host(),
			Port: env.Port(),
		},
	}
}

func (recorder *Recorder) Launch() Launch {
	return recorder.launch
}

// HandleEvent is meant to be subscribed to the launcher event emitter
func (recorder *Recorder) HandleEvent(event launcher.Event) {
	switch event.Kind {
	case launcher.EventConfigured:
		recorder.launch.StartedAt = event.Time
		return
	case launcher.EventAnnounced:
		recorder.launch.WorkDir = event.WorkDir
		recorder.launch.EntryPoint = event.EntryPoint
	case launcher.EventStarted:
		recorder.launch.PID = event.PID
	case launcher.EventExited:
		recorder.launch.ExitCode = event.ExitCode
		recorder.launch.FinishedAt = sql.NullTime{Time: event.Time, Valid: true}
	case launcher.EventFailed:
		recorder.launch.WorkDir = event.WorkDir
		recorder.launch.EntryPoint = event.EntryPoint
		recorder.launch.ExitCode = 1
		recorder.launch.FinishedAt = sql.NullTime{Time: event.Time, Valid: true}
		if event.Err != nil {
			recorder.launch.Error = event.Err.Error()
		}
	default:
		return
	}
	if err := recorder.journal.CreateOrUpdate(&recorder.launch); err != nil {
		logrus.Warn("Cannot record the launch in the journal")
		logrus.Warnf("%+v", err)
	}
}
