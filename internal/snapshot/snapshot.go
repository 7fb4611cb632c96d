// Package snapshot saves the environment of the last launch as TOML.
package snapshot

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"resumeparser.dev/launcher/internal/environment"
	"resumeparser.dev/launcher/internal/launcher"
)

type Snapshot struct {
	LaunchedAt time.Time         `toml:"launched_at"`
	Address    string            `toml:"address"`
	WorkDir    string            `toml:"work_dir"`
	EntryPoint string            `toml:"entry_point"`
	Variables  map[string]string `toml:"variables"`
}

func Write(path string, snapshot Snapshot) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	var file *os.File
	if file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644); err != nil {
		return
	}
	defer func() {
		if closeError := file.Close(); err == nil {
			err = closeError
		}
	}()
	writer := bufio.NewWriter(file)
	if err = toml.NewEncoder(writer).Encode(snapshot); err != nil {
		return
	}
	return writer.Flush()
}

func Read(path string) (snapshot Snapshot, err error) {
	_, err = toml.DecodeFile(path, &snapshot)
	return
}

// Recorder writes a snapshot once the launch has been announced
type Recorder struct {
	Path        string
	Environment *environment.Environment
}

func (recorder *Recorder) HandleEvent(event launcher.Event) {
	if event.Kind != launcher.EventAnnounced {
		return
	}
	snapshot := Snapshot{
		LaunchedAt: event.Time,
		Address:    event.Address,
		WorkDir:    event.WorkDir,
		EntryPoint: event.EntryPoint,
		Variables:  recorder.Environment.Recognized(),
	}
	if err := Write(recorder.Path, snapshot); err != nil {
		logrus.Warn("Cannot write the environment snapshot")
		logrus.Warnf("%+v", err)
		return
	}
	logrus.Debugf("Environment snapshot written to %s", recorder.Path)
}
