package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resumeparser.dev/launcher/internal/environment"
	"resumeparser.dev/launcher/internal/launcher"
	"resumeparser.dev/launcher/internal/snapshot"
)

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "last-launch.toml")
	written := snapshot.Snapshot{
		LaunchedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		Address:    "0.0.0.0:5001",
		WorkDir:    "/srv/application",
		EntryPoint: "/srv/application/server.py",
		Variables:  map[string]string{environment.PORT_VARIABLE: "5001"},
	}
	require.NoError(t, snapshot.Write(path, written))

	read, err := snapshot.Read(path)
	require.NoError(t, err)
	assert.True(t, written.LaunchedAt.Equal(read.LaunchedAt))
	assert.Equal(t, written.Address, read.Address)
	assert.Equal(t, written.WorkDir, read.WorkDir)
	assert.Equal(t, written.Variables, read.Variables)
}

func TestWriteTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last-launch.toml")
	require.NoError(t, os.WriteFile(path, []byte("garbage that is much longer than the snapshot itself = 1\n\n\n\n\n\n\n\n\n\n"), 0644))
	require.NoError(t, snapshot.Write(path, snapshot.Snapshot{Address: "127.0.0.1:5001"}))

	read, err := snapshot.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5001", read.Address)
}

func TestReadMissing(t *testing.T) {
	_, err := snapshot.Read(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecorderWritesOnAnnouncement(t *testing.T) {
	env, err := environment.Build([]string{"PATH=/usr/bin"}, environment.Settings{
		Host:      "0.0.0.0",
		Port:      "5001",
		ToolPaths: []string{"/usr/local/bin"},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "last-launch.toml")
	recorder := snapshot.Recorder{Path: path, Environment: env}

	recorder.HandleEvent(launcher.Event{Kind: launcher.EventConfigured})
	assert.NoFileExists(t, path)

	recorder.HandleEvent(launcher.Event{
		Kind:       launcher.EventAnnounced,
		Time:       time.Now(),
		Address:    env.Address(),
		WorkDir:    "/srv/application",
		EntryPoint: "/srv/application/server.py",
	})
	read, err := snapshot.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:5001", read.Address)
	assert.Equal(t, "0.0.0.0", read.Variables[environment.HOST_VARIABLE])
	assert.Equal(t, env.Path(), read.Variables[environment.PATH_VARIABLE])
}
