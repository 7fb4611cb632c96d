package launcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookPathUsesGivenPath(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "python3"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "python3"), []byte("#!/bin/sh\n"), 0755))

	found, err := lookPath("python3", strings.Join([]string{first, second}, string(os.PathListSeparator)))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "python3"), found)

	_, err = lookPath("python3", first)
	assert.Error(t, err)
}

func TestLookPathWithSeparator(t *testing.T) {
	directory := t.TempDir()
	interpreter := filepath.Join(directory, "python3")
	require.NoError(t, os.WriteFile(interpreter, []byte("#!/bin/sh\n"), 0755))

	found, err := lookPath(interpreter, "")
	require.NoError(t, err)
	assert.Equal(t, interpreter, found)

	_, err = lookPath(filepath.Join(directory, "missing"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// chdir moves the test into directory until it ends
func chdir(t *testing.T, directory string) {
	t.Helper()
	workingDirectory, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(directory))
	t.Cleanup(func() { _ = os.Chdir(workingDirectory) })
}

func TestLookPathEmptyEntryIsAbsolute(t *testing.T) {
	directory, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(directory, "mysh"), []byte("#!/bin/sh\n"), 0755))
	chdir(t, directory)

	found, err := lookPath("mysh", string(os.PathListSeparator)+"/nonexistent")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(found))
	assert.Equal(t, filepath.Join(directory, "mysh"), found)
}

func TestLookPathRelativeNameIsAbsolute(t *testing.T) {
	directory, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(directory, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(directory, "bin", "python3"), []byte("#!/bin/sh\n"), 0755))
	chdir(t, directory)

	found, err := lookPath(filepath.Join("bin", "python3"), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(directory, "bin", "python3"), found)
}
