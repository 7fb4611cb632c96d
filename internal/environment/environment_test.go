package environment_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"resumeparser.dev/launcher/internal/environment"
)

var defaultSettings = environment.Settings{
	Host:      "0.0.0.0",
	Port:      "5001",
	ToolPaths: []string{"/usr/local/bin", "/opt/homebrew/bin"},
}

func join(entries ...string) string {
	return strings.Join(entries, string(os.PathListSeparator))
}

func TestBuildDefaults(t *testing.T) {
	env, err := environment.Build([]string{"PATH=" + join("/usr/bin", "/bin"), "HOME=/root"}, defaultSettings)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", env.Host())
	assert.Equal(t, "5001", env.Port())
	assert.Equal(t, "0.0.0.0:5001", env.Address())
	assert.Equal(t, join("/usr/bin", "/bin", "/usr/local/bin", "/opt/homebrew/bin"), env.Path())

	home, ok := env.Get("HOME")
	assert.True(t, ok)
	assert.Equal(t, "/root", home)
}

func TestBuildOverridesInheritedBind(t *testing.T) {
	env, err := environment.Build([]string{
		environment.HOST_VARIABLE + "=127.0.0.1",
		environment.PORT_VARIABLE + "=5000",
	}, defaultSettings)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", env.Host())
	assert.Equal(t, "5001", env.Port())
}

func TestBuildRequiresBind(t *testing.T) {
	_, err := environment.Build(nil, environment.Settings{Port: "5001"})
	assert.ErrorIs(t, err, environment.ErrMissingBind)
	_, err = environment.Build(nil, environment.Settings{Host: "0.0.0.0"})
	assert.ErrorIs(t, err, environment.ErrMissingBind)
}

func TestBuildExtraVariables(t *testing.T) {
	settings := defaultSettings
	settings.Extra = []string{"OPENAI_API_KEY=key=with=equals", environment.PORT_VARIABLE + "=1"}
	env, err := environment.Build(nil, settings)
	require.NoError(t, err)

	key, _ := env.Get("OPENAI_API_KEY")
	assert.Equal(t, "key=with=equals", key)
	assert.Equal(t, "5001", env.Port(), "recognized variables win over extra ones")

	settings.Extra = []string{"NOVALUE"}
	_, err = environment.Build(nil, settings)
	assert.Error(t, err)
}

func TestBuildWithoutInheritedPath(t *testing.T) {
	env, err := environment.Build(nil, defaultSettings)
	require.NoError(t, err)
	assert.Equal(t, join("/usr/local/bin", "/opt/homebrew/bin"), env.Path())
}

func TestAugmentPathIsIdempotent(t *testing.T) {
	directories := []string{"/usr/local/bin", "/opt/tools/", ""}
	once := environment.AugmentPath(join("/usr/bin", "/usr/local/bin"), directories)
	twice := environment.AugmentPath(once, directories)

	assert.Equal(t, join("/usr/bin", "/usr/local/bin", "/opt/tools/"), once)
	assert.Equal(t, once, twice)
}

func TestAugmentPathDeduplicatesArguments(t *testing.T) {
	assert.Equal(t, join("/a", "/b"), environment.AugmentPath("", []string{"/a", "/b", "/a/"}))
}

// Repeated launches from the same parent must export the same bind values
func TestRepeatedBuildsAreStable(t *testing.T) {
	first, err := environment.Build(os.Environ(), defaultSettings)
	require.NoError(t, err)
	second, err := environment.Build(first.Environ(), defaultSettings)
	require.NoError(t, err)

	assert.Equal(t, first.Environ(), second.Environ())
}

func TestEnvironIsSorted(t *testing.T) {
	env, err := environment.Build([]string{"ZED=1", "ALPHA=2", "malformed"}, defaultSettings)
	require.NoError(t, err)

	environ := env.Environ()
	assert.IsNonDecreasing(t, environ)
	assert.Contains(t, environ, "ALPHA=2")
	assert.Contains(t, environ, environment.HOST_VARIABLE+"=0.0.0.0")
	assert.NotContains(t, environ, "malformed")
}

func TestRecognized(t *testing.T) {
	env, err := environment.Build(nil, defaultSettings)
	require.NoError(t, err)
	recognized := env.Recognized()
	assert.Equal(t, "0.0.0.0", recognized[environment.HOST_VARIABLE])
	assert.Equal(t, "5001", recognized[environment.PORT_VARIABLE])
	assert.Equal(t, env.Path(), recognized[environment.PATH_VARIABLE])
}
