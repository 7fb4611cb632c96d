// Package environment builds the variables handed to the parser process.
//
// The launcher never mutates its own process environment: the child
// environment is computed once into an Environment value and passed
// explicitly when the child is started.
package environment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Variables read by the parser server at startup
const (
	HOST_VARIABLE = "RESUME_PARSER_HOST"
	PORT_VARIABLE = "RESUME_PARSER_PORT"
	PATH_VARIABLE = "PATH"
)

var ErrMissingBind = errors.New("bind host and port are required")

// Settings are the launcher inputs of an Environment
type Settings struct {
	Host      string
	Port      string
	ToolPaths []string
	// Extra holds KEY=VALUE pairs applied before the recognized variables
	Extra []string
}

// Environment is a fully populated, read-only child environment
type Environment struct {
	variables map[string]string
}

// Build computes the child environment from base, usually os.Environ(),
// and the launcher settings.
func Build(base []string, settings Settings) (*Environment, error) {
	if settings.Host == "" || settings.Port == "" {
		return nil, ErrMissingBind
	}
	variables := make(map[string]string, len(base)+len(settings.Extra)+3)
	for _, variable := range base {
		if key, value, found := strings.Cut(variable, "="); found && key != "" {
			variables[key] = value
		}
	}
	for _, variable := range settings.Extra {
		key, value, found := strings.Cut(variable, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("extra variable %q is not KEY=VALUE", variable)
		}
		variables[key] = value
	}
	variables[PATH_VARIABLE] = AugmentPath(variables[PATH_VARIABLE], settings.ToolPaths)
	variables[HOST_VARIABLE] = settings.Host
	variables[PORT_VARIABLE] = settings.Port
	return &Environment{variables: variables}, nil
}

// AugmentPath appends to current the directories it does not list yet.
// Applying it twice with the same directories changes nothing.
func AugmentPath(current string, directories []string) string {
	var entries []string
	known := make(map[string]bool)
	if current != "" {
		entries = filepath.SplitList(current)
		for _, entry := range entries {
			known[filepath.Clean(entry)] = true
		}
	}
	for _, directory := range directories {
		if directory == "" || known[filepath.Clean(directory)] {
			continue
		}
		known[filepath.Clean(directory)] = true
		entries = append(entries, directory)
	}
	return strings.Join(entries, string(os.PathListSeparator))
}

func (environment *Environment) Get(key string) (value string, ok bool) {
	value, ok = environment.variables[key]
	return
}

func (environment *Environment) Host() string { return environment.variables[HOST_VARIABLE] }

func (environment *Environment) Port() string { return environment.variables[PORT_VARIABLE] }

func (environment *Environment) Path() string { return environment.variables[PATH_VARIABLE] }

// Address is the host:port pair announced to the user
func (environment *Environment) Address() string {
	return environment.Host() + ":" + environment.Port()
}

// Environ returns the sorted KEY=VALUE list for os/exec
func (environment *Environment) Environ() []string {
	keys := make([]string, 0, len(environment.variables))
	for key := range environment.variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	environ := make([]string, 0, len(keys))
	for _, key := range keys {
		environ = append(environ, key+"="+environment.variables[key])
	}
	return environ
}

// Recognized returns the variables set by the launcher itself
func (environment *Environment) Recognized() map[string]string {
	return map[string]string{
		HOST_VARIABLE: environment.Host(),
		PORT_VARIABLE: environment.Port(),
		PATH_VARIABLE: environment.Path(),
	}
}
