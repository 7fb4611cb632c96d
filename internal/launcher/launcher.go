// Package launcher starts the resume parser server with its environment.
//
// A launch is a strict sequence: resolve the application directory,
// resolve the entry point, announce the bind address, start the child and
// wait for it. Nothing is announced or started when an earlier step fails.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"resumeparser.dev/launcher/internal/environment"
	"resumeparser.dev/launcher/pkg/eventemitter"
)

// Settings locate the program to start
type Settings struct {
	// ApplicationDirectory is relative to the launcher executable unless absolute
	ApplicationDirectory string
	EntryPoint           string
	// Interpreter runs the entry point; empty executes the entry point itself
	Interpreter string
	// Exec replaces the launcher process with the child
	Exec bool
}

// ExecFunc replaces the running process image, as syscall.Exec does
type ExecFunc func(argv0 string, argv []string, envv []string) error

type Launcher struct {
	settings    Settings
	environment *environment.Environment

	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer
	baseDirectory  string
	replaceProcess ExecFunc
	now            func() time.Time

	// Event emitters
	EventEmitter *eventemitter.EventEmitter[Event]
}

type Option func(*Launcher)

func WithOutput(stdout io.Writer, stderr io.Writer) Option {
	return func(launcher *Launcher) {
		launcher.stdout = stdout
		launcher.stderr = stderr
	}
}

func WithInput(stdin io.Reader) Option {
	return func(launcher *Launcher) { launcher.stdin = stdin }
}

// WithBaseDirectory replaces the launcher executable location when resolving
// a relative application directory
func WithBaseDirectory(directory string) Option {
	return func(launcher *Launcher) { launcher.baseDirectory = directory }
}

func WithExecFunc(replace ExecFunc) Option {
	return func(launcher *Launcher) { launcher.replaceProcess = replace }
}

func New(settings Settings, env *environment.Environment, options ...Option) *Launcher {
	instance := &Launcher{
		settings:       settings,
		environment:    env,
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		replaceProcess: replaceProcess,
		now:            time.Now,
		EventEmitter:   &eventemitter.EventEmitter[Event]{},
	}
	for _, option := range options {
		option(instance)
	}
	return instance
}

// Launch starts the entry point and blocks until it exits. A child exiting
// with a non-zero code is reported as *ExitError.
func (launcher *Launcher) Launch(ctx context.Context) (err error) {
	event := Event{Address: launcher.environment.Address()}
	defer func() {
		if err == nil {
			return
		}
		var exitError *ExitError
		if !errors.As(err, &exitError) {
			event.Kind = EventFailed
			event.Err = err
			event.Time = launcher.now()
			launcher.EventEmitter.Emit(event)
		}
	}()
	launcher.emit(&event, EventConfigured)

	var workDir string
	if workDir, err = launcher.ApplicationDirectory(); err != nil {
		return
	}
	event.WorkDir = workDir

	var argv []string
	if argv, err = launcher.command(workDir); err != nil {
		return
	}
	event.EntryPoint = argv[len(argv)-1]

	if _, err = fmt.Fprintf(launcher.stdout, "Parser Running at %s\n", launcher.environment.Address()); err != nil {
		return
	}
	launcher.emit(&event, EventAnnounced)

	if launcher.settings.Exec {
		return launcher.exec(argv, workDir)
	}

	process := exec.CommandContext(ctx, argv[0], argv[1:]...)
	process.Dir = workDir
	process.Env = launcher.environment.Environ()
	process.Stdin = launcher.stdin
	process.Stdout = launcher.stdout
	process.Stderr = launcher.stderr
	if err = process.Start(); err != nil {
		err = &StartError{Stage: StageStart, Err: err}
		return
	}
	event.PID = process.Process.Pid
	logrus.Debugf("Parser started with pid %d in %s", event.PID, workDir)
	launcher.emit(&event, EventStarted)

	stopForwarding := forwardSignals(process.Process)
	waitError := process.Wait()
	stopForwarding()

	event.ExitCode = 0
	if process.ProcessState != nil {
		event.ExitCode = exitCode(process.ProcessState)
	}
	var childExit *exec.ExitError
	if waitError != nil && !errors.As(waitError, &childExit) {
		logrus.Error("Waiting for the parser failed")
		logrus.Errorf("%+v", waitError)
		if event.ExitCode == 0 {
			event.ExitCode = 1
		}
	}
	launcher.emit(&event, EventExited)
	if event.ExitCode != 0 {
		err = &ExitError{Code: event.ExitCode}
	}
	return
}

// ApplicationDirectory returns the absolute working directory of the child
func (launcher *Launcher) ApplicationDirectory() (string, error) {
	directory := launcher.settings.ApplicationDirectory
	if !filepath.IsAbs(directory) {
		base := launcher.baseDirectory
		if base == "" {
			executable, err := os.Executable()
			if err != nil {
				return "", &StartError{Stage: StageApplicationDirectory, Err: err}
			}
			if resolved, err := filepath.EvalSymlinks(executable); err == nil {
				executable = resolved
			}
			base = filepath.Dir(executable)
		}
		directory = filepath.Join(base, directory)
	}
	info, err := os.Stat(directory)
	if err != nil {
		return "", &StartError{Stage: StageApplicationDirectory, Err: err}
	}
	if !info.IsDir() {
		return "", &StartError{
			Stage: StageApplicationDirectory,
			Err:   fmt.Errorf("%s is not a directory", directory),
		}
	}
	return directory, nil
}

// command returns the argv of the child, entry point last
func (launcher *Launcher) command(workDir string) ([]string, error) {
	entryPoint := launcher.settings.EntryPoint
	if !filepath.IsAbs(entryPoint) {
		entryPoint = filepath.Join(workDir, entryPoint)
	}
	info, err := os.Stat(entryPoint)
	if err != nil {
		return nil, &StartError{Stage: StageEntryPoint, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &StartError{Stage: StageEntryPoint, Err: fmt.Errorf("%s is not a regular file", entryPoint)}
	}

	if launcher.settings.Interpreter == "" {
		if err = isExecutable(entryPoint); err != nil {
			return nil, &StartError{Stage: StageEntryPoint, Err: err}
		}
		return []string{entryPoint}, nil
	}
	interpreter, err := lookPath(launcher.settings.Interpreter, launcher.environment.Path())
	if err != nil {
		return nil, &StartError{Stage: StageEntryPoint, Err: err}
	}
	return []string{interpreter, entryPoint}, nil
}

func (launcher *Launcher) exec(argv []string, workDir string) error {
	if err := os.Chdir(workDir); err != nil {
		return &StartError{Stage: StageApplicationDirectory, Err: err}
	}
	logrus.Debugf("Replacing the launcher with %s", argv[0])
	if err := launcher.replaceProcess(argv[0], argv, launcher.environment.Environ()); err != nil {
		return &StartError{Stage: StageStart, Err: err}
	}
	return nil
}

func shouldForward(received os.Signal, pid int) bool {
	return received != os.Interrupt || !sharesProcessGroup(pid)
}

func (launcher *Launcher) emit(event *Event, kind EventKind) {
	event.Kind = kind
	event.Time = launcher.now()
	launcher.EventEmitter.Emit(*event)
}

// forwardSignals relays termination signals to the child until stopped.
// An interrupt is not relayed to a child sharing the launcher process
// group: a terminal Ctrl-C already reaches the whole group.
func forwardSignals(process *os.Process) (stop func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	var waitGroup sync.WaitGroup
	waitGroup.Add(1)
	go func() {
		defer waitGroup.Done()
		for {
			select {
			case received := <-signals:
				if !shouldForward(received, process.Pid) {
					logrus.Debugf("Not forwarding %s, the parser shares the process group", received)
					continue
				}
				logrus.Debugf("Forwarding %s to the parser", received)
				if err := process.Signal(received); err != nil {
					logrus.Warnf("Cannot forward %s: %v", received, err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
		waitGroup.Wait()
	}
}
