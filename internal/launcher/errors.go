package launcher

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageApplicationDirectory Stage = "application-directory"
	StageEntryPoint           Stage = "entry-point"
	StageStart                Stage = "start"
)

var (
	ErrApplicationDirectory = errors.New("application directory not available")
	ErrEntryPoint           = errors.New("entry point not available")
	ErrStart                = errors.New("child process could not be started")
	ErrExecUnsupported      = errors.New("process replacement is not supported on this platform")
)

// StartError reports a launch that failed before the child was running.
// It matches the sentinel of its stage with errors.Is.
type StartError struct {
	Stage Stage
	Err   error
}

func (startError *StartError) Error() string {
	return fmt.Sprintf("%s: %v", startError.Stage, startError.Err)
}

func (startError *StartError) Unwrap() error { return startError.Err }

func (startError *StartError) Is(target error) bool {
	switch startError.Stage {
	case StageApplicationDirectory:
		return target == ErrApplicationDirectory
	case StageEntryPoint:
		return target == ErrEntryPoint
	case StageStart:
		return target == ErrStart
	}
	return false
}

// ExitError carries the non-zero exit code of the child
type ExitError struct {
	Code int
}

func (exitError *ExitError) Error() string {
	return fmt.Sprintf("parser exited with code %d", exitError.Code)
}
