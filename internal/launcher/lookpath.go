package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var errNotExecutable = errors.New("not an executable file")

func isExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%s: %w", path, errNotExecutable)
	}
	return nil
}

// lookPath searches name in the given PATH value instead of the launcher's own.
// The result is absolute: the child runs in another directory and os/exec
// would search a bare name again on the launcher PATH.
func lookPath(name string, path string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if err := isExecutable(name); err != nil {
			return "", err
		}
		return filepath.Abs(name)
	}
	for _, directory := range filepath.SplitList(path) {
		if directory == "" {
			directory = "."
		}
		candidate := filepath.Join(directory, name)
		if isExecutable(candidate) == nil {
			return filepath.Abs(candidate)
		}
	}
	return "", fmt.Errorf("%s: executable file not found in PATH", name)
}
