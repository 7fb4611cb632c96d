//go:build !unix

package launcher

import "os"

func replaceProcess(_ string, _ []string, _ []string) error {
	return ErrExecUnsupported
}

func exitCode(state *os.ProcessState) int {
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

func sharesProcessGroup(_ int) bool {
	return false
}
