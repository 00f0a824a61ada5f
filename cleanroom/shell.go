//go:build unix

package cleanroom

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// ShellArgs returns the arguments passed to shell.Bin, in this order:
//
//  1. --noprofile when shell.NoProfile is set.
//  2. --rcfile rcFile -i when shell.NoRC is unset and shell.Interactive is
//     set, --norc otherwise.
//  3. -l when shell.Login is set.
func ShellArgs(shell envconfig.Shell, rcFile string) []string {
	args := make([]string, 0, 5)

	if shell.NoProfile {
		args = append(args, "--noprofile")
	}

	if !shell.NoRC && shell.Interactive {
		args = append(args, "--rcfile", rcFile, "-i")
	} else {
		args = append(args, "--norc")
	}

	if shell.Login {
		args = append(args, "-l")
	}

	return args
}

// BuildPath joins dirs, in order, into a PATH value. It fails with
// [ErrPathEncoding] if a directory is not valid UTF-8 or contains the list
// separator.
func BuildPath(dirs []string) (string, error) {
	for _, dir := range dirs {
		if !utf8.ValidString(dir) {
			return "", fmt.Errorf("%w: %q is not valid UTF-8", ErrPathEncoding, dir)
		}

		if strings.ContainsRune(dir, os.PathListSeparator) {
			return "", fmt.Errorf("%w: %q contains %q", ErrPathEncoding, dir, os.PathListSeparator)
		}
	}

	return strings.Join(dirs, string(os.PathListSeparator)), nil
}

// resolveShell returns the executable started for shell.bin. A bare name is
// looked up in the environment's own PATH directories, since that is the PATH
// the shell runs with.
func resolveShell(bin string, inheritDirs []string) (string, error) {
	if strings.TrimSpace(bin) == "" {
		return "", fmt.Errorf("%w: shell.bin is empty", ErrInvalidShell)
	}

	if strings.Contains(bin, "/") {
		return bin, nil
	}

	path, err := lookupBinary(bin, inheritDirs)
	if err != nil {
		return "", fmt.Errorf("%w: %q not found in bin.inherit_dirs", ErrInvalidShell, bin)
	}

	return path, nil
}

// ExitStatus is how the shell terminated.
type ExitStatus struct {
	// Code is the exit code. For a shell killed by a signal it is
	// 128 + the signal number, as reported by POSIX shells.
	Code int
	// Signal is the terminating signal, or zero if the shell exited.
	Signal syscall.Signal
}

// exitStatus converts the result of exec.Cmd.Wait into an ExitStatus.
func exitStatus(state *os.ProcessState, waitErr error) (ExitStatus, error) {
	if state == nil {
		return ExitStatus{Code: 1}, fmt.Errorf("waiting for shell: %w", waitErr)
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()

		return ExitStatus{Code: 128 + int(sig), Signal: sig}, fmt.Errorf("%w: terminated by %v", ErrAbnormalExit, sig)
	}

	status := ExitStatus{Code: state.ExitCode()}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return status, fmt.Errorf("waiting for shell: %w", waitErr)
	}

	return status, nil
}
