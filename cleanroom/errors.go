//go:build unix

package cleanroom

import (
	"errors"
	"fmt"
)

// Variable resolution errors.
var (
	// ErrMissingVariable is returned when a variable listed in vars.inherit is
	// absent from the host environment and vars.exit_on_missing is set.
	ErrMissingVariable = errors.New("variable not found in parent environment")
	// ErrInvalidVariableEncoding is returned when an inherited variable's value
	// is not valid UTF-8 text.
	ErrInvalidVariableEncoding = errors.New("variable does not contain valid UTF-8")
)

// Binary resolution errors.
var (
	// ErrNotFoundInPath is returned when a relative bin.inherit entry is not
	// found in any host PATH directory.
	ErrNotFoundInPath = errors.New("binary not found in PATH")
	// ErrHostBinaryMissing is returned when the resolved host binary does not
	// exist.
	ErrHostBinaryMissing = errors.New("binary does not exist on host")
	// ErrDegenerateBinaryPath is returned for a bin.inherit entry without a
	// file name, e.g. one that ends in "..".
	ErrDegenerateBinaryPath = errors.New("binary path has no file name")
)

// Symlink reconciliation errors.
var (
	// ErrNotASymlink is returned when the link target inside the environment's
	// bin directory exists and is not a symlink.
	ErrNotASymlink = errors.New("found non-symlink binary")
	// ErrSymlinkConflict is wrapped by [SymlinkConflictError].
	ErrSymlinkConflict = errors.New("symlink points to a different binary")
)

// Activation errors.
var (
	// ErrPathEncoding is returned when a bin.inherit_dirs entry cannot be
	// written into PATH.
	ErrPathEncoding = errors.New("directory cannot be represented in PATH")
	// ErrInvalidShell is returned when shell.bin is empty or cannot be found.
	ErrInvalidShell = errors.New("invalid shell")
	// ErrSpawn is returned when the shell process cannot be started.
	ErrSpawn = errors.New("cannot start shell")
	// ErrAbnormalExit is returned when the shell is terminated by a signal.
	ErrAbnormalExit = errors.New("shell exited abnormally")
)

// Layout errors.
var (
	// ErrInvalidName is returned for environment names that cannot be used as
	// a directory name.
	ErrInvalidName = errors.New("invalid environment name")
	// ErrEnvExists is returned when creating an environment that exists.
	ErrEnvExists = errors.New("environment already exists")
	// ErrEnvNotFound is returned when an environment does not exist.
	ErrEnvNotFound = errors.New("environment does not exist")
	// ErrConfigFileMissing is returned when an environment's config directory
	// exists but holds no config document.
	ErrConfigFileMissing = errors.New("environment config file does not exist")
)

// SymlinkConflictError is returned when a link in the environment's bin
// directory already exists but points to a different binary than the one
// bin.inherit resolves to, and bin.exit_on_change is set.
type SymlinkConflictError struct {
	// Link is the path of the link inside the environment's bin directory.
	Link string
	// Existing is the current destination of Link.
	Existing string
	// Wanted is the resolved host binary.
	Wanted string
}

func (e *SymlinkConflictError) Error() string {
	return fmt.Sprintf("%s: %s points to %s but the config resolves it to %s (exit_on_change is true)",
		ErrSymlinkConflict, e.Link, e.Existing, e.Wanted)
}

func (e *SymlinkConflictError) Unwrap() error {
	return ErrSymlinkConflict
}
