//go:build unix

package cleanroom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// InheritBins makes every binary listed in bin.Inherit available inside
// targetBinDir as a symlink to the host binary.
//
// Entries are processed in order:
//
//  1. An absolute entry is used as-is. Any other entry is looked up in the
//     host PATH (from env.HostEnv, not bin.InheritDirs). If it is not found,
//     the entry fails with [ErrNotFoundInPath] when bin.ExitOnNotFound is set
//     and is skipped otherwise.
//  2. The resolved host binary must exist ([ErrHostBinaryMissing]).
//  3. The link is named after the entry's last path element
//     ([ErrDegenerateBinaryPath] if there is none).
//  4. The link is reconciled: created when missing, left alone when it
//     already points to the resolved binary. A non-symlink in its place fails
//     with [ErrNotASymlink]. A symlink pointing elsewhere fails with
//     [SymlinkConflictError] when bin.ExitOnChange is set and is kept
//     otherwise.
//
// The first fatal error stops processing. Links created before it are kept.
// Running InheritBins again with unchanged inputs changes nothing.
func InheritBins(bin envconfig.Bin, targetBinDir string, env Environment, debugf Debugf) error {
	if len(bin.Inherit) == 0 {
		return nil
	}

	pathDirs := parsePathDirs(env.HostEnv["PATH"], env.WorkDir)

	debugf.printf("bins: target=%s entries=%d host PATH dirs=%d", targetBinDir, len(bin.Inherit), len(pathDirs))

	for _, entry := range bin.Inherit {
		hostPath, err := resolveBinary(entry, pathDirs)
		if err != nil {
			if errors.Is(err, ErrNotFoundInPath) && !bin.ExitOnNotFound {
				debugf.printf("bins: skipping %q: not found in PATH", entry)

				continue
			}

			return err
		}

		err = checkHostBinary(hostPath)
		if err != nil {
			return err
		}

		name, err := binaryName(entry)
		if err != nil {
			return err
		}

		err = reconcileLink(filepath.Join(targetBinDir, name), hostPath, bin.ExitOnChange, debugf)
		if err != nil {
			return err
		}
	}

	return nil
}

// resolveBinary returns the absolute host path for a bin.inherit entry.
func resolveBinary(entry string, pathDirs []string) (string, error) {
	if filepath.IsAbs(entry) {
		return entry, nil
	}

	return lookupBinary(entry, pathDirs)
}

// lookupBinary returns the first candidate dir/name, in PATH order, that is a
// regular file the caller may execute. Unreadable PATH entries are skipped.
func lookupBinary(name string, pathDirs []string) (string, error) {
	for _, dir := range pathDirs {
		candidate := filepath.Join(dir, name)

		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		if unix.Access(candidate, unix.X_OK) != nil {
			continue
		}

		return candidate, nil
	}

	return "", fmt.Errorf("%w: %q (if it does exist, check its permissions)", ErrNotFoundInPath, name)
}

// parsePathDirs splits a PATH value into cleaned absolute directories.
// Empty entries are dropped, relative entries resolve against workDir, and
// each directory is kept once, at its first position.
func parsePathDirs(pathVar, workDir string) []string {
	parts := strings.Split(pathVar, string(os.PathListSeparator))
	seen := make(map[string]struct{})
	out := make([]string, 0, len(parts))

	for _, dir := range parts {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}

		if !filepath.IsAbs(dir) {
			dir = filepath.Join(workDir, dir)
		}

		dir = filepath.Clean(dir)

		if _, ok := seen[dir]; ok {
			continue
		}

		seen[dir] = struct{}{}
		out = append(out, dir)
	}

	return out
}

func checkHostBinary(path string) error {
	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrHostBinaryMissing, path)
		}

		return fmt.Errorf("checking host binary %s: %w", path, err)
	}

	return nil
}

// binaryName returns the last path element of a bin.inherit entry.
// Trailing slashes and "." elements are ignored, so "tools/git/" and
// "tools/git/." both name "git". "", "/", "." and anything ending in ".."
// have no name.
func binaryName(entry string) (string, error) {
	trimmed := strings.TrimRight(entry, "/")
	for strings.HasSuffix(trimmed, "/.") {
		trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, "/."), "/")
	}

	name := trimmed
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		name = trimmed[i+1:]
	}

	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrDegenerateBinaryPath, entry)
	}

	return name, nil
}

// reconcileLink makes link a symlink to target, or checks that it already is.
func reconcileLink(link, target string, exitOnChange bool, debugf Debugf) error {
	info, err := os.Lstat(link)
	if errors.Is(err, os.ErrNotExist) {
		err = os.Symlink(target, link)
		if err == nil {
			debugf.printf("bins: linked %s -> %s", link, target)

			return nil
		}

		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("creating symlink %s: %w", link, err)
		}

		// Created concurrently; inspect what is there now.
		info, err = os.Lstat(link)
	}

	if err != nil {
		return fmt.Errorf("inspecting %s: %w", link, err)
	}

	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%w: %s", ErrNotASymlink, link)
	}

	existing, err := os.Readlink(link)
	if err != nil {
		return fmt.Errorf("reading symlink %s: %w", link, err)
	}

	if existing == target {
		debugf.printf("bins: %s already points to %s", link, target)

		return nil
	}

	if exitOnChange {
		return &SymlinkConflictError{Link: link, Existing: existing, Wanted: target}
	}

	debugf.printf("bins: keeping %s -> %s (config resolves to %s)", link, existing, target)

	return nil
}
