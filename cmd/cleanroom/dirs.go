//go:build unix

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const appName = "cleanroom"

var errNoHomeDir = errors.New("cannot determine home directory")

// Dirs are the roots below which environments live.
type Dirs struct {
	ConfigHome string
	DataHome   string
}

// resolveDirs picks the config and data homes. Flag values win; otherwise
// the XDG base directories from env are used, falling back to the
// defaults below $HOME.
func resolveDirs(env map[string]string, configOverride, dataOverride string) (Dirs, error) {
	configHome, err := baseDir(env, configOverride, "XDG_CONFIG_HOME", ".config")
	if err != nil {
		return Dirs{}, err
	}

	dataHome, err := baseDir(env, dataOverride, "XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return Dirs{}, err
	}

	return Dirs{ConfigHome: configHome, DataHome: dataHome}, nil
}

func baseDir(env map[string]string, override, xdgVar, homeRel string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", override, err)
		}

		return abs, nil
	}

	// Relative XDG values are invalid and ignored.
	if xdg := env[xdgVar]; xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName), nil
	}

	home, err := homeDir(env)
	if err != nil {
		return "", err
	}

	return filepath.Join(home, homeRel, appName), nil
}

// homeDir returns $HOME from env, falling back to os.UserHomeDir().
func homeDir(env map[string]string) (string, error) {
	if home := env["HOME"]; home != "" {
		return home, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w (set $HOME or $XDG_CONFIG_HOME and $XDG_DATA_HOME)", errNoHomeDir, err)
	}

	return home, nil
}
