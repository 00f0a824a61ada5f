//go:build unix

package cleanroom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// RCFileName is the rc-file passed to interactive shells via --rcfile.
const RCFileName = "rc.sh"

// Layout is where an environment lives on disk:
//
//	{configHome}/{name}/
//	├── config.toml   # the config document
//	└── rc.sh         # rc-file for interactive shells
//	{dataHome}/{name}/
//	└── bin/          # inherited binaries (symlinks)
type Layout struct {
	Name      string
	ConfigDir string
	RCFile    string
	DataDir   string
	BinDir    string
}

// NewLayout returns the layout of environment name below configHome and
// dataHome. It does not touch the filesystem.
func NewLayout(name, configHome, dataHome string) (Layout, error) {
	err := validateName(name)
	if err != nil {
		return Layout{}, err
	}

	configDir := filepath.Join(configHome, name)
	dataDir := filepath.Join(dataHome, name)

	return Layout{
		Name:      name,
		ConfigDir: configDir,
		RCFile:    filepath.Join(configDir, RCFileName),
		DataDir:   dataDir,
		BinDir:    filepath.Join(dataDir, "bin"),
	}, nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%w: %q contains '/'", ErrInvalidName, name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidName, name)
	}

	return nil
}

// Create bootstraps the environment: its config and data directories, the
// bin directory, a config document holding the defaults, and an empty
// rc-file. It fails with [ErrEnvExists] if either directory already exists.
// On failure, directories created by this call are removed again.
func (l Layout) Create() error {
	for _, dir := range []string{l.ConfigDir, l.DataDir} {
		_, err := os.Lstat(dir)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrEnvExists, dir)
		}

		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", dir, err)
		}
	}

	err := l.create()
	if err != nil {
		cleanupErr := errors.Join(os.RemoveAll(l.ConfigDir), os.RemoveAll(l.DataDir))

		return errors.Join(err, cleanupErr)
	}

	return nil
}

func (l Layout) create() error {
	err := os.MkdirAll(l.ConfigDir, 0o750)
	if err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	err = os.MkdirAll(l.BinDir, 0o750)
	if err != nil {
		return fmt.Errorf("creating bin dir: %w", err)
	}

	doc, err := envconfig.Marshal(envconfig.Default())
	if err != nil {
		return err
	}

	err = writeNewFile(filepath.Join(l.ConfigDir, envconfig.DefaultFileName), doc)
	if err != nil {
		return err
	}

	return writeNewFile(l.RCFile, nil)
}

// writeNewFile writes data to path, failing if path exists.
func writeNewFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	_, err = f.Write(data)
	if err != nil {
		_ = f.Close()

		return fmt.Errorf("writing %s: %w", path, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}

	return nil
}

// ConfigFile returns the environment's config document. It fails with
// [ErrEnvNotFound] if the config directory does not exist and with
// [ErrConfigFileMissing] if it holds no document.
func (l Layout) ConfigFile() (string, error) {
	info, err := os.Stat(l.ConfigDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrEnvNotFound, l.Name)
		}

		return "", fmt.Errorf("checking %s: %w", l.ConfigDir, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrEnvNotFound, l.ConfigDir)
	}

	path, err := envconfig.FindFile(l.ConfigDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrConfigFileMissing, filepath.Join(l.ConfigDir, envconfig.DefaultFileName))
		}

		return "", err
	}

	return path, nil
}

// LoadConfig reads the environment's config document from disk.
func (l Layout) LoadConfig(debugf Debugf) (envconfig.Config, error) {
	path, err := l.ConfigFile()
	if err != nil {
		return envconfig.Config{}, err
	}

	debugf.printf("config: loading %s", path)

	return envconfig.LoadFile(path, debugf)
}

// Remove deletes the environment's config and data directories. It fails
// with [ErrEnvNotFound] if neither exists.
func (l Layout) Remove() error {
	found := false

	for _, dir := range []string{l.ConfigDir, l.DataDir} {
		_, err := os.Lstat(dir)
		if err == nil {
			found = true

			continue
		}

		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", dir, err)
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrEnvNotFound, l.Name)
	}

	return errors.Join(os.RemoveAll(l.ConfigDir), os.RemoveAll(l.DataDir))
}

// List returns the names of the environments below configHome, sorted. A
// missing configHome holds no environments.
func List(configHome string) ([]string, error) {
	entries, err := os.ReadDir(configHome)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing %s: %w", configHome, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		names = append(names, entry.Name())
	}

	return names, nil
}
