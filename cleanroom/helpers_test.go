//go:build unix

package cleanroom_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
	"github.com/cleanroom-sh/cleanroom/envconfig"
)

func mustCreateDir(t *testing.T, path string) {
	t.Helper()

	err := os.MkdirAll(path, 0o750)
	if err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path string, data []byte, perm os.FileMode) {
	t.Helper()

	mustCreateDir(t, filepath.Dir(path))

	err := os.WriteFile(path, data, perm)
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// mustWriteExecutable writes a shell script and returns its path.
func mustWriteExecutable(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	mustWriteFile(t, path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)

	return path
}

func mustSymlink(t *testing.T, target, link string) {
	t.Helper()

	err := os.Symlink(target, link)
	if err != nil {
		t.Fatalf("symlink %s -> %s: %v", link, target, err)
	}
}

func mustReadlink(t *testing.T, link string) string {
	t.Helper()

	dest, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("readlink %s: %v", link, err)
	}

	return dest
}

// testHost is a fake host: a PATH directory with binaries and an
// environment's bin directory.
type testHost struct {
	WorkDir string
	HostBin string
	BinDir  string
}

func newTestHost(t *testing.T) testHost {
	t.Helper()

	root := t.TempDir()

	h := testHost{
		WorkDir: root,
		HostBin: filepath.Join(root, "host", "bin"),
		BinDir:  filepath.Join(root, "env", "bin"),
	}

	mustCreateDir(t, h.HostBin)
	mustCreateDir(t, h.BinDir)

	return h
}

func (h testHost) env(extra map[string]string) cleanroom.Environment {
	hostEnv := map[string]string{"PATH": h.HostBin}
	for k, v := range extra {
		hostEnv[k] = v
	}

	return cleanroom.Environment{WorkDir: h.WorkDir, HostEnv: hostEnv}
}

func (h testHost) layout() cleanroom.Layout {
	return cleanroom.Layout{
		Name:      "test",
		ConfigDir: filepath.Join(h.WorkDir, "env", "config"),
		RCFile:    filepath.Join(h.WorkDir, "env", "config", "rc.sh"),
		DataDir:   filepath.Join(h.WorkDir, "env"),
		BinDir:    h.BinDir,
	}
}

func binWith(inherit ...string) envconfig.Bin {
	bin := envconfig.Default().Bin
	bin.Inherit = inherit

	return bin
}
