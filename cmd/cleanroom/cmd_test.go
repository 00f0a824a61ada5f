//go:build unix

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeShell writes a script that prints its arguments and the variables
// it was started with, then exits with $EXIT_CODE (default 0).
func fakeShell(c *CLI) string {
	c.t.Helper()

	return c.WriteExecutable("host/fakesh", `#!/bin/sh
echo "args=$*"
echo "greeting=$GREETING"
echo "home=$HOME"
echo "path=$PATH"
exit ${EXIT_CODE:-0}
`)
}

func Test_New_Creates_Environment_Layout(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	stdout := c.MustRun("new", "work")

	AssertContains(t, stdout, "Created new environment work in "+filepath.Join(c.ConfigHome(), "work"))

	for _, path := range []string{
		filepath.Join(c.ConfigHome(), "work", "config.toml"),
		filepath.Join(c.ConfigHome(), "work", "rc.sh"),
		filepath.Join(c.DataHome(), "work", "bin"),
	} {
		if !c.FileExists(path) {
			t.Errorf("%s not created", path)
		}
	}
}

func Test_New_Fails_When_Environment_Exists(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")

	_, stderr, code := c.Run("new", "work")
	if code != exitError {
		t.Errorf("exit code = %d, want %d", code, exitError)
	}

	AssertContains(t, stderr, "environment already exists")
}

func Test_New_Returns_Usage_Error_When_Name_Missing_Or_Invalid(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	for _, args := range [][]string{{"new"}, {"new", "a", "b"}, {"new", "a/b"}, {"new", ".."}} {
		_, _, code := c.Run(args...)
		if code != exitUsage {
			t.Errorf("%v: exit code = %d, want %d", args, code, exitUsage)
		}
	}
}

func Test_Rm_Removes_Environment(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")

	stdout := c.MustRun("rm", "work")
	AssertContains(t, stdout, "Removed environment work")

	if c.FileExists(filepath.Join(c.ConfigHome(), "work")) || c.FileExists(filepath.Join(c.DataHome(), "work")) {
		t.Error("environment directories still exist")
	}

	_, stderr, code := c.Run("rm", "work")
	if code != exitEnvNotFound {
		t.Errorf("exit code = %d, want %d", code, exitEnvNotFound)
	}

	AssertContains(t, stderr, "environment does not exist")
}

func Test_Ls_Lists_Environments_Sorted(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	if out := c.MustRun("ls"); out != "" {
		t.Fatalf("expected no environments, got %q", out)
	}

	c.MustRun("new", "zeta")
	c.MustRun("new", "alpha")

	if diff := cmp.Diff("alpha\nzeta", c.MustRun("ls")); diff != "" {
		t.Errorf("ls mismatch (-want +got):\n%s", diff)
	}
}

func Test_Ls_Shell_Shows_Bin_And_Mode(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "plain")
	c.MustRun("new", "login")
	c.WriteEnvConfig("login", "[shell]\nbin = \"/bin/bash\"\nlogin = true\n")
	c.MustRun("new", "batch")
	c.WriteEnvConfig("batch", "[shell]\ninteractive = false\n")

	want := "batch,/bin/sh,\nlogin,/bin/bash,il\nplain,/bin/sh,i"
	if diff := cmp.Diff(want, c.MustRun("ls", "--shell")); diff != "" {
		t.Errorf("ls --shell mismatch (-want +got):\n%s", diff)
	}
}

func Test_Ls_Shell_Returns_Config_Error_When_Document_Broken(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "broken")
	c.WriteEnvConfig("broken", "[shell\n")

	_, stderr, code := c.Run("ls", "--shell")
	if code != exitConfig {
		t.Errorf("exit code = %d, want %d", code, exitConfig)
	}

	AssertContains(t, stderr, "environment broken")
}

func Test_Show_Prints_Effective_Config(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")
	c.WriteEnvConfig("work", "[vars]\nset = { EDITOR = \"vi\" }\n")

	stdout := c.MustRun("show", "work")
	AssertContains(t, stdout, "[shell]")
	AssertContains(t, stdout, `bin = "/bin/sh"`)
	AssertContains(t, stdout, `EDITOR = "vi"`)
	AssertContains(t, stdout, "exit_on_change = true")
}

func Test_Show_Prints_JSON_When_Json_Flag(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")

	var doc map[string]map[string]any

	err := json.Unmarshal([]byte(c.MustRun("show", "--json", "work")), &doc)
	if err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if doc["shell"]["bin"] != "/bin/sh" {
		t.Errorf("shell.bin = %v", doc["shell"]["bin"])
	}
}

func Test_Show_Prints_YAML_When_Yaml_Flag(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")

	stdout := c.MustRun("show", "--yaml", "work")
	AssertContains(t, stdout, "shell:\n")
	AssertContains(t, stdout, "  bin: /bin/sh\n")
	AssertContains(t, stdout, "exit_on_not_found: true")

	_, _, code := c.Run("show", "--yaml", "--json", "work")
	if code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
}

func Test_Use_Reads_YAML_Config(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	shell := fakeShell(c)
	c.MustRun("new", "work")
	c.WriteFile(".config/cleanroom/work/config.yaml", "shell:\n  bin: "+shell+"\nvars:\n  set:\n    GREETING: yo\n")

	// Two documents are ambiguous until one is removed.
	_, _, code := c.Run("use", "work")
	if code != exitConfig {
		t.Fatalf("exit code = %d, want %d", code, exitConfig)
	}

	err := os.Remove(filepath.Join(c.ConfigHome(), "work", "config.toml"))
	if err != nil {
		t.Fatal(err)
	}

	AssertContains(t, c.MustRun("use", "work"), "greeting=yo")
}

func Test_Show_Prints_Path_When_Path_Flag(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")

	got := c.MustRun("show", "--path", "work")
	if got != filepath.Join(c.ConfigHome(), "work", "config.toml") {
		t.Errorf("path = %q", got)
	}
}

func Test_Show_Returns_Env_Not_Found(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	_, _, code := c.Run("show", "ghost")
	if code != exitEnvNotFound {
		t.Errorf("exit code = %d, want %d", code, exitEnvNotFound)
	}
}

func Test_Use_Runs_Shell_With_Only_Declared_Variables(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	shell := fakeShell(c)

	c.MustRun("new", "work")
	c.WriteEnvConfig("work", `[shell]
bin = "`+shell+`"

[vars]
inherit = ["HOME"]
set = { GREETING = "hello" }

[bin]
inherit_dirs = ["/usr/bin", "/bin"]
`)
	c.Env["SECRET"] = "hunter2"

	stdout := c.MustRun("use", "work")

	rcFile := filepath.Join(c.ConfigHome(), "work", "rc.sh")
	AssertContains(t, stdout, "args=--noprofile --rcfile "+rcFile+" -i")
	AssertContains(t, stdout, "greeting=hello")
	AssertContains(t, stdout, "home="+c.Dir)
	AssertNotContains(t, stdout, "hunter2")

	// PATH is exactly the joined inherit_dirs, nothing from the host.
	lines := strings.Split(stdout, "\n")
	if last := lines[len(lines)-1]; last != "path=/usr/bin:/bin" {
		t.Errorf("last line = %q, want %q", last, "path=/usr/bin:/bin")
	}
}

func Test_Use_Exits_With_Shell_Exit_Code(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	shell := fakeShell(c)

	c.MustRun("new", "work")
	c.WriteEnvConfig("work", "[shell]\nbin = \""+shell+"\"\n[vars]\nset = { EXIT_CODE = \"42\" }\n")

	_, _, code := c.Run("use", "work")
	if code != 42 {
		t.Errorf("exit code = %d, want 42", code)
	}
}

func Test_Use_Fails_When_Inherited_Variable_Missing(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")
	c.WriteEnvConfig("work", "[vars]\ninherit = [\"NOT_SET_ANYWHERE\"]\n")

	stderr := c.MustFail("use", "work")
	AssertContains(t, stderr, "variable not found in parent environment")
	AssertContains(t, stderr, "NOT_SET_ANYWHERE")
}

func Test_Use_No_Inherit_Ignores_Inherit_Lists(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	shell := fakeShell(c)

	c.MustRun("new", "work")
	c.WriteEnvConfig("work", "[shell]\nbin = \""+shell+"\"\n[vars]\ninherit = [\"NOT_SET_ANYWHERE\", \"HOME\"]\n[bin]\ninherit = [\"nope\"]\n")

	stdout := c.MustRun("use", "--no-inherit", "work")
	AssertContains(t, stdout, "home=\n")
}

func Test_Use_Links_Inherited_Binaries(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	shell := fakeShell(c)
	tool := c.WriteExecutable("host/tool", "#!/bin/sh\nexit 0\n")
	c.Env["PATH"] = filepath.Dir(tool)

	c.MustRun("new", "work")
	c.WriteEnvConfig("work", "[shell]\nbin = \""+shell+"\"\n[bin]\ninherit = [\"tool\"]\n")

	c.MustRun("use", "work")

	link := filepath.Join(c.DataHome(), "work", "bin", "tool")
	if !c.FileExists(link) {
		t.Fatalf("%s not linked", link)
	}

	// Second activation reconciles without error.
	c.MustRun("use", "work")
}

func Test_Use_Dry_Run_Prints_Command_Without_Running(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")
	c.WriteEnvConfig("work", "[shell]\nbin = \"/bin/sh\"\nlogin = true\n[vars]\nset = { GREETING = \"hello world\" }\n")

	stdout := c.MustRun("use", "--dry-run", "work")

	AssertContains(t, stdout, "env -i \\\n")
	AssertContains(t, stdout, "  'GREETING=hello world' \\\n")
	AssertContains(t, stdout, "  PATH=/usr/local/bin:/bin:/usr/bin \\\n")
	AssertContains(t, stdout, "/bin/sh --noprofile --rcfile "+filepath.Join(c.ConfigHome(), "work", "rc.sh")+" -i -l")
}

func Test_Use_Debug_Prints_Sections_To_Stderr(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")

	_, stderr, code := c.Run("use", "--debug", "--dry-run", "work")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	for _, section := range []string{"=== Config ===", "=== Binaries ===", "=== Variables ===", "=== Shell ==="} {
		AssertContains(t, stderr, section)
	}
}

func Test_Use_Debug_Shows_The_Loaded_Document(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")

	yamlPath := filepath.Join(c.ConfigHome(), "work", "config.yaml")
	c.WriteFile(".config/cleanroom/work/config.yaml", "shell:\n  bin: /bin/sh\n  colour: true\n")

	err := os.Remove(filepath.Join(c.ConfigHome(), "work", "config.toml"))
	if err != nil {
		t.Fatal(err)
	}

	_, stderr, code := c.Run("use", "--debug", "--dry-run", "work")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	AssertContains(t, stderr, "file: "+yamlPath)
	AssertContains(t, stderr, `ignoring unknown key "shell.colour" in `+yamlPath)
}

func Test_Use_Returns_Config_Error_When_Document_Invalid(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.MustRun("new", "work")
	c.WriteEnvConfig("work", "[shell]\nlogin = \"yes\"\n")

	_, stderr, code := c.Run("use", "work")
	if code != exitConfig {
		t.Errorf("exit code = %d, want %d", code, exitConfig)
	}

	AssertContains(t, stderr, "config.toml")
}

func Test_Use_Returns_Env_Not_Found(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	_, stderr, code := c.Run("use", "ghost")
	if code != exitEnvNotFound {
		t.Errorf("exit code = %d, want %d", code, exitEnvNotFound)
	}

	if !strings.Contains(stderr, "ghost") {
		t.Errorf("stderr should name the environment: %s", stderr)
	}
}
