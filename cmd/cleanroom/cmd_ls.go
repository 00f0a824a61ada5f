//go:build unix

package main

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
	"github.com/cleanroom-sh/cleanroom/envconfig"
)

// LsCmd creates the ls command.
func LsCmd(dirs Dirs) *Command {
	flags := flag.NewFlagSet("ls", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.BoolP("shell", "s", false, "Also show each environment's shell and mode")

	return &Command{
		Flags: flags,
		Usage: "ls [flags]",
		Short: "List environments",
		Long: "List environments, one per line, sorted by name.\n\n" +
			"With --shell, each line is name,shell,mode where mode contains\n" +
			"'i' for interactive and 'l' for login shells.",
		Aliases: []string{"list"},
		Exec: func(_ io.Reader, stdout, _ io.Writer, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: unexpected arguments: %s", ErrUsage, strings.Join(args, " "))
			}

			names, err := cleanroom.List(dirs.ConfigHome)
			if err != nil {
				return err
			}

			withShell, _ := flags.GetBool("shell")

			for _, name := range names {
				if !withShell {
					fprintln(stdout, name)

					continue
				}

				row, err := shellRow(name, dirs)
				if err != nil {
					return err
				}

				fprintln(stdout, strings.Join(row, ","))
			}

			return nil
		},
	}
}

func shellRow(name string, dirs Dirs) ([]string, error) {
	layout, err := cleanroom.NewLayout(name, dirs.ConfigHome, dirs.DataHome)
	if err != nil {
		return nil, err
	}

	cfg, err := layout.LoadConfig(nil)
	if err != nil {
		return nil, fmt.Errorf("environment %s: %w", name, err)
	}

	return []string{name, cfg.Shell.Bin, shellMode(cfg.Shell)}, nil
}

func shellMode(shell envconfig.Shell) string {
	var mode strings.Builder

	if shell.Interactive {
		mode.WriteString("i")
	}

	if shell.Login {
		mode.WriteString("l")
	}

	return mode.String()
}
