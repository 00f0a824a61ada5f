//go:build unix

package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
)

// RmCmd creates the rm command.
func RmCmd(dirs Dirs) *Command {
	flags := flag.NewFlagSet("rm", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.BoolP("quiet", "q", false, "Do not print the removed environment")

	return &Command{
		Flags:   flags,
		Usage:   "rm [flags] <name>",
		Short:   "Remove an environment",
		Long:    "Remove an environment's config and data directories, including its config and linked binaries.",
		Aliases: []string{"remove"},
		Exec: func(_ io.Reader, stdout, _ io.Writer, args []string) error {
			name, err := nameArg(args)
			if err != nil {
				return err
			}

			layout, err := cleanroom.NewLayout(name, dirs.ConfigHome, dirs.DataHome)
			if err != nil {
				return err
			}

			err = layout.Remove()
			if err != nil {
				return err
			}

			if quiet, _ := flags.GetBool("quiet"); !quiet {
				fprintf(stdout, "Removed environment %s\n", name)
			}

			return nil
		},
	}
}
