//go:build unix

package main

import (
	"os"

	"github.com/cleanroom-sh/cleanroom/cleanroom"
)

func main() {
	env := cleanroom.ParseEnviron(os.Environ())

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
}
