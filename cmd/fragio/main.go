// Command fragio translates and executes submission queries through
// pluggable storage drivers, and serves a backend to objstore clients.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/fragio/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
