package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/botloom/botloom/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Domain failures are already printed by the command via the
		// formatter; only surface usage and unexpected errors here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
