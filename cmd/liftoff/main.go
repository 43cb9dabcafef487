// Command liftoff runs and inspects live powerlifting competitions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/liftoff/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
