// Command stylefx runs, tests and replays styling effect scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stylefx/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
