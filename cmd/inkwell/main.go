// Command inkwell compiles CUE plan documents into linear database
// programs and optionally executes them against SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/inkwell-db/inkwell/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
