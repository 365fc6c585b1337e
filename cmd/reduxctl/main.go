// Command reduxctl runs scenarios through the dispatch engine and inspects
// its journal.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/reduxengine/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
