// Command chainaudit verifies hash-chained tables.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/chainaudit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chainaudit: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
