// Command zipinfo lists the contents of a zip archive's central directory.
package main

import (
	"fmt"
	"os"

	"zipkit/internal/zerr"
)

func main() {
	cmd := buildRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "zipinfo error: %s\n", zerr.Message(err))
		os.Exit(zerr.ExitCode(err))
	}
}
