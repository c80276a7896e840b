// Command unzip extracts and inspects zip archives.
package main

import (
	"fmt"
	"os"

	"zipkit/internal/zerr"
)

func main() {
	cmd := buildRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "unzip error: %s\n", zerr.Message(err))
		os.Exit(zerr.ExitCode(err))
	}
}
