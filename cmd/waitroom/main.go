// Command waitroom runs the long-polling wait/notify server and its CLI.
package main

import (
	"os"

	"github.com/Iron-Ham/waitroom/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
