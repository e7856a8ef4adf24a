// Command posctl manages the POS dashboard from a terminal.
package main

import (
	"os"

	"github.com/handidevproject/pos-dashboard/cmd/posctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
