package main

import (
	"os"

	"github.com/vanand74/CostSystemSim/cmd/cli/cmd"
	"github.com/vanand74/CostSystemSim/internal/logging"
)

func main() {
	defer logging.Sync()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
