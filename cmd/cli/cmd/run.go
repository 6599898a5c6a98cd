// Package cmd - run command
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanand74/CostSystemSim/core/output"
	"github.com/vanand74/CostSystemSim/core/runner"
	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/config"
	"github.com/vanand74/CostSystemSim/internal/logging"
)

var (
	outPath string
	workers int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation experiment",
	Long: `Generate the firm sample, simulate every cost-system design in the
configured grid, and write one result row per (firm, design) unit.

Examples:
  costsim run
  costsim run --config experiment.json
  costsim run --out - --workers 8`,
	RunE: runExperiment,
}

func init() {
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "result file path (\"-\" = stdout, default from config)")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent simulation units (0 = GOMAXPROCS)")
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if outPath != "" {
		cfg.Output.Path = outPath
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dest := os.Stdout
	if cfg.Output.Path != "-" {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("creating result file: %w", err)
		}
		defer f.Close()
		dest = f
	}

	writer := output.NewWriter(dest, cfg.Output.Precision)
	start := time.Now()

	logging.Info("starting experiment")
	summary, err := runner.New(cfg, writer).Run(context.Background())
	if flushErr := writer.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if summary != nil {
		printSummary(summary, time.Since(start))
	}
	return err
}

func printSummary(s *runner.Summary, elapsed time.Duration) {
	fmt.Printf("\nSimulated %d units in %s\n", s.Units, elapsed.Round(time.Millisecond))
	for _, o := range []types.Outcome{
		types.OutcomeEquilibrium,
		types.OutcomeCycle,
		types.OutcomeZeroMix,
		types.OutcomeNaN,
	} {
		if n := s.Outcomes[o]; n > 0 {
			fmt.Printf("  %-12s %d\n", o, n)
		}
	}
	if s.Failed > 0 {
		fmt.Printf("  %-12s %d\n", "FAILED", s.Failed)
	}
}
