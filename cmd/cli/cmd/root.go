// Package cmd provides the CLI commands for costsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanand74/CostSystemSim/internal/config"
	"github.com/vanand74/CostSystemSim/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "costsim",
	Short: "Simulate cost-system distortion across a sample of firms",
	Long: `costsim simulates how imperfect activity-based cost systems distort
reported product costs, and how firms that re-optimize their product mix
against those distorted reports behave over time.

Each firm in a synthetic sample is run against a grid of cost-system
designs (pool counts, pooling policies, driver policies); every run is
classified as an equilibrium, a cycle, a zero-production mix, or a
numerical degeneracy, and logged to a flat CSV result file.

Examples:
  costsim run
  costsim run --config experiment.json --out results.csv
  costsim config init experiment.json`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("costsim version 0.1.0")
	},
}

// configCmd manages configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage experiment configuration",
}

// configInitCmd writes a default configuration file
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default experiment configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "experiment.json"
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
