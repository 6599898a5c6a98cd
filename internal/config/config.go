// Package config provides configuration management for simulation
// experiments.
package config

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/vanand74/CostSystemSim/internal/errors"
	"github.com/vanand74/CostSystemSim/internal/logging"
)

// Config is the main experiment configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Firm contains synthetic-firm generation settings
	Firm FirmConfig `json:"firm"`

	// CostSystem contains cost-system construction settings
	CostSystem CostSystemConfig `json:"cost_system"`

	// Simulation contains decision-loop settings
	Simulation SimulationConfig `json:"simulation"`

	// Output contains result-log settings
	Output OutputConfig `json:"output"`

	// Workers is the number of concurrent simulation units (0 = GOMAXPROCS)
	Workers int `json:"workers"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// FirmConfig controls the synthetic firm sample
type FirmConfig struct {
	// Count is the number of firms in the sample
	Count int `json:"count"`

	// Resources is the number of resources per firm
	Resources int `json:"resources"`

	// Products is the number of products per firm
	Products int `json:"products"`

	// Seed seeds the sample; firm i derives its own stream from Seed+i
	Seed uint64 `json:"seed"`

	// TotalCost is the target total resource cost of a firm
	TotalCost float64 `json:"total_cost"`

	// Density is the probability that a resource is consumed by a product
	Density float64 `json:"density"`

	// BaseMix in [0,1] steers the correlation between resource
	// consumption patterns: 0 = independent, 1 = identical
	BaseMix float64 `json:"base_mix"`

	// Markup scales true unit cost into selling price
	Markup float64 `json:"markup"`

	// MarkupSpread is the half-width of the uniform markup noise
	MarkupSpread float64 `json:"markup_spread"`
}

// CostSystemConfig controls cost-system construction
type CostSystemConfig struct {
	// PoolCounts lists the activity-pool counts to simulate
	PoolCounts []int `json:"pool_counts"`

	// PoolingPolicies lists the pooling policy codes (0-3) to simulate
	PoolingPolicies []int `json:"pooling_policies"`

	// DriverPolicies lists the driver policy codes (0-1) to simulate
	DriverPolicies []int `json:"driver_policies"`

	// DriverResources is the top-k size for the indexed driver policy
	DriverResources int `json:"driver_resources"`

	// MiscPoolFloor is the minimum fraction of total resource value kept
	// for the miscellaneous pool
	MiscPoolFloor float64 `json:"misc_pool_floor"`

	// CorrelationCutoff is the minimum correlation for pooling a
	// resource with a seed
	CorrelationCutoff float64 `json:"correlation_cutoff"`
}

// SimulationConfig controls the equilibrium loop
type SimulationConfig struct {
	// Hysteresis is the dead-band around margin 1.0
	Hysteresis float64 `json:"hysteresis"`

	// MaxIterations caps the decision loop; 0 derives the cap from the
	// product count
	MaxIterations int `json:"max_iterations"`
}

// OutputConfig controls result logging
type OutputConfig struct {
	// Path is the CSV result file ("-" = stdout)
	Path string `json:"path"`

	// Precision is the number of decimal places for cost columns
	Precision int `json:"precision"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Version: "1",
		Firm: FirmConfig{
			Count:        100,
			Resources:    50,
			Products:     25,
			Seed:         1,
			TotalCost:    1_000_000,
			Density:      0.6,
			BaseMix:      0.5,
			Markup:       1.25,
			MarkupSpread: 0.15,
		},
		CostSystem: CostSystemConfig{
			PoolCounts:        []int{1, 2, 4, 6, 8},
			PoolingPolicies:   []int{0, 1, 2, 3},
			DriverPolicies:    []int{0, 1},
			DriverResources:   3,
			MiscPoolFloor:     0.05,
			CorrelationCutoff: 0.5,
		},
		Simulation: SimulationConfig{
			Hysteresis:    0.0,
			MaxIterations: 0,
		},
		Output: OutputConfig{
			Path:      "results.csv",
			Precision: 4,
		},
		Workers: 0,
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from a JSON file, applying defaults for
// missing fields
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO("reading config file", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "parsing config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a JSON file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Internal("encoding config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.IO("writing config file", err)
	}
	return nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	f := c.Firm
	if f.Count < 1 {
		return errors.Config("firm count must be >= 1, got %d", f.Count)
	}
	if f.Resources < 1 || f.Products < 1 {
		return errors.Config("firm needs at least one resource and one product, got %dx%d", f.Resources, f.Products)
	}
	if f.TotalCost <= 0 {
		return errors.Config("total cost must be positive, got %g", f.TotalCost)
	}
	if f.Density <= 0 || f.Density > 1 {
		return errors.Config("density must be in (0,1], got %g", f.Density)
	}
	if f.BaseMix < 0 || f.BaseMix > 1 {
		return errors.Config("base mix must be in [0,1], got %g", f.BaseMix)
	}
	if f.Markup <= 0 {
		return errors.Config("markup must be positive, got %g", f.Markup)
	}

	cs := c.CostSystem
	if len(cs.PoolCounts) == 0 || len(cs.PoolingPolicies) == 0 || len(cs.DriverPolicies) == 0 {
		return errors.Config("cost-system grid must not be empty")
	}
	for _, a := range cs.PoolCounts {
		if a < 1 {
			return errors.Config("pool count must be >= 1, got %d", a)
		}
		if a > f.Resources {
			return errors.Config("pool count %d exceeds resource count %d", a, f.Resources)
		}
	}
	for _, p := range cs.PoolingPolicies {
		if p < 0 || p > 3 {
			return errors.Config("unknown pooling policy code %d", p)
		}
	}
	for _, r := range cs.DriverPolicies {
		if r != 0 && r != 1 {
			return errors.Config("unknown driver policy code %d", r)
		}
	}
	if cs.DriverResources < 1 {
		return errors.Config("driver resources must be >= 1, got %d", cs.DriverResources)
	}
	if cs.MiscPoolFloor < 0 || cs.MiscPoolFloor >= 1 {
		return errors.Config("misc pool floor must be in [0,1), got %g", cs.MiscPoolFloor)
	}
	if cs.CorrelationCutoff < -1 || cs.CorrelationCutoff > 1 {
		return errors.Config("correlation cutoff must be in [-1,1], got %g", cs.CorrelationCutoff)
	}

	if c.Simulation.Hysteresis < 0 || c.Simulation.Hysteresis >= 1 {
		return errors.Config("hysteresis must be in [0,1), got %g", c.Simulation.Hysteresis)
	}
	if c.Simulation.MaxIterations < 0 {
		return errors.Config("max iterations must be >= 0, got %d", c.Simulation.MaxIterations)
	}
	if c.Workers < 0 {
		return errors.Config("workers must be >= 0, got %d", c.Workers)
	}
	if c.Output.Precision < 0 {
		return errors.Config("output precision must be >= 0, got %d", c.Output.Precision)
	}
	return nil
}

var (
	current *Config
	mu      sync.RWMutex
)

// Get returns the current global configuration
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return Default()
	}
	return current
}

// Set replaces the current global configuration
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}
