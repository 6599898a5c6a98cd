package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero firms", func(c *Config) { c.Firm.Count = 0 }},
		{"zero resources", func(c *Config) { c.Firm.Resources = 0 }},
		{"negative total cost", func(c *Config) { c.Firm.TotalCost = -1 }},
		{"density above one", func(c *Config) { c.Firm.Density = 1.5 }},
		{"base mix above one", func(c *Config) { c.Firm.BaseMix = 2 }},
		{"empty pool counts", func(c *Config) { c.CostSystem.PoolCounts = nil }},
		{"pool count above resources", func(c *Config) { c.CostSystem.PoolCounts = []int{51} }},
		{"unknown pooling policy", func(c *Config) { c.CostSystem.PoolingPolicies = []int{4} }},
		{"unknown driver policy", func(c *Config) { c.CostSystem.DriverPolicies = []int{2} }},
		{"zero driver resources", func(c *Config) { c.CostSystem.DriverResources = 0 }},
		{"misc floor at one", func(c *Config) { c.CostSystem.MiscPoolFloor = 1 }},
		{"cutoff above one", func(c *Config) { c.CostSystem.CorrelationCutoff = 1.5 }},
		{"negative hysteresis", func(c *Config) { c.Simulation.Hysteresis = -0.1 }},
		{"hysteresis at one", func(c *Config) { c.Simulation.Hysteresis = 1 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.json")

	cfg := Default()
	cfg.Firm.Count = 7
	cfg.CostSystem.PoolCounts = []int{2, 4}
	cfg.Simulation.Hysteresis = 0.05
	if err := cfg.Save(path); err != nil {
		t.Fatalf("saving: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if loaded.Firm.Count != 7 {
		t.Errorf("firm count %d, want 7", loaded.Firm.Count)
	}
	if len(loaded.CostSystem.PoolCounts) != 2 {
		t.Errorf("pool counts %v, want [2 4]", loaded.CostSystem.PoolCounts)
	}
	if loaded.Simulation.Hysteresis != 0.05 {
		t.Errorf("hysteresis %g, want 0.05", loaded.Simulation.Hysteresis)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
