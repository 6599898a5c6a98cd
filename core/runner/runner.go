// Package runner orchestrates a simulation experiment: it generates the
// firm sample and drives every (firm, pool count, pooling policy, driver
// policy) combination to its outcome, in parallel.
package runner

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/vanand74/CostSystemSim/core/costsys"
	"github.com/vanand74/CostSystemSim/core/firm"
	"github.com/vanand74/CostSystemSim/core/output"
	"github.com/vanand74/CostSystemSim/core/sim"
	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/config"
	"github.com/vanand74/CostSystemSim/internal/logging"
)

// Runner executes one experiment configuration.
type Runner struct {
	cfg *config.Config
	out *output.Writer
}

// New creates a runner writing results to the given writer.
func New(cfg *config.Config, out *output.Writer) *Runner {
	return &Runner{cfg: cfg, out: out}
}

// Summary aggregates an experiment's outcomes.
type Summary struct {
	// Units is the number of simulation units attempted
	Units int

	// Outcomes counts terminal classifications
	Outcomes map[types.Outcome]int

	// Failed is the number of units aborted by errors
	Failed int
}

// unit is one independent piece of work. Units share their firm context
// read-only and nothing else, so they run concurrently without locking.
type unit struct {
	fc     *firm.Context
	params costsys.Params

	// seed feeds the random-fill pooling policy; derived so a unit's
	// draws do not depend on scheduling order
	seed uint64
}

// Run generates the firm sample and simulates the full configuration
// grid. Unit failures abort only their own unit; all are aggregated in
// the returned error alongside the summary of completed units.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	cfg := r.cfg

	firms, err := r.generateFirms()
	if err != nil {
		return nil, err
	}

	units := r.buildUnits(firms)
	logging.Info("experiment grid built",
		zap.Int("firms", len(firms)),
		zap.Int("units", len(units)))

	rows := make(chan output.Row, len(units))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}

	// A failed unit aborts only itself; its error is collected, not
	// propagated through the group, so the rest of the grid still runs.
	var (
		errMu    sync.Mutex
		unitErrs []error
	)
	for _, u := range units {
		u := u
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			row, err := r.runUnit(u)
			if err != nil {
				logging.Error("simulation unit failed",
					zap.Int("firm", u.fc.ID),
					zap.Int("pool_count", u.params.PoolCount),
					zap.Stringer("pooling", u.params.Pooling),
					zap.Stringer("driver", u.params.Driver),
					zap.Error(err))
				errMu.Lock()
				unitErrs = append(unitErrs, err)
				errMu.Unlock()
				return nil
			}
			rows <- row
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		if err := g.Wait(); err != nil {
			errMu.Lock()
			unitErrs = append(unitErrs, err)
			errMu.Unlock()
		}
		close(rows)
		close(done)
	}()

	summary := &Summary{Units: len(units), Outcomes: make(map[types.Outcome]int)}
	var writeErr error
	for row := range rows {
		summary.Outcomes[row.Outcome]++
		if err := r.out.Write(row); err != nil && writeErr == nil {
			writeErr = err
		}
	}
	<-done

	completed := 0
	for _, n := range summary.Outcomes {
		completed += n
	}
	summary.Failed = summary.Units - completed

	return summary, multierr.Combine(append(unitErrs, writeErr)...)
}

// generateFirms builds the deterministic firm sample: firm i always
// derives its stream from the experiment seed plus i.
func (r *Runner) generateFirms() ([]*firm.Context, error) {
	f := r.cfg.Firm
	params := firm.Params{
		Resources:    f.Resources,
		Products:     f.Products,
		TotalCost:    f.TotalCost,
		Density:      f.Density,
		BaseMix:      f.BaseMix,
		Markup:       f.Markup,
		MarkupSpread: f.MarkupSpread,
	}

	firms := make([]*firm.Context, 0, f.Count)
	for i := 0; i < f.Count; i++ {
		fc, err := firm.Generate(i, params, rand.NewSource(f.Seed+uint64(i)))
		if err != nil {
			return nil, err
		}
		firms = append(firms, fc)
	}
	return firms, nil
}

// buildUnits expands the configuration grid over the firm sample.
func (r *Runner) buildUnits(firms []*firm.Context) []unit {
	cs := r.cfg.CostSystem
	var units []unit
	for _, fc := range firms {
		for _, a := range cs.PoolCounts {
			for _, p := range cs.PoolingPolicies {
				for _, d := range cs.DriverPolicies {
					units = append(units, unit{
						fc: fc,
						params: costsys.Params{
							PoolCount:         a,
							Pooling:           types.PoolingPolicy(p),
							Driver:            types.DriverPolicy(d),
							DriverResources:   cs.DriverResources,
							MiscPoolFloor:     cs.MiscPoolFloor,
							CorrelationCutoff: cs.CorrelationCutoff,
						},
						seed: r.cfg.Firm.Seed ^ unitSeed(fc.ID, a, p, d),
					})
				}
			}
		}
	}
	return units
}

// runUnit builds one cost system and drives it to a terminal outcome.
func (r *Runner) runUnit(u unit) (output.Row, error) {
	rng := rand.New(rand.NewSource(u.seed))
	system, err := costsys.New(u.fc, u.params, rng)
	if err != nil {
		return output.Row{}, err
	}

	start := u.fc.BenchmarkDecision()
	result, err := sim.Check(system, start, r.cfg.Simulation.Hysteresis, r.cfg.Simulation.MaxIterations)
	if err != nil {
		return output.Row{}, err
	}

	return output.Row{
		RunID:            uuid.NewString(),
		Firm:             u.fc.ID,
		PoolCount:        u.params.PoolCount,
		Pooling:          u.params.Pooling,
		Driver:           u.params.Driver,
		Outcome:          result.Outcome,
		Iterations:       result.Iterations,
		FinalDecision:    result.Final.Key(),
		ProductsProduced: result.Final.Count(),
		TotalValue:       u.fc.TotalValue(),
		MeanCostError:    meanCostError(u.fc, result.Reported, result.Final),
	}, nil
}

// meanCostError measures reporting distortion: the mean absolute
// relative gap between reported and true unit costs over the produced
// products. NaN when the final reported costs are degenerate.
func meanCostError(fc *firm.Context, reported []float64, final types.Decision) float64 {
	trueCosts := fc.TrueUnitCosts()
	sum, n := 0.0, 0
	for j, on := range final {
		if !on || trueCosts[j] == 0 {
			continue
		}
		sum += math.Abs(reported[j]-trueCosts[j]) / trueCosts[j]
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// unitSeed gives every grid point a distinct, order-independent stream.
func unitSeed(firmID, poolCount, pooling, driver int) uint64 {
	h := uint64(firmID)
	for _, v := range []int{poolCount, pooling, driver} {
		h = h*1099511628211 + uint64(v) + 1
	}
	return h
}
