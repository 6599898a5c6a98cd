// Package costsys constructs activity-based cost systems and computes
// the product costs they report. A System partitions a firm's resources
// into activity cost pools, picks a cost driver per pool, and allocates
// pooled costs to products through the drivers' consumption patterns.
package costsys

import (
	"golang.org/x/exp/rand"

	"github.com/vanand74/CostSystemSim/core/firm"
	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// Params configures cost-system construction.
type Params struct {
	// PoolCount is the number of activity cost pools (>= 1)
	PoolCount int

	// Pooling selects the pool-construction heuristic
	Pooling types.PoolingPolicy

	// Driver selects the driver-selection heuristic
	Driver types.DriverPolicy

	// DriverResources is the top-k size for the indexed driver policy
	DriverResources int

	// MiscPoolFloor is the minimum fraction of total resource value
	// reserved for the miscellaneous pool
	MiscPoolFloor float64

	// CorrelationCutoff is the minimum seed correlation for pooling
	CorrelationCutoff float64
}

// System is an immutable cost system bound to one firm context. Many
// systems may share a context; none of them mutate it.
type System struct {
	fc     *firm.Context
	params Params

	// pools partitions the resource indices; the last pool is the
	// miscellaneous pool
	pools [][]int

	// drivers holds, per pool, the resources serving as its cost driver
	drivers [][]int
}

// New builds a cost system for the firm under the given policies. The
// random source is consumed only by the random-fill pooling policy.
func New(fc *firm.Context, p Params, rng *rand.Rand) (*System, error) {
	if p.PoolCount < 1 {
		return nil, errors.Config("pool count must be >= 1, got %d", p.PoolCount)
	}
	if p.PoolCount > fc.Resources {
		return nil, errors.Config("pool count %d exceeds resource count %d", p.PoolCount, fc.Resources)
	}
	if !p.Pooling.Valid() {
		return nil, errors.Config("unknown pooling policy code %d", int(p.Pooling))
	}
	if !p.Driver.Valid() {
		return nil, errors.Config("unknown driver policy code %d", int(p.Driver))
	}
	if p.Driver == types.DriverIndexed && p.DriverResources < 1 {
		return nil, errors.Config("indexed driver policy needs driver resources >= 1, got %d", p.DriverResources)
	}
	if p.Pooling == types.PoolingRandom && rng == nil {
		return nil, errors.Config("random pooling policy needs a random source")
	}

	pools, err := buildPools(fc, p, rng)
	if err != nil {
		return nil, err
	}
	drivers, err := selectDrivers(pools, fc.BenchmarkCost, p.Driver, p.DriverResources)
	if err != nil {
		return nil, err
	}

	return &System{fc: fc, params: p, pools: pools, drivers: drivers}, nil
}

// Firm returns the firm context the system is bound to.
func (s *System) Firm() *firm.Context {
	return s.fc
}

// Params returns the construction parameters.
func (s *System) Params() Params {
	return s.params
}

// Pools returns a copy of the pool partition.
func (s *System) Pools() [][]int {
	return copyNested(s.pools)
}

// Drivers returns a copy of the per-pool driver sets.
func (s *System) Drivers() [][]int {
	return copyNested(s.drivers)
}

func copyNested(src [][]int) [][]int {
	out := make([][]int, len(src))
	for i, inner := range src {
		out[i] = append([]int(nil), inner...)
	}
	return out
}
