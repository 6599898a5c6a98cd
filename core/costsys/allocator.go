package costsys

import (
	"gonum.org/v1/gonum/mat"

	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// ReportedCosts computes the per-product unit costs the system reports
// for the given production decision.
//
// Pool costs are the dollar usage of each pool's resources at the
// decision's production quantities. Pools with zero cost are dropped for
// this decision; their drivers are undefined, which is expected. A
// configured driver with zero physical usage is substituted with the
// first positive-usage resource of its pool. Each surviving pool's cost
// is split evenly across its driver resources and turned into a
// per-resource rate; reported product costs follow from the consumption
// pattern of the rated resources.
func (s *System) ReportedCosts(decision types.Decision) ([]float64, error) {
	fc := s.fc
	if len(decision) != fc.Products {
		return nil, errors.Newf(errors.TypeInput, "decision has %d products, firm has %d", len(decision), fc.Products)
	}

	qty := make([]float64, fc.Products)
	for j, on := range decision {
		if on {
			qty[j] = fc.Capacity[j]
		}
	}

	var usageVec mat.VecDense
	usageVec.MulVec(fc.Consumption, mat.NewVecDense(fc.Products, qty))
	usage := usageVec.RawVector().Data

	rate := make([]float64, fc.Resources)
	rated := make([]bool, fc.Resources)
	for i, pool := range s.pools {
		poolCost := 0.0
		for _, res := range pool {
			poolCost += fc.UnitCost[res] * usage[res]
		}
		if poolCost <= 0 {
			continue
		}

		drv, err := s.effectiveDrivers(i, usage)
		if err != nil {
			return nil, err
		}
		share := poolCost / float64(len(drv))
		for _, res := range drv {
			if rated[res] {
				return nil, errors.Invariant("resource %d drives more than one pool", res)
			}
			rated[res] = true
			rate[res] = share / usage[res]
		}
	}

	var reported mat.VecDense
	reported.MulVec(fc.Consumption.T(), mat.NewVecDense(fc.Resources, rate))
	out := make([]float64, fc.Products)
	copy(out, reported.RawVector().Data)
	return out, nil
}

// effectiveDrivers returns pool i's driver set for a decision with the
// given resource usage, substituting drivers that the decision does not
// touch. Only called for pools with strictly positive cost, so at least
// one pool member must have positive usage.
func (s *System) effectiveDrivers(i int, usage []float64) ([]int, error) {
	drv := s.drivers[i]

	switch s.params.Driver {
	case types.DriverBigPool:
		if usage[drv[0]] > 0 {
			return drv, nil
		}
		fallback, ok := firstUsed(s.pools[i], usage)
		if !ok {
			return nil, errors.Invariant("pool %d has positive cost but no resource with positive usage", i)
		}
		return []int{fallback}, nil

	case types.DriverIndexed:
		kept := make([]int, 0, len(drv))
		for _, res := range drv {
			if usage[res] > 0 {
				kept = append(kept, res)
			}
		}
		if len(kept) > 0 {
			return kept, nil
		}
		fallback, ok := firstUsed(s.pools[i], usage)
		if !ok {
			return nil, errors.Invariant("pool %d has positive cost but no resource with positive usage", i)
		}
		return []int{fallback}, nil
	}
	return nil, errors.Config("unknown driver policy code %d", int(s.params.Driver))
}

// firstUsed returns the first pool member, in pool order, with strictly
// positive usage.
func firstUsed(pool []int, usage []float64) (int, bool) {
	for _, res := range pool {
		if usage[res] > 0 {
			return res, true
		}
	}
	return 0, false
}
