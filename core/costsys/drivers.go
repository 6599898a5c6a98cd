package costsys

import (
	"sort"

	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// selectDrivers picks, per pool, the resources that serve as the pool's
// cost driver. Pools are re-sorted by descending benchmark cost before
// selection; construction order is expected to be sorted already but is
// not trusted.
func selectDrivers(pools [][]int, rcc []float64, policy types.DriverPolicy, k int) ([][]int, error) {
	drivers := make([][]int, len(pools))
	for i, pool := range pools {
		if len(pool) == 0 {
			continue
		}
		sorted := append([]int(nil), pool...)
		sort.SliceStable(sorted, func(a, b int) bool {
			return rcc[sorted[a]] > rcc[sorted[b]]
		})

		switch policy {
		case types.DriverBigPool:
			drivers[i] = sorted[:1]
		case types.DriverIndexed:
			n := k
			if n > len(sorted) {
				n = len(sorted)
			}
			drivers[i] = sorted[:n]
		default:
			return nil, errors.Config("unknown driver policy code %d", int(policy))
		}
	}
	return drivers, nil
}
