package costsys

import (
	"sort"

	"golang.org/x/exp/rand"

	"github.com/vanand74/CostSystemSim/core/firm"
	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// buildPools partitions the firm's resource indices into PoolCount
// activity cost pools. The first PoolCount-1 pools are "big" pools
// seeded from the top of the resource ranking; the last pool is the
// miscellaneous pool. Every resource lands in exactly one pool.
func buildPools(fc *firm.Context, p Params, rng *rand.Rand) ([][]int, error) {
	a := p.PoolCount

	// A single pool holds every resource in ranked order; no heuristics
	// apply.
	if a == 1 {
		return [][]int{append([]int(nil), fc.Ranking...)}, nil
	}

	if p.Pooling == types.PoolingSequential {
		return buildSequential(fc, p)
	}

	pools := make([][]int, a)
	for i := 0; i < a-1; i++ {
		pools[i] = []int{fc.Ranking[i]}
	}
	candidates := append([]int(nil), fc.Ranking[a-1:]...)

	switch p.Pooling {
	case types.PoolingSizeOnly:
		pools[a-1] = candidates
	case types.PoolingCorrelation:
		buildCorrelation(fc, p, pools, candidates)
	case types.PoolingRandom:
		buildRandom(fc, p, pools, candidates, rng)
	default:
		return nil, errors.Config("unknown pooling policy code %d", int(p.Pooling))
	}
	return pools, nil
}

// buildCorrelation implements the greedy correlation-threshold policy:
// candidates join the big pool whose seed they correlate with best, in
// descending order of that correlation, until the correlation drops
// below the cutoff or the unallocated value reaches the miscellaneous
// floor.
func buildCorrelation(fc *firm.Context, p Params, pools [][]int, candidates []int) {
	a := p.PoolCount
	total := fc.TotalValue()
	rcc := fc.BenchmarkCost

	type match struct {
		res  int
		pool int
		corr float64
	}
	matches := make([]match, len(candidates))
	for i, res := range candidates {
		best := match{res: res, pool: 0, corr: fc.Correlation.At(res, fc.Ranking[0])}
		for seed := 1; seed < a-1; seed++ {
			if c := fc.Correlation.At(res, fc.Ranking[seed]); c > best.corr {
				best.pool = seed
				best.corr = c
			}
		}
		matches[i] = best
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].corr > matches[j].corr
	})

	unalloc := 0.0
	for _, m := range matches {
		unalloc += rcc[m.res]
	}

	lastRes, lastPool := -1, -1
	next := 0
	for next < len(matches) {
		if total <= 0 || unalloc/total <= p.MiscPoolFloor {
			break
		}
		m := matches[next]
		if m.corr < p.CorrelationCutoff {
			break
		}
		pools[m.pool] = append(pools[m.pool], m.res)
		unalloc -= rcc[m.res]
		lastRes, lastPool = m.res, m.pool
		next++
	}
	for ; next < len(matches); next++ {
		pools[a-1] = append(pools[a-1], matches[next].res)
	}

	// The miscellaneous pool must keep some strictly positive value; if
	// the loop consumed it all, the last assignment is undone.
	miscValue := 0.0
	for _, res := range pools[a-1] {
		miscValue += rcc[res]
	}
	if miscValue == 0 && lastRes >= 0 {
		big := pools[lastPool]
		pools[lastPool] = big[:len(big)-1]
		pools[a-1] = append(pools[a-1], lastRes)
	}
}

// buildRandom implements the random-fill policy: candidates are popped
// in ranked order and assigned to uniformly chosen big pools while the
// unallocated value stays above the miscellaneous floor and would not
// hit exactly zero.
func buildRandom(fc *firm.Context, p Params, pools [][]int, candidates []int, rng *rand.Rand) {
	a := p.PoolCount
	total := fc.TotalValue()
	rcc := fc.BenchmarkCost

	unalloc := 0.0
	for _, res := range candidates {
		unalloc += rcc[res]
	}

	for len(candidates) > 0 {
		if total <= 0 || unalloc/total <= p.MiscPoolFloor {
			break
		}
		res := candidates[0]
		if unalloc-rcc[res] == 0 {
			break
		}
		idx := rng.Intn(a - 1)
		pools[idx] = append(pools[idx], res)
		unalloc -= rcc[res]
		candidates = candidates[1:]
	}
	pools[a-1] = append(pools[a-1], candidates...)
}

// buildSequential implements the sequential correlation-seeding policy:
// each big pool in turn absorbs the unassigned resources best correlated
// with its seed, then the next pool is seeded with the largest remaining
// resource.
func buildSequential(fc *firm.Context, p Params) ([][]int, error) {
	a := p.PoolCount
	total := fc.TotalValue()
	rcc := fc.BenchmarkCost

	pools := make([][]int, a)
	pools[0] = []int{fc.Ranking[0]}
	unassigned := append([]int(nil), fc.Ranking[1:]...)

	// With enough positive-cost resources to seed every pool, zero-cost
	// resources are swept into the miscellaneous pool up front.
	positive := 0
	for _, v := range rcc {
		if v > 0 {
			positive++
		}
	}
	if positive >= a {
		kept := unassigned[:0]
		for _, res := range unassigned {
			if rcc[res] > 0 {
				kept = append(kept, res)
			} else {
				pools[a-1] = append(pools[a-1], res)
			}
		}
		unassigned = kept
	}

	unalloc := 0.0
	for _, res := range unassigned {
		unalloc += rcc[res]
	}

	for i := 0; i < a-1; i++ {
		seed := pools[i][0]
		for {
			needSeeds := a - 2 - i
			if len(unassigned) <= needSeeds {
				break
			}
			if total <= 0 || unalloc/total <= p.MiscPoolFloor {
				break
			}
			best, bestCorr := -1, 0.0
			for pos, res := range unassigned {
				if c := fc.Correlation.At(res, seed); best < 0 || c > bestCorr {
					best = pos
					bestCorr = c
				}
			}
			if bestCorr <= p.CorrelationCutoff {
				break
			}
			res := unassigned[best]
			pools[i] = append(pools[i], res)
			unassigned = append(unassigned[:best], unassigned[best+1:]...)
			unalloc -= rcc[res]
		}

		// Seed the next big pool with the largest remaining resource,
		// regardless of correlation.
		if i+1 < a-1 {
			if len(unassigned) == 0 {
				return nil, errors.Invariant("ran out of resources seeding pool %d of %d", i+1, a)
			}
			res := unassigned[0]
			pools[i+1] = []int{res}
			unassigned = unassigned[1:]
			unalloc -= rcc[res]
		}
	}

	pools[a-1] = append(pools[a-1], unassigned...)
	return pools, nil
}
