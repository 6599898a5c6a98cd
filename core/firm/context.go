// Package firm supplies the immutable per-firm benchmark economics read
// by the cost-system core: resource costs and prices, the
// resource-consumption matrix, product capacities and selling prices,
// and the pairwise resource correlation structure.
package firm

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// Context is the read-only benchmark data of one firm. All cost systems
// built for the firm share a single Context; nothing mutates it after
// construction, so concurrent readers need no locking.
type Context struct {
	// ID identifies the firm within its sample
	ID int

	// Resources is the number of resources R
	Resources int

	// Products is the number of products P
	Products int

	// Consumption is the R×P matrix of resource units consumed per unit
	// of product
	Consumption *mat.Dense

	// UnitCost is the length-R vector of unit resource prices
	UnitCost []float64

	// Capacity is the length-P vector of maximum production quantities
	Capacity []float64

	// Price is the length-P vector of selling prices
	Price []float64

	// BenchmarkCost is the length-R vector of resource costs under the
	// benchmark mix; its sum is the firm's total resource value
	BenchmarkCost []float64

	// Ranking is the permutation of resource indices sorted by
	// descending BenchmarkCost, ties kept in original order
	Ranking []int

	// Correlation is the R×R symmetric matrix of pairwise resource
	// correlations
	Correlation *mat.SymDense
}

// TotalValue returns the sum of benchmark resource costs.
func (c *Context) TotalValue() float64 {
	total := 0.0
	for _, v := range c.BenchmarkCost {
		total += v
	}
	return total
}

// TrueUnitCosts returns the benchmark per-unit product costs implied by
// the consumption matrix and unit resource prices.
func (c *Context) TrueUnitCosts() []float64 {
	unit := mat.NewVecDense(c.Resources, c.UnitCost)
	var out mat.VecDense
	out.MulVec(c.Consumption.T(), unit)
	costs := make([]float64, c.Products)
	copy(costs, out.RawVector().Data)
	return costs
}

// BenchmarkDecision returns the mix a fully informed firm would choose:
// every product whose true margin exceeds one. If no product clears the
// margin the full mix is returned so the simulation has a starting point.
func (c *Context) BenchmarkDecision() types.Decision {
	trueCosts := c.TrueUnitCosts()
	d := types.NewDecision(c.Products)
	any := false
	for j := 0; j < c.Products; j++ {
		if trueCosts[j] > 0 && c.Price[j]/trueCosts[j] > 1 {
			d[j] = true
			any = true
		}
	}
	if !any {
		for j := range d {
			d[j] = true
		}
	}
	return d
}

// Validate checks dimensional consistency of the context.
func (c *Context) Validate() error {
	if c.Resources < 1 || c.Products < 1 {
		return errors.Input("firm context needs at least one resource and one product")
	}
	r, p := c.Consumption.Dims()
	if r != c.Resources || p != c.Products {
		return errors.Newf(errors.TypeInput, "consumption matrix is %dx%d, want %dx%d", r, p, c.Resources, c.Products)
	}
	if len(c.UnitCost) != c.Resources || len(c.BenchmarkCost) != c.Resources || len(c.Ranking) != c.Resources {
		return errors.Input("resource vectors must have length R")
	}
	if len(c.Capacity) != c.Products || len(c.Price) != c.Products {
		return errors.Input("product vectors must have length P")
	}
	if n := c.Correlation.SymmetricDim(); n != c.Resources {
		return errors.Newf(errors.TypeInput, "correlation matrix is %dx%d, want %dx%d", n, n, c.Resources, c.Resources)
	}
	seen := make([]bool, c.Resources)
	for _, idx := range c.Ranking {
		if idx < 0 || idx >= c.Resources || seen[idx] {
			return errors.Input("ranking is not a permutation of the resource indices")
		}
		seen[idx] = true
	}
	return nil
}

// RankByCost returns resource indices sorted by descending cost, ties
// broken by original index order.
func RankByCost(costs []float64) []int {
	rank := make([]int, len(costs))
	for i := range rank {
		rank[i] = i
	}
	sort.SliceStable(rank, func(i, j int) bool {
		return costs[rank[i]] > costs[rank[j]]
	})
	return rank
}
