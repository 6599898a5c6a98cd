package firm

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vanand74/CostSystemSim/internal/errors"
)

// Params controls synthetic firm generation.
type Params struct {
	// Resources is the number of resources R
	Resources int

	// Products is the number of products P
	Products int

	// TotalCost is the target total resource cost at full production
	TotalCost float64

	// Density is the probability that a resource is consumed by a product
	Density float64

	// BaseMix in [0,1] steers correlation between resource consumption
	// patterns: each pattern blends a shared base intensity with
	// resource-specific noise
	BaseMix float64

	// Markup scales true unit cost into selling price
	Markup float64

	// MarkupSpread is the half-width of the uniform markup noise
	MarkupSpread float64
}

// Generate builds one firm's benchmark economics from the given random
// source. The same source state always yields the same firm.
func Generate(id int, p Params, src rand.Source) (*Context, error) {
	if p.Resources < 1 || p.Products < 1 {
		return nil, errors.Config("firm needs at least one resource and one product, got %dx%d", p.Resources, p.Products)
	}
	if p.TotalCost <= 0 {
		return nil, errors.Config("total cost must be positive, got %g", p.TotalCost)
	}
	if p.Density <= 0 || p.Density > 1 {
		return nil, errors.Config("density must be in (0,1], got %g", p.Density)
	}

	rng := rand.New(src)
	lognorm := distuv.LogNormal{Mu: 0, Sigma: 1, Src: src}
	capDist := distuv.Uniform{Min: 10, Max: 100, Src: src}
	markupDist := distuv.Uniform{Min: p.Markup - p.MarkupSpread, Max: p.Markup + p.MarkupSpread, Src: src}

	R, P := p.Resources, p.Products

	// Shared base intensity plus per-entry noise gives the consumption
	// patterns a tunable correlation structure.
	base := make([]float64, R)
	for r := range base {
		base[r] = lognorm.Rand()
	}

	cons := mat.NewDense(R, P, nil)
	for r := 0; r < R; r++ {
		for j := 0; j < P; j++ {
			if rng.Float64() >= p.Density {
				continue
			}
			cons.Set(r, j, p.BaseMix*base[r]+(1-p.BaseMix)*lognorm.Rand())
		}
	}
	fillEmptyLines(cons, rng, base, p.BaseMix, lognorm)

	capacity := make([]float64, P)
	for j := range capacity {
		capacity[j] = math.Round(capDist.Rand())
	}

	// Resource dollar budgets at full production set the unit prices.
	fullUsage := usageAt(cons, capacity, nil)
	weights := make([]float64, R)
	sum := 0.0
	for r := range weights {
		weights[r] = lognorm.Rand()
		sum += weights[r]
	}
	unitCost := make([]float64, R)
	for r := range unitCost {
		budget := p.TotalCost * weights[r] / sum
		unitCost[r] = budget / fullUsage[r]
	}

	ctx := &Context{
		ID:          id,
		Resources:   R,
		Products:    P,
		Consumption: cons,
		UnitCost:    unitCost,
		Capacity:    capacity,
	}

	trueCosts := ctx.TrueUnitCosts()
	price := make([]float64, P)
	for j := range price {
		price[j] = trueCosts[j] * markupDist.Rand()
	}
	ctx.Price = price

	// Benchmark resource costs come from the mix the firm would run
	// under true costing.
	bench := ctx.BenchmarkDecision()
	benchUsage := usageAt(cons, capacity, bench)
	benchCost := make([]float64, R)
	for r := range benchCost {
		benchCost[r] = unitCost[r] * benchUsage[r]
	}
	ctx.BenchmarkCost = benchCost
	ctx.Ranking = RankByCost(benchCost)
	ctx.Correlation = correlationMatrix(cons)

	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// fillEmptyLines guarantees every resource is consumed somewhere and
// every product consumes something, so unit prices and margins stay
// finite.
func fillEmptyLines(cons *mat.Dense, rng *rand.Rand, base []float64, baseMix float64, noise distuv.LogNormal) {
	R, P := cons.Dims()
	for r := 0; r < R; r++ {
		if !rowHasPositive(cons, r) {
			j := rng.Intn(P)
			cons.Set(r, j, baseMix*base[r]+(1-baseMix)*noise.Rand())
		}
	}
	for j := 0; j < P; j++ {
		empty := true
		for r := 0; r < R; r++ {
			if cons.At(r, j) > 0 {
				empty = false
				break
			}
		}
		if empty {
			r := rng.Intn(R)
			cons.Set(r, j, baseMix*base[r]+(1-baseMix)*noise.Rand())
		}
	}
}

func rowHasPositive(cons *mat.Dense, r int) bool {
	_, P := cons.Dims()
	for j := 0; j < P; j++ {
		if cons.At(r, j) > 0 {
			return true
		}
	}
	return false
}

// usageAt returns per-resource usage at the given mix; a nil decision
// means full production.
func usageAt(cons *mat.Dense, capacity []float64, decision []bool) []float64 {
	R, P := cons.Dims()
	qty := make([]float64, P)
	for j := range qty {
		if decision == nil || decision[j] {
			qty[j] = capacity[j]
		}
	}
	var usage mat.VecDense
	usage.MulVec(cons, mat.NewVecDense(P, qty))
	out := make([]float64, R)
	copy(out, usage.RawVector().Data)
	return out
}

// correlationMatrix computes pairwise Pearson correlations between
// resource consumption patterns. Constant patterns have undefined
// correlation and are recorded as zero.
func correlationMatrix(cons *mat.Dense) *mat.SymDense {
	R, P := cons.Dims()
	rows := make([][]float64, R)
	for r := 0; r < R; r++ {
		rows[r] = make([]float64, P)
		mat.Row(rows[r], r, cons)
	}
	corr := mat.NewSymDense(R, nil)
	for i := 0; i < R; i++ {
		corr.SetSym(i, i, 1)
		for j := i + 1; j < R; j++ {
			c := stat.Correlation(rows[i], rows[j], nil)
			if math.IsNaN(c) {
				c = 0
			}
			corr.SetSym(i, j, c)
		}
	}
	return corr
}
