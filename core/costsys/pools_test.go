package costsys

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/vanand74/CostSystemSim/core/firm"
	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// newTestFirm builds a firm context from explicit benchmark data.
// consRows is row-major R×P; corr is nil for an identity correlation
// matrix.
func newTestFirm(tb testing.TB, bench []float64, consRows [][]float64, unitCost, capacity, price []float64, corr [][]float64) *firm.Context {
	tb.Helper()

	r := len(bench)
	p := len(capacity)
	cons := mat.NewDense(r, p, nil)
	for i, row := range consRows {
		for j, v := range row {
			cons.Set(i, j, v)
		}
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		sym.SetSym(i, i, 1)
		for j := i + 1; j < r; j++ {
			if corr != nil {
				sym.SetSym(i, j, corr[i][j])
			}
		}
	}

	fc := &firm.Context{
		ID:            0,
		Resources:     r,
		Products:      p,
		Consumption:   cons,
		UnitCost:      unitCost,
		Capacity:      capacity,
		Price:         price,
		BenchmarkCost: bench,
		Ranking:       firm.RankByCost(bench),
		Correlation:   sym,
	}
	if err := fc.Validate(); err != nil {
		tb.Fatalf("invalid test firm: %v", err)
	}
	return fc
}

// fourResourceFirm is the pinned regression context: four resources with
// benchmark costs [100,80,15,5] and two products.
func fourResourceFirm(tb testing.TB) *firm.Context {
	return newTestFirm(tb,
		[]float64{100, 80, 15, 5},
		[][]float64{{1, 1}, {1, 0}, {0, 1}, {1, 1}},
		[]float64{1, 1, 1, 1},
		[]float64{10, 10},
		[]float64{5, 5},
		nil,
	)
}

func TestSinglePoolHoldsAllResourcesRankedOrder(t *testing.T) {
	fc := fourResourceFirm(t)
	for _, pooling := range []types.PoolingPolicy{0, 1, 2, 3} {
		sys, err := New(fc, Params{
			PoolCount:       1,
			Pooling:         pooling,
			Driver:          types.DriverBigPool,
			DriverResources: 1,
		}, rand.New(rand.NewSource(1)))
		if err != nil {
			t.Fatalf("policy %v: %v", pooling, err)
		}
		pools := sys.Pools()
		if len(pools) != 1 {
			t.Fatalf("policy %v: expected 1 pool, got %d", pooling, len(pools))
		}
		if diff := cmp.Diff([]int{0, 1, 2, 3}, pools[0]); diff != "" {
			t.Errorf("policy %v: pool not in ranked order (-want +got):\n%s", pooling, diff)
		}
	}
}

// TestSizeOnlyPinnedScenario pins the exact a=2 p=0 partition for the
// [100,80,15,5] context: pool 0 holds only the top-ranked resource,
// everything else lands in the miscellaneous pool.
func TestSizeOnlyPinnedScenario(t *testing.T) {
	fc := fourResourceFirm(t)
	sys, err := New(fc, Params{
		PoolCount: 2,
		Pooling:   types.PoolingSizeOnly,
		Driver:    types.DriverBigPool,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]int{{0}, {1, 2, 3}}
	if diff := cmp.Diff(want, sys.Pools()); diff != "" {
		t.Errorf("unexpected partition (-want +got):\n%s", diff)
	}
}

func TestPoolsPartitionResources(t *testing.T) {
	fc, err := firm.Generate(0, firm.Params{
		Resources: 12,
		Products:  6,
		TotalCost: 100_000,
		Density:   0.6,
		BaseMix:   0.5,
		Markup:    1.25,
	}, rand.NewSource(7))
	if err != nil {
		t.Fatalf("generating firm: %v", err)
	}

	for _, pooling := range []types.PoolingPolicy{0, 1, 2, 3} {
		for _, a := range []int{1, 2, 3, 6, 12} {
			sys, err := New(fc, Params{
				PoolCount:         a,
				Pooling:           pooling,
				Driver:            types.DriverBigPool,
				DriverResources:   1,
				MiscPoolFloor:     0.05,
				CorrelationCutoff: 0.3,
			}, rand.New(rand.NewSource(uint64(a))))
			if err != nil {
				t.Fatalf("policy %v a=%d: %v", pooling, a, err)
			}

			pools := sys.Pools()
			if len(pools) != a {
				t.Fatalf("policy %v a=%d: got %d pools", pooling, a, len(pools))
			}
			seen := make(map[int]int)
			for _, pool := range pools {
				for _, res := range pool {
					seen[res]++
				}
			}
			if len(seen) != fc.Resources {
				t.Errorf("policy %v a=%d: %d of %d resources pooled", pooling, a, len(seen), fc.Resources)
			}
			for res, n := range seen {
				if n != 1 {
					t.Errorf("policy %v a=%d: resource %d appears %d times", pooling, a, res, n)
				}
			}
		}
	}
}

// TestCorrelationPolicyAssignsAboveCutoff checks the greedy policy
// routes well-correlated candidates to their best seed and stops at the
// cutoff.
func TestCorrelationPolicyAssignsAboveCutoff(t *testing.T) {
	// Resource 3 tracks seed 1, resource 4 tracks seed 0; resource 5
	// correlates with nothing.
	corr := [][]float64{
		0: {0, 0, 0, 0.2, 0.9, 0.1},
		1: {0, 0, 0, 0.8, 0.1, 0.1},
		2: {0, 0, 0, 0.3, 0.2, 0.1},
		3: {0, 0, 0, 0, 0, 0},
		4: {0, 0, 0, 0, 0, 0},
		5: {0, 0, 0, 0, 0, 0},
	}
	fc := newTestFirm(t,
		[]float64{100, 90, 80, 30, 20, 10},
		[][]float64{{1, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 1}, {1, 1}},
		[]float64{1, 1, 1, 1, 1, 1},
		[]float64{10, 10},
		[]float64{5, 5},
		corr,
	)

	sys, err := New(fc, Params{
		PoolCount:         4,
		Pooling:           types.PoolingCorrelation,
		Driver:            types.DriverBigPool,
		MiscPoolFloor:     0.0,
		CorrelationCutoff: 0.5,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Candidates 3,4,5 have best correlations 0.8 (seed 1), 0.9 (seed
	// 0), 0.1; processed as 4, 3, then 5 which fails the cutoff.
	want := [][]int{{0, 4}, {1, 3}, {2}, {5}}
	if diff := cmp.Diff(want, sys.Pools()); diff != "" {
		t.Errorf("unexpected partition (-want +got):\n%s", diff)
	}
}

// TestCorrelationPolicyMiscRescue pins the known edge case: when the
// greedy loop drains the miscellaneous pool of all value, the last
// assignment is undone so the pool keeps a positive-cost resource.
func TestCorrelationPolicyMiscRescue(t *testing.T) {
	ones := [][]float64{
		{0, 1, 1},
		{0, 0, 1},
		{0, 0, 0},
	}
	fc := newTestFirm(t,
		[]float64{100, 50, 25},
		[][]float64{{1, 0}, {0, 1}, {1, 1}},
		[]float64{1, 1, 1},
		[]float64{10, 10},
		[]float64{5, 5},
		ones,
	)

	sys, err := New(fc, Params{
		PoolCount:         2,
		Pooling:           types.PoolingCorrelation,
		Driver:            types.DriverBigPool,
		MiscPoolFloor:     0.0,
		CorrelationCutoff: 0.5,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both candidates pass the cutoff and would join pool 0, leaving
	// the miscellaneous pool value-empty; resource 2 is moved back.
	want := [][]int{{0, 1}, {2}}
	if diff := cmp.Diff(want, sys.Pools()); diff != "" {
		t.Errorf("unexpected partition (-want +got):\n%s", diff)
	}
}

// TestRandomPolicyRespectsFloor checks the random-fill loop stops
// assigning once the unallocated value reaches the miscellaneous floor.
func TestRandomPolicyRespectsFloor(t *testing.T) {
	fc := newTestFirm(t,
		[]float64{40, 30, 15, 10, 5},
		[][]float64{{1, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 1}},
		[]float64{1, 1, 1, 1, 1},
		[]float64{10, 10},
		[]float64{5, 5},
		nil,
	)

	sys, err := New(fc, Params{
		PoolCount:     3,
		Pooling:       types.PoolingRandom,
		Driver:        types.DriverBigPool,
		MiscPoolFloor: 0.10,
	}, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pools := sys.Pools()
	misc := pools[len(pools)-1]
	if len(misc) == 0 {
		t.Fatal("miscellaneous pool is empty")
	}
	// Candidates are popped in ranked order, so the miscellaneous pool
	// holds a ranked-order suffix of the candidate list.
	total := fc.TotalValue()
	assigned := 0.0
	for _, pool := range pools[:len(pools)-1] {
		for _, res := range pool[1:] {
			assigned += fc.BenchmarkCost[res]
		}
	}
	candidateValue := 0.0
	for _, res := range fc.Ranking[2:] {
		candidateValue += fc.BenchmarkCost[res]
	}
	if frac := (candidateValue - assigned) / total; frac <= 0 {
		t.Errorf("miscellaneous pool has no value, unallocated fraction %g", frac)
	}
}

// TestSequentialPolicySeedsAndAbsorbs walks the sequential policy
// through a steered correlation structure.
func TestSequentialPolicySeedsAndAbsorbs(t *testing.T) {
	corr := [][]float64{
		0: {0, 0.9, 0.1, 0.2},
		1: {0, 0, 0, 0},
		2: {0, 0, 0, 0.8},
		3: {0, 0, 0, 0},
	}
	fc := newTestFirm(t,
		[]float64{100, 80, 60, 40},
		[][]float64{{1, 0}, {0, 1}, {1, 1}, {1, 0}},
		[]float64{1, 1, 1, 1},
		[]float64{10, 10},
		[]float64{5, 5},
		corr,
	)

	sys, err := New(fc, Params{
		PoolCount:         3,
		Pooling:           types.PoolingSequential,
		Driver:            types.DriverBigPool,
		MiscPoolFloor:     0.0,
		CorrelationCutoff: 0.5,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pool 0 absorbs resource 1 (corr 0.9), then pool 1 is seeded with
	// resource 2 and absorbs resource 3 (corr 0.8); nothing is left for
	// the miscellaneous pool.
	want := [][]int{{0, 1}, {2, 3}, {}}
	got := sys.Pools()
	for i := range got {
		if got[i] == nil {
			got[i] = []int{}
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected partition (-want +got):\n%s", diff)
	}
}

// TestSequentialPolicySweepsZeroCostResources checks the up-front sweep
// of zero-cost resources when enough positive-cost resources exist to
// seed every pool.
func TestSequentialPolicySweepsZeroCostResources(t *testing.T) {
	fc := newTestFirm(t,
		[]float64{100, 80, 60, 0},
		[][]float64{{1, 0}, {0, 1}, {1, 1}, {0, 0}},
		[]float64{1, 1, 1, 1},
		[]float64{10, 10},
		[]float64{5, 5},
		nil, // identity: nothing correlates, pools stay seed-only
	)

	sys, err := New(fc, Params{
		PoolCount:         3,
		Pooling:           types.PoolingSequential,
		Driver:            types.DriverBigPool,
		MiscPoolFloor:     0.0,
		CorrelationCutoff: 0.5,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]int{{0}, {1}, {3, 2}}
	if diff := cmp.Diff(want, sys.Pools()); diff != "" {
		t.Errorf("unexpected partition (-want +got):\n%s", diff)
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	fc := fourResourceFirm(t)

	tests := []struct {
		name   string
		params Params
	}{
		{"zero pools", Params{PoolCount: 0, Pooling: types.PoolingSizeOnly, Driver: types.DriverBigPool}},
		{"more pools than resources", Params{PoolCount: 5, Pooling: types.PoolingSizeOnly, Driver: types.DriverBigPool}},
		{"unknown pooling policy", Params{PoolCount: 2, Pooling: 9, Driver: types.DriverBigPool}},
		{"unknown driver policy", Params{PoolCount: 2, Pooling: types.PoolingSizeOnly, Driver: 7}},
		{"indexed driver without k", Params{PoolCount: 2, Pooling: types.PoolingSizeOnly, Driver: types.DriverIndexed, DriverResources: 0}},
		{"random pooling without source", Params{PoolCount: 2, Pooling: types.PoolingRandom, Driver: types.DriverBigPool}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(fc, tt.params, nil)
			if err == nil {
				t.Fatal("expected configuration error, got nil")
			}
			if !errors.IsType(err, errors.TypeConfig) {
				t.Errorf("expected %s, got %v", errors.TypeConfig, err)
			}
		})
	}
}
