// Package types holds the shared value types of the simulation core.
package types

import "strings"

// PoolingPolicy selects the heuristic used to assign resources to
// activity cost pools.
type PoolingPolicy int

const (
	// PoolingSizeOnly seeds the big pools and sends everything else to
	// the miscellaneous pool.
	PoolingSizeOnly PoolingPolicy = 0

	// PoolingCorrelation greedily attaches resources to the big pool
	// whose seed they correlate with best, subject to a cutoff.
	PoolingCorrelation PoolingPolicy = 1

	// PoolingRandom assigns resources to uniformly chosen big pools
	// until the miscellaneous-pool floor is reached.
	PoolingRandom PoolingPolicy = 2

	// PoolingSequential fills one pool at a time with the resources
	// best correlated to that pool's seed.
	PoolingSequential PoolingPolicy = 3
)

// Valid reports whether the policy code is one of the known heuristics.
func (p PoolingPolicy) Valid() bool {
	return p >= PoolingSizeOnly && p <= PoolingSequential
}

// String returns a short policy name for logs and result rows.
func (p PoolingPolicy) String() string {
	switch p {
	case PoolingSizeOnly:
		return "size"
	case PoolingCorrelation:
		return "correlation"
	case PoolingRandom:
		return "random"
	case PoolingSequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// DriverPolicy selects how many resources represent a pool's cost behavior.
type DriverPolicy int

const (
	// DriverBigPool uses the single largest resource of each pool.
	DriverBigPool DriverPolicy = 0

	// DriverIndexed uses the top-k resources of each pool as a composite
	// driver.
	DriverIndexed DriverPolicy = 1
)

// Valid reports whether the policy code is known.
func (d DriverPolicy) Valid() bool {
	return d == DriverBigPool || d == DriverIndexed
}

// String returns a short policy name for logs and result rows.
func (d DriverPolicy) String() string {
	switch d {
	case DriverBigPool:
		return "bigpool"
	case DriverIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal classification of a decision trajectory.
// The engine never exposes a running or unassigned state.
type Outcome string

const (
	// OutcomeEquilibrium means the decision reproduces itself.
	OutcomeEquilibrium Outcome = "EQUILIBRIUM"

	// OutcomeCycle means the trajectory revisited an earlier decision.
	OutcomeCycle Outcome = "CYCLE"

	// OutcomeZeroMix means the firm dropped every product.
	OutcomeZeroMix Outcome = "ZERO_MIX"

	// OutcomeNaN means reported costs degenerated numerically.
	OutcomeNaN Outcome = "NAN"
)

// String returns the outcome code.
func (o Outcome) String() string {
	return string(o)
}

// Decision is a binary production plan: element j is true when product j
// is produced.
type Decision []bool

// NewDecision returns an all-false decision for p products.
func NewDecision(p int) Decision {
	return make(Decision, p)
}

// Clone returns an independent copy.
func (d Decision) Clone() Decision {
	out := make(Decision, len(d))
	copy(out, d)
	return out
}

// Equal reports whether two decisions select exactly the same products.
func (d Decision) Equal(other Decision) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// Count returns the number of produced products.
func (d Decision) Count() int {
	n := 0
	for _, on := range d {
		if on {
			n++
		}
	}
	return n
}

// Key returns a canonical bit-string form, usable as a map key for
// trajectory histories.
func (d Decision) Key() string {
	var b strings.Builder
	b.Grow(len(d))
	for _, on := range d {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// String renders the decision as a bit string.
func (d Decision) String() string {
	return d.Key()
}
