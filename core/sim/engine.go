// Package sim runs the decision-iteration loop: a firm repeatedly
// re-optimizes its product mix against the costs its cost system
// reports, until the trajectory reaches an equilibrium, a cycle, a
// zero-production mix, or degenerates numerically.
package sim

import (
	"math"

	"github.com/vanand74/CostSystemSim/core/costsys"
	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// defaultCap bounds the loop when 2^P would overflow a practical
// iteration budget.
const defaultCap = 1 << 20

// Engine drives one cost system to a terminal outcome.
type Engine struct {
	system     *costsys.System
	hysteresis float64
	limit      int
}

// Result is the terminal classification of a trajectory.
type Result struct {
	// Outcome is the terminal state
	Outcome types.Outcome

	// Final is the decision at termination: the fixed point for
	// equilibrium, the revisit point for cycles, the all-off mix for
	// zero-mix, and the last numeric decision for NaN
	Final types.Decision

	// Iterations is the number of reported-cost evaluations
	Iterations int

	// Reported is the last reported unit-cost vector
	Reported []float64
}

// New creates an engine. A maxIterations of zero derives the cap from
// the product count: the decision space is finite, so any trajectory
// must repeat within 2^P+1 steps.
func New(system *costsys.System, hysteresis float64, maxIterations int) (*Engine, error) {
	if hysteresis < 0 || hysteresis >= 1 {
		return nil, errors.Config("hysteresis must be in [0,1), got %g", hysteresis)
	}
	if maxIterations < 0 {
		return nil, errors.Config("max iterations must be >= 0, got %d", maxIterations)
	}

	limit := maxIterations
	if limit == 0 {
		limit = defaultCap
		if p := system.Firm().Products; p < 20 {
			limit = (1 << p) + 1
		}
	}
	return &Engine{system: system, hysteresis: hysteresis, limit: limit}, nil
}

// Run iterates from the starting decision to a terminal outcome. An
// error means the loop overran its cap or the cost system broke an
// invariant, never a valid simulation result.
func (e *Engine) Run(start types.Decision) (*Result, error) {
	fc := e.system.Firm()
	if len(start) != fc.Products {
		return nil, errors.Newf(errors.TypeInput, "starting decision has %d products, firm has %d", len(start), fc.Products)
	}

	current := start.Clone()
	history := map[string]struct{}{current.Key(): {}}

	for iter := 1; iter <= e.limit; iter++ {
		reported, err := e.system.ReportedCosts(current)
		if err != nil {
			return nil, err
		}
		if hasNaN(reported) {
			return &Result{Outcome: types.OutcomeNaN, Final: current, Iterations: iter, Reported: reported}, nil
		}

		next := e.nextDecision(current, reported)

		switch {
		case next.Equal(current):
			return &Result{Outcome: types.OutcomeEquilibrium, Final: next, Iterations: iter, Reported: reported}, nil
		case e.zeroQuantities(next):
			return &Result{Outcome: types.OutcomeZeroMix, Final: next, Iterations: iter, Reported: reported}, nil
		}
		if _, seen := history[next.Key()]; seen {
			// The revisited decision closes the cycle; the most recent
			// distinct decision is reported as final.
			return &Result{Outcome: types.OutcomeCycle, Final: current, Iterations: iter, Reported: reported}, nil
		}

		history[next.Key()] = struct{}{}
		current = next
	}

	return nil, errors.Invariant("decision loop exceeded %d iterations without terminating", e.limit)
}

// nextDecision applies the hysteresis rule to reported margins: a
// produced product is dropped when its margin falls to 1-h or below, an
// idle product is added when its margin exceeds 1+h, and everything else
// carries forward.
func (e *Engine) nextDecision(current types.Decision, reported []float64) types.Decision {
	fc := e.system.Firm()
	next := current.Clone()
	for j := range next {
		margin := fc.Price[j] / reported[j]
		produced := current[j] && fc.Capacity[j] > 0
		if produced {
			if margin <= 1-e.hysteresis {
				next[j] = false
			}
		} else if margin > 1+e.hysteresis {
			next[j] = true
		}
	}
	return next
}

// zeroQuantities reports whether the decision produces nothing at the
// firm's capacities.
func (e *Engine) zeroQuantities(d types.Decision) bool {
	fc := e.system.Firm()
	for j, on := range d {
		if on && fc.Capacity[j] > 0 {
			return false
		}
	}
	return true
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

// Check builds an engine with the given settings and runs it from the
// starting decision. It is the one-shot form used by batch drivers.
func Check(system *costsys.System, start types.Decision, hysteresis float64, maxIterations int) (*Result, error) {
	engine, err := New(system, hysteresis, maxIterations)
	if err != nil {
		return nil, err
	}
	return engine.Run(start)
}
