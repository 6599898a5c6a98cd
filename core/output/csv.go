// Package output writes flat simulation result logs.
package output

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vanand74/CostSystemSim/core/types"
	"github.com/vanand74/CostSystemSim/internal/errors"
)

// Row is one simulation unit's result: a single (firm, pool count,
// pooling policy, driver policy) combination driven to its outcome.
type Row struct {
	// RunID identifies the unit of work
	RunID string

	// Firm is the firm's index within the sample
	Firm int

	// PoolCount is the number of activity cost pools
	PoolCount int

	// Pooling is the pooling policy
	Pooling types.PoolingPolicy

	// Driver is the driver policy
	Driver types.DriverPolicy

	// Outcome is the terminal classification
	Outcome types.Outcome

	// Iterations is the number of decision-loop iterations
	Iterations int

	// FinalDecision is the terminal decision as a bit string
	FinalDecision string

	// ProductsProduced is the number of products in the final mix
	ProductsProduced int

	// TotalValue is the firm's total benchmark resource value
	TotalValue float64

	// MeanCostError is the mean absolute relative error of reported
	// versus true unit costs over the benchmark mix
	MeanCostError float64
}

// Writer appends result rows to a CSV stream.
type Writer struct {
	csv       *csv.Writer
	precision int32
	wrote     bool
}

// NewWriter creates a writer with the given decimal precision for cost
// columns.
func NewWriter(w io.Writer, precision int) *Writer {
	return &Writer{csv: csv.NewWriter(w), precision: int32(precision)}
}

var header = []string{
	"run_id",
	"firm",
	"pool_count",
	"pooling_policy",
	"driver_policy",
	"outcome",
	"iterations",
	"final_decision",
	"products_produced",
	"total_value",
	"mean_cost_error",
}

// Write appends one row, emitting the header before the first row.
func (w *Writer) Write(row Row) error {
	if !w.wrote {
		if err := w.csv.Write(header); err != nil {
			return errors.IO("writing result header", err)
		}
		w.wrote = true
	}

	record := []string{
		row.RunID,
		strconv.Itoa(row.Firm),
		strconv.Itoa(row.PoolCount),
		row.Pooling.String(),
		row.Driver.String(),
		row.Outcome.String(),
		strconv.Itoa(row.Iterations),
		row.FinalDecision,
		strconv.Itoa(row.ProductsProduced),
		w.fixed(row.TotalValue),
		w.fixed(row.MeanCostError),
	}
	if err := w.csv.Write(record); err != nil {
		return errors.IO("writing result row", err)
	}
	return nil
}

// fixed renders a cost column at the configured precision. Degenerate
// values pass through as their outcome code, since decimal cannot
// represent them.
func (w *Writer) fixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NAN"
	}
	return decimal.NewFromFloat(v).StringFixed(w.precision)
}

// Flush writes buffered rows to the underlying stream.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return errors.IO("flushing result log", err)
	}
	return nil
}
