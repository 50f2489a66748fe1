package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CostTable is the configurable per-step cost lookup EstimateCost sums
// over. Keys are uppercased step names; DEFAULT is used for any step name
// not otherwise present.
type CostTable map[string]decimal.Decimal

// DefaultCostTable returns a conservative built-in table so the estimator
// has sane behavior before an operator supplies one via config.
func DefaultCostTable() CostTable {
	return CostTable{
		"DEFAULT": decimal.NewFromInt(1),
	}
}

func (c CostTable) lookup(step string) decimal.Decimal {
	key := strings.ToUpper(step)
	if cost, ok := c[key]; ok {
		return cost
	}
	return c["DEFAULT"]
}

// EstimateResult is the EstimateCost response shape.
type EstimateResult struct {
	Total     decimal.Decimal
	Breakdown map[string]decimal.Decimal
}

// Estimator is a pure, database-free cost calculator: no repository, no
// context, no error return. Constructed with a CostTable and reused
// across requests.
type Estimator struct {
	table CostTable
}

func NewEstimator(table CostTable) Estimator {
	if table == nil {
		table = DefaultCostTable()
	}
	return Estimator{table: table}
}

// EstimateCost sums per-step costs from the configured table.
//
// Duplicate steps are counted multiply in Total but collapse into one
// entry in Breakdown (last write wins): this asymmetry is a deliberate
// API choice the breakdown mapping can't avoid while staying keyed by
// step name, and Total remains the authoritative number callers should
// use for balance checks.
func (e Estimator) EstimateCost(steps []string) EstimateResult {
	total := decimal.Zero
	breakdown := make(map[string]decimal.Decimal)

	for _, step := range steps {
		cost := e.table.lookup(step)
		total = total.Add(cost)
		breakdown[strings.ToUpper(step)] = cost
	}

	return EstimateResult{Total: total, Breakdown: breakdown}
}
