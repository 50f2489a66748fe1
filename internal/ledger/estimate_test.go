package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateCost_EmptyPipeline(t *testing.T) {
	e := NewEstimator(DefaultCostTable())
	result := e.EstimateCost(nil)
	if !result.Total.Equal(decimal.Zero) {
		t.Fatalf("expected total 0 for empty pipeline, got %s", result.Total)
	}
	if len(result.Breakdown) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", result.Breakdown)
	}
}

func TestEstimateCost_UnknownStepUsesDefault(t *testing.T) {
	e := NewEstimator(CostTable{"DEFAULT": decimal.NewFromInt(5)})
	result := e.EstimateCost([]string{"unknown_step"})
	if !result.Total.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected default cost 5, got %s", result.Total)
	}
}

func TestEstimateCost_DuplicateStepsDoubleCountTotalButCollapseBreakdown(t *testing.T) {
	table := CostTable{
		"EMBED": decimal.NewFromInt(2),
		"DEFAULT": decimal.NewFromInt(1),
	}
	e := NewEstimator(table)
	result := e.EstimateCost([]string{"embed", "embed", "embed"})

	if !result.Total.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected total to double-count duplicates (6), got %s", result.Total)
	}
	if len(result.Breakdown) != 1 {
		t.Fatalf("expected breakdown to collapse duplicates into one entry, got %+v", result.Breakdown)
	}
	if cost, ok := result.Breakdown["EMBED"]; !ok || !cost.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected breakdown[EMBED]=2, got %+v", result.Breakdown)
	}
}

func TestEstimateCost_StepNameIsUppercased(t *testing.T) {
	e := NewEstimator(CostTable{"TRANSCRIBE": decimal.NewFromInt(3), "DEFAULT": decimal.Zero})
	result := e.EstimateCost([]string{"transcribe"})
	if !result.Total.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected case-insensitive lookup to find rate 3, got %s", result.Total)
	}
}
