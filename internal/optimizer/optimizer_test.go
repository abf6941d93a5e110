package optimizer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-lab/internal/types"
)

func trendingBars(n int) types.BarTable {
	ts := make([]time.Time, n)
	o := make([]float64, n)
	h := make([]float64, n)
	l := make([]float64, n)
	c := make([]float64, n)
	v := make([]float64, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		price := 100 + float64(i)*0.6
		o[i], c[i] = price, price
		h[i], l[i] = price+1, price-1
		v[i] = 100
	}
	return types.BarTable{Timestamps: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func baseOptimizeConfig() OptimizeConfig {
	return OptimizeConfig{
		StrategyName: "marsi",
		StrategyRanges: ParamRanges{
			"fast_period": {3, 5},
			"slow_period": {10, 20},
		},
		BaseBacktestConfig: types.BacktestConfig{
			InitialCapital: decimal.RequireFromString("10000"),
			Mode:           types.StopTakePct,
			Pct:            types.PctStopTake{SLPct: 0.02, TPRR: 2},
			AllowShort:     true,
		},
		BaseRiskConfig:  types.RiskConfig{RiskPct: 0.01, MaxPositionPct: 1},
		MaxCombinations: 0,
		MinTrades:       0,
		Metric:          MetricTotalReturnPct,
	}
}

func TestOptimizer_Optimize_ProducesRankedResults(t *testing.T) {
	bars := trendingBars(200)
	opt := New(bars)
	result, err := opt.Optimize(context.Background(), baseOptimizeConfig())
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if result.Tried != 4 {
		t.Fatalf("Tried = %d, want 4 (2x2 grid)", result.Tried)
	}
	if result.Best == nil {
		t.Fatal("expected a non-nil best result on a trending series")
	}
	for _, r := range result.All {
		if r.Skipped {
			continue
		}
		if r.Metrics.TotalReturnPct > result.Best.Metrics.TotalReturnPct {
			t.Errorf("found a result %v better than reported best %v", r.Metrics.TotalReturnPct, result.Best.Metrics.TotalReturnPct)
		}
	}
}

func TestOptimizer_Optimize_FilterExcludesInfeasibleCombinations(t *testing.T) {
	cfg := baseOptimizeConfig()
	cfg.StrategyRanges = ParamRanges{
		"fast_period": {5, 30},
		"slow_period": {10, 20},
	}
	cfg.Filter = func(c Combination) bool {
		fast, _ := toFloat(c.StrategyParams["fast_period"])
		slow, _ := toFloat(c.StrategyParams["slow_period"])
		return fast < slow
	}

	bars := trendingBars(100)
	result, err := New(bars).Optimize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	// (5,10) (5,20) (30,20)x -> (30,10)x: 2 survive, 2 dropped
	if result.Tried != 2 {
		t.Fatalf("Tried = %d, want 2 after filtering", result.Tried)
	}
	if result.FilteredOut != 2 {
		t.Errorf("FilteredOut = %d, want 2", result.FilteredOut)
	}
}

func TestOptimizer_Optimize_MinTradesSkipsThinResults(t *testing.T) {
	cfg := baseOptimizeConfig()
	cfg.MinTrades = 1_000_000 // impossible to reach on a finite series
	bars := trendingBars(50)

	result, err := New(bars).Optimize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if result.Best != nil {
		t.Error("expected no combination to clear an impossible min_trades")
	}
	if result.Skipped != result.Tried {
		t.Errorf("Skipped = %d, want all %d tried combinations skipped", result.Skipped, result.Tried)
	}
}

func TestOptimizer_Optimize_ContextCancelledBeforeDispatchStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bars := trendingBars(50)
	result, err := New(bars).Optimize(ctx, baseOptimizeConfig())
	if err == nil {
		t.Error("expected a context-cancellation error")
	}
	if result.Tried > 4 {
		t.Errorf("Tried = %d, cannot exceed the 4-combination grid", result.Tried)
	}
}

func TestSortResults_AscendingForMaxDrawdown(t *testing.T) {
	results := []CombinationResult{
		{Metrics: types.MetricsBundle{MaxDrawdownPct: 20, TotalReturnPct: 5}},
		{Metrics: types.MetricsBundle{MaxDrawdownPct: 5, TotalReturnPct: 1}},
	}
	sortResults(results, MetricMaxDrawdownPct)
	if results[0].Metrics.MaxDrawdownPct != 5 {
		t.Fatalf("sortResults() put %+v first, want the lower drawdown", results[0])
	}
}

func TestSortResults_DescendingForProfitFactor(t *testing.T) {
	results := []CombinationResult{
		{Metrics: types.MetricsBundle{ProfitFactor: 1.2, TotalReturnPct: 5}},
		{Metrics: types.MetricsBundle{ProfitFactor: 2.5, TotalReturnPct: 1}},
	}
	sortResults(results, MetricProfitFactor)
	if results[0].Metrics.ProfitFactor != 2.5 {
		t.Fatalf("sortResults() put %+v first, want the higher profit factor", results[0])
	}
}

func TestSortResults_TieBreaksOnTotalReturnPct(t *testing.T) {
	results := []CombinationResult{
		{Metrics: types.MetricsBundle{ProfitFactor: 2.0, TotalReturnPct: 3}},
		{Metrics: types.MetricsBundle{ProfitFactor: 2.0, TotalReturnPct: 9}},
	}
	sortResults(results, MetricProfitFactor)
	if results[0].Metrics.TotalReturnPct != 9 {
		t.Fatalf("sortResults() put %+v first, want the tie broken toward higher total_return_pct", results[0])
	}
}

func TestSortResults_SkippedRowsSortLast(t *testing.T) {
	results := []CombinationResult{
		{Skipped: true, SkipReason: "first"},
		{Metrics: types.MetricsBundle{TotalReturnPct: 1}},
		{Skipped: true, SkipReason: "second"},
	}
	sortResults(results, MetricTotalReturnPct)
	if results[0].Skipped {
		t.Fatalf("sortResults() put a skipped row first: %+v", results[0])
	}
	if !results[1].Skipped || !results[2].Skipped {
		t.Fatal("expected both skipped rows to sort after the evaluated one")
	}
	if results[1].SkipReason != "first" || results[2].SkipReason != "second" {
		t.Errorf("skipped rows reordered among themselves: got %q, %q", results[1].SkipReason, results[2].SkipReason)
	}
}

func TestMetricValue_UnknownMetricDefaultsToTotalReturn(t *testing.T) {
	m := types.MetricsBundle{TotalReturnPct: 7.5}
	if v := metricValue(m, "not_a_real_metric"); math.Abs(v-7.5) > 1e-9 {
		t.Errorf("metricValue() = %v, want 7.5", v)
	}
}
