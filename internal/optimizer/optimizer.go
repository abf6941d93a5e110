// Package optimizer runs a strategy/backtest-configuration grid search
// (and walk-forward validation on top of it) across a bounded worker
// pool, generalizing the teacher's goroutine-per-feed fan-out
// (observer.Observer.Subscribe) and sync.RWMutex-guarded shared state
// (risk.Engine) into "N worker goroutines draining a combination
// channel", each writing its result into a pre-sized slice at the
// combination's own index, so no two workers share a slot and no mutex
// is needed.
package optimizer

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/tathienbao/quant-lab/internal/backtest"
	"github.com/tathienbao/quant-lab/internal/strategy"
	"github.com/tathienbao/quant-lab/internal/types"
)

// Metric names accepted by OptimizeConfig.Metric.
const (
	MetricProfitFactor   = "profit_factor"
	MetricTotalReturnPct = "total_return_pct"
	MetricSharpeRatio    = "sharpe_ratio"
	MetricSortinoRatio   = "sortino_ratio"
	MetricWinRate        = "win_rate"
	MetricExpectancy     = "expectancy"
	MetricCalmarRatio    = "calmar_ratio"
	MetricMaxDrawdownPct = "max_drawdown_pct"
)

// OptimizeConfig configures a single Optimize call.
type OptimizeConfig struct {
	StrategyName       string
	StrategyRanges     ParamRanges
	BacktestRanges     ParamRanges
	BaseBacktestConfig types.BacktestConfig
	BaseRiskConfig     types.RiskConfig

	MaxCombinations int
	Seed            uint64
	MinTrades       int
	Metric          string // one of the Metric* constants; defaults to MetricTotalReturnPct
	NJobs           int    // 0 => runtime.NumCPU()

	// Filter excludes infeasible combinations (e.g. fast_period >=
	// slow_period) before evaluation.
	Filter func(Combination) bool
}

// CombinationResult is one evaluated (or skipped) grid point.
type CombinationResult struct {
	Combination Combination
	Metrics     types.MetricsBundle
	Skipped     bool
	SkipReason  string
}

// Result is the outcome of a full grid search.
type Result struct {
	Best       *CombinationResult
	All        []CombinationResult
	Tried      int
	Skipped    int
	FilteredOut int
}

// Optimizer evaluates a strategy/backtest-configuration grid against a
// fixed bar table.
type Optimizer struct {
	bars types.BarTable
}

// New constructs an Optimizer over bars. bars is read-only for the
// lifetime of every Optimize call: strategy.GenerateSignals is a pure
// function (§4.2) and never mutates its input, so the same table is safe
// to share, unsynchronized, across every worker goroutine.
func New(bars types.BarTable) *Optimizer {
	return &Optimizer{bars: bars}
}

// Optimize runs the grid search described by cfg. ctx governs dispatch
// only: there is no mid-run cancellation of an in-flight evaluation
// (§5), but Optimize stops handing new combinations to workers once
// ctx.Done() fires and returns ctx.Err() alongside whatever partial
// result had already completed.
func (o *Optimizer) Optimize(ctx context.Context, cfg OptimizeConfig) (Result, error) {
	if err := o.bars.Validate(); err != nil {
		return Result{}, err
	}
	metric := cfg.Metric
	if metric == "" {
		metric = MetricTotalReturnPct
	}

	combos, filteredOut := buildGrid(cfg.StrategyRanges, cfg.BacktestRanges, cfg.MaxCombinations, cfg.Seed, cfg.Filter)
	if len(combos) == 0 {
		return Result{FilteredOut: filteredOut}, nil
	}

	nJobs := cfg.NJobs
	if nJobs <= 0 {
		nJobs = runtime.NumCPU()
	}
	if nJobs > len(combos) {
		nJobs = len(combos)
	}

	type indexedCombo struct {
		index int
		combo Combination
	}
	work := make(chan indexedCombo)
	results := make([]CombinationResult, len(combos))
	var wg sync.WaitGroup

	for w := 0; w < nJobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ic := range work {
				results[ic.index] = o.evaluate(ic.combo, cfg)
			}
		}()
	}

	var dispatchErr error
	tried := 0
dispatch:
	for i, combo := range combos {
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break dispatch
		}
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		case work <- indexedCombo{index: i, combo: combo}:
			tried++
		}
	}
	close(work)
	wg.Wait()
	results = results[:tried]

	sortResults(results, metric)

	var skipped int
	for _, r := range results {
		if r.Skipped {
			skipped++
		}
	}

	var best *CombinationResult
	if len(results) > 0 && !results[0].Skipped {
		b := results[0]
		best = &b
	}

	return Result{
		Best:        best,
		All:         results,
		Tried:       len(results),
		Skipped:     skipped,
		FilteredOut: filteredOut,
	}, dispatchErr
}

// evaluate builds a strategy and Backtester from combo, runs them
// against the shared bar table, and returns either a scored result or a
// skip marker (invalid combination, backtest construction error, or a
// trade count below MinTrades). A panic inside strategy/backtest code for
// this one combination — an index bug in a user strategy, an unchecked
// type assertion on a param value — is recovered here and reported as a
// skipped row instead of crashing the worker goroutine and the whole
// run, mirroring the teacher's per-event failure isolation
// (internal/engine/failure_test.go).
func (o *Optimizer) evaluate(combo Combination, cfg OptimizeConfig) (r CombinationResult) {
	defer func() {
		if p := recover(); p != nil {
			r = CombinationResult{Combination: combo, Skipped: true, SkipReason: fmt.Sprintf("panic: %v", p)}
		}
	}()

	strat, err := strategy.New(cfg.StrategyName, combo.StrategyParams)
	if err != nil {
		return CombinationResult{Combination: combo, Skipped: true, SkipReason: err.Error()}
	}

	signalBars, err := strat.GenerateSignals(o.bars)
	if err != nil {
		return CombinationResult{Combination: combo, Skipped: true, SkipReason: err.Error()}
	}

	btCfg, riskCfg := applyBacktestParams(cfg.BaseBacktestConfig, cfg.BaseRiskConfig, params(combo.BacktestParams))
	bt, err := backtest.New(btCfg, riskCfg)
	if err != nil {
		return CombinationResult{Combination: combo, Skipped: true, SkipReason: err.Error()}
	}

	result, err := bt.Run(signalBars)
	if err != nil {
		return CombinationResult{Combination: combo, Skipped: true, SkipReason: err.Error()}
	}

	if result.Metrics.NumTrades < cfg.MinTrades {
		return CombinationResult{
			Combination: combo,
			Metrics:     result.Metrics,
			Skipped:     true,
			SkipReason:  fmt.Sprintf("%v: %d trades < min_trades %d", types.ErrMinTradesNotMet, result.Metrics.NumTrades, cfg.MinTrades),
		}
	}

	return CombinationResult{Combination: combo, Metrics: result.Metrics}
}

// metricValue extracts the sort key named by metric from a metrics
// bundle. win_rate reads WinratePct (the bundle's name for it) to match
// the optimizer's "short metric name" vocabulary from §4.4.
func metricValue(m types.MetricsBundle, metric string) float64 {
	switch metric {
	case MetricProfitFactor:
		return m.ProfitFactor
	case MetricSharpeRatio:
		return m.SharpeRatio
	case MetricSortinoRatio:
		return m.SortinoRatio
	case MetricWinRate:
		return m.WinratePct
	case MetricExpectancy:
		return m.Expectancy
	case MetricCalmarRatio:
		return m.CalmarRatio
	case MetricMaxDrawdownPct:
		return m.MaxDrawdownPct
	default:
		return m.TotalReturnPct
	}
}

// sortResults orders the full dense result table in place per §4.4
// Ranking: non-skipped rows first, sorted by metric (ascending for
// max_drawdown_pct, descending otherwise), ties broken by
// total_return_pct descending; skipped rows sort last, in the stable
// (combination-index) order they already had. Two runs with the same
// seed dispatch combos in the same order and write results by index
// (see Optimize), so this sort's input order — and therefore its
// output — is already deterministic going in; sort.SliceStable keeps it
// that way for any remaining ties.
func sortResults(results []CombinationResult, metric string) {
	ascending := metric == MetricMaxDrawdownPct
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i], results[j]
		if ri.Skipped != rj.Skipped {
			return !ri.Skipped
		}
		if ri.Skipped && rj.Skipped {
			return false
		}
		vi, vj := metricValue(ri.Metrics, metric), metricValue(rj.Metrics, metric)
		if vi == vj {
			return ri.Metrics.TotalReturnPct > rj.Metrics.TotalReturnPct
		}
		if ascending {
			return vi < vj
		}
		return vi > vj
	})
}
