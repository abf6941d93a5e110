package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-lab/internal/backtest"
	"github.com/tathienbao/quant-lab/internal/strategy"
	"github.com/tathienbao/quant-lab/internal/types"
)

// TrainValidationResult is the outcome of optimizing on a train slice and
// re-evaluating the winning combination on a held-out validation slice.
type TrainValidationResult struct {
	Best              CombinationResult
	ValidationMetrics types.MetricsBundle
	DegradationPct    float64
}

// TrainValidationSplit runs the grid on the leading splitRatio fraction
// of the bar table, then re-evaluates the single best combination on the
// remaining tail. degradation_pct = (train_metric - val_metric) /
// |train_metric| * 100, measured on cfg.Metric.
func TrainValidationSplit(ctx context.Context, bars types.BarTable, cfg OptimizeConfig, splitRatio float64) (TrainValidationResult, error) {
	n := bars.Len()
	trainN := int(float64(n) * splitRatio)
	if trainN <= 0 || trainN >= n {
		return TrainValidationResult{}, fmt.Errorf("%w: split_ratio %v leaves an empty train or validation slice for %d bars", types.ErrInvalidParameter, splitRatio, n)
	}

	trainBars := bars.Window(0, trainN)
	valBars := bars.Window(trainN, n)

	trainResult, err := New(trainBars).Optimize(ctx, cfg)
	if err != nil {
		return TrainValidationResult{}, err
	}
	if trainResult.Best == nil {
		return TrainValidationResult{}, fmt.Errorf("%w: no train combination met min_trades", types.ErrMinTradesNotMet)
	}

	valEval := New(valBars).evaluate(trainResult.Best.Combination, cfg)

	metric := cfg.Metric
	if metric == "" {
		metric = MetricTotalReturnPct
	}
	trainMetric := metricValue(trainResult.Best.Metrics, metric)
	valMetric := metricValue(valEval.Metrics, metric)
	degradation := 0.0
	if trainMetric != 0 {
		degradation = (trainMetric - valMetric) / math.Abs(trainMetric) * 100
	}

	return TrainValidationResult{
		Best:              *trainResult.Best,
		ValidationMetrics: valEval.Metrics,
		DegradationPct:    degradation,
	}, nil
}

// WalkForwardConfig configures a rolling or anchored walk-forward run.
type WalkForwardConfig struct {
	NSplits  int
	TrainPct float64 // fraction of each window spent training
	Anchored bool    // true: train starts at 0 and expands; false: rolling fixed-length train
}

// WindowResult is one walk-forward split's outcome.
type WindowResult struct {
	TrainStart, TrainEnd int
	ValStart, ValEnd     int
	TrainMetrics         types.MetricsBundle
	ValidationMetrics    types.MetricsBundle
	BestParams           Combination
}

// WalkForwardResult aggregates every window plus the combined validation
// equity curve.
type WalkForwardResult struct {
	Windows               []WindowResult
	MeanTrainReturnPct    float64
	MeanValReturnPct      float64
	MeanDegradationPct    float64
	ConsistencyScore      float64 // fraction of windows with positive validation return
	ParameterStability    map[string]float64 // coefficient of variation (%) per numeric strategy param
	CombinedEquityCurve   []types.EquityPoint
}

// windowBounds computes the (trainStart, trainEnd, valStart, valEnd)
// index tuples for each of n_splits windows. Rolling windows hold a fixed
// train length and slide both train and validation forward by a step
// sized so the final window's validation ends at the series tail.
// Anchored windows keep train_start pinned at 0 and expand train_end;
// validation still slides forward by the same step.
func windowBounds(n int, cfg WalkForwardConfig) [][4]int {
	if cfg.NSplits <= 0 {
		return nil
	}
	windowLen := n / cfg.NSplits
	if windowLen < 2 {
		return nil
	}
	trainLen := int(float64(windowLen) * cfg.TrainPct)
	if trainLen < 1 {
		trainLen = 1
	}
	valLen := windowLen - trainLen
	if valLen < 1 {
		valLen = 1
	}

	// The n % NSplits leftover bars are skipped at the head of the series
	// so the final window's validation slice ends at index n.
	offset := n - cfg.NSplits*windowLen

	bounds := make([][4]int, 0, cfg.NSplits)
	for split := 0; split < cfg.NSplits; split++ {
		trainStart := offset + split*windowLen
		if cfg.Anchored {
			trainStart = 0
		}
		trainEnd := offset + split*windowLen + trainLen
		valStart := trainEnd
		valEnd := valStart + valLen
		if valEnd > n {
			valEnd = n
		}
		if trainEnd <= trainStart || valEnd <= valStart {
			continue
		}
		bounds = append(bounds, [4]int{trainStart, trainEnd, valStart, valEnd})
	}
	return bounds
}

// RunWalkForward performs a nested grid search on each window's train
// slice, evaluates the winning combination on that window's validation
// slice, and aggregates across windows per §4.4: mean train/validation
// return, mean degradation, consistency_score, parameter_stability, and a
// combined validation equity curve built by concatenating each window's
// validation curve after rescaling it so its first point equals the
// previous window's last equity value — the same running-peak-style
// rebasing risk.HighWaterMarkTracker performs for live drawdown
// monitoring, applied here across window boundaries instead of across
// time within one curve.
func RunWalkForward(ctx context.Context, bars types.BarTable, cfg OptimizeConfig, wfCfg WalkForwardConfig) (WalkForwardResult, error) {
	bounds := windowBounds(bars.Len(), wfCfg)
	if len(bounds) == 0 {
		return WalkForwardResult{}, fmt.Errorf("%w: walk-forward produced zero usable windows for %d bars and %d splits", types.ErrInvalidParameter, bars.Len(), wfCfg.NSplits)
	}

	windows := make([]WindowResult, 0, len(bounds))
	paramSamples := make(map[string][]float64)

	for _, b := range bounds {
		trainStart, trainEnd, valStart, valEnd := b[0], b[1], b[2], b[3]
		trainBars := bars.Window(trainStart, trainEnd)
		valBars := bars.Window(valStart, valEnd)

		trainResult, err := New(trainBars).Optimize(ctx, cfg)
		if err != nil {
			return WalkForwardResult{}, err
		}
		if trainResult.Best == nil {
			continue
		}

		valEval := New(valBars).evaluate(trainResult.Best.Combination, cfg)

		windows = append(windows, WindowResult{
			TrainStart: trainStart, TrainEnd: trainEnd,
			ValStart: valStart, ValEnd: valEnd,
			TrainMetrics:      trainResult.Best.Metrics,
			ValidationMetrics: valEval.Metrics,
			BestParams:        trainResult.Best.Combination,
		})

		for key, v := range trainResult.Best.Combination.StrategyParams {
			if f, ok := toFloat(v); ok {
				paramSamples[key] = append(paramSamples[key], f)
			}
		}
	}

	if len(windows) == 0 {
		return WalkForwardResult{}, fmt.Errorf("%w: every walk-forward window failed to meet min_trades", types.ErrMinTradesNotMet)
	}

	metric := cfg.Metric
	if metric == "" {
		metric = MetricTotalReturnPct
	}

	var sumTrain, sumVal, sumDeg float64
	var positiveVal int
	for _, w := range windows {
		trainMetric := metricValue(w.TrainMetrics, metric)
		valMetric := metricValue(w.ValidationMetrics, metric)
		sumTrain += w.TrainMetrics.TotalReturnPct
		sumVal += w.ValidationMetrics.TotalReturnPct
		if trainMetric != 0 {
			sumDeg += (trainMetric - valMetric) / math.Abs(trainMetric) * 100
		}
		if w.ValidationMetrics.TotalReturnPct > 0 {
			positiveVal++
		}
	}
	nw := float64(len(windows))

	stability := make(map[string]float64, len(paramSamples))
	for key, values := range paramSamples {
		mean := meanOf(values)
		if mean == 0 {
			stability[key] = 0
			continue
		}
		stability[key] = stddevOf(values, mean) / math.Abs(mean) * 100
	}

	return WalkForwardResult{
		Windows:             windows,
		MeanTrainReturnPct:  sumTrain / nw,
		MeanValReturnPct:    sumVal / nw,
		MeanDegradationPct:  sumDeg / nw,
		ConsistencyScore:    float64(positiveVal) / nw,
		ParameterStability:  stability,
		CombinedEquityCurve: combineValidationCurves(bars, windows, cfg),
	}, nil
}

// combineValidationCurves re-runs each window's winning combination on
// its validation slice to recover the per-bar equity curve (Optimize
// only returns metrics bundles, not curves, to keep the dense result
// table small), then concatenates them, rescaling each window's curve so
// its first point continues from the previous window's last equity
// value.
func combineValidationCurves(bars types.BarTable, windows []WindowResult, cfg OptimizeConfig) []types.EquityPoint {
	combined := make([]types.EquityPoint, 0)
	runningCapital := cfg.BaseBacktestConfig.InitialCapital

	for _, w := range windows {
		valBars := bars.Window(w.ValStart, w.ValEnd)
		curve := evaluateCurve(valBars, w.BestParams, cfg, runningCapital)
		if len(curve) == 0 {
			continue
		}
		combined = append(combined, curve...)
		runningCapital = curve[len(curve)-1].Equity
	}
	return combined
}

// evaluateCurve runs one combination's strategy + Backtester against
// bars with InitialCapital overridden to startCapital, returning the
// resulting equity curve.
func evaluateCurve(bars types.BarTable, combo Combination, cfg OptimizeConfig, startCapital decimal.Decimal) []types.EquityPoint {
	strat, err := strategy.New(cfg.StrategyName, combo.StrategyParams)
	if err != nil {
		return nil
	}
	signalBars, err := strat.GenerateSignals(bars)
	if err != nil {
		return nil
	}
	base := cfg.BaseBacktestConfig
	base.InitialCapital = startCapital
	btCfg, riskCfg := applyBacktestParams(base, cfg.BaseRiskConfig, params(combo.BacktestParams))
	bt, err := backtest.New(btCfg, riskCfg)
	if err != nil {
		return nil
	}
	result, err := bt.Run(signalBars)
	if err != nil {
		return nil
	}
	return result.EquityCurve
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
