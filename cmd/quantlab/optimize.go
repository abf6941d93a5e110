package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tathienbao/quant-lab/internal/alerting"
	"github.com/tathienbao/quant-lab/internal/metrics"
	"github.com/tathienbao/quant-lab/internal/optimizer"
	"github.com/tathienbao/quant-lab/internal/persistence"
	"github.com/tathienbao/quant-lab/internal/report"
	"github.com/tathienbao/quant-lab/internal/ui"
)

func newOptimizeCmd(flags *rootFlags) *cobra.Command {
	var dataPath, outDir string

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run a grid search across strategy/backtest parameter ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if dataPath == "" {
				return fmt.Errorf("--data is required")
			}

			timer := metrics.NewTimer("optimize")
			defer timer.ObserveDone()

			bars, err := report.LoadBars(dataPath)
			if err != nil {
				return err
			}

			btCfg, riskCfg := cfg.ToBacktestConfig()
			optCfg := cfg.ToOptimizeConfig(btCfg, riskCfg)

			progress := ui.NewOptimizerProgress(estimateCombinations(optCfg), 10)

			recorder := metrics.Recorder{}
			result, err := optimizer.New(bars).Optimize(cmd.Context(), optCfg)
			if err != nil {
				return fmt.Errorf("optimize: %w", err)
			}
			for _, r := range result.All {
				if r.Skipped {
					recorder.RecordSkipped(optCfg.StrategyName, r.SkipReason)
				} else {
					recorder.RecordEvaluated(optCfg.StrategyName)
				}
			}
			bestLabel := "none"
			bestValue := 0.0
			if result.Best != nil {
				bestLabel = optCfg.StrategyName
				bestValue = bestMetric(result, optCfg.Metric)
				recorder.RecordBest(optCfg.StrategyName, optCfg.Metric, bestValue)
			}
			progress.Update(result.Tried, result.Skipped, bestLabel, bestValue)
			progress.Done()

			logger.Info().
				Str("strategy", optCfg.StrategyName).
				Int("tried", result.Tried).
				Int("skipped", result.Skipped).
				Int("filtered_out", result.FilteredOut).
				Msg("optimize complete")

			if outDir != "" {
				if err := report.WriteOptimizationCSV(filepath.Join(outDir, "optimization.csv"), result.All); err != nil {
					return err
				}
				if result.Best != nil {
					if err := report.WriteMetricsJSON(filepath.Join(outDir, "best_metrics.json"), result.Best.Metrics); err != nil {
						return err
					}
				}
			}

			if cfg.Persistence.Enabled {
				if err := persistOptimizationRun(cmd.Context(), cfg.Persistence.Path, optCfg.StrategyName, optCfg.Metric, result); err != nil {
					logger.Warn().Err(err).Msg("failed to persist optimization run")
				}
			}

			if cfg.Alerting.Enabled && result.Best != nil {
				alerter := buildAlerter(cfg, logger)
				msg := fmt.Sprintf("optimize complete for %s: best %s=%.4f over %d tried / %d skipped", optCfg.StrategyName, optCfg.Metric, bestValue, result.Tried, result.Skipped)
				if err := alerter.Alert(cmd.Context(), alerting.SeverityInfo, msg); err != nil {
					logger.Warn().Err(err).Msg("failed to send optimize alert")
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to an OHLCV CSV bar file")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write optimization.csv/best_metrics.json")
	return cmd
}

// estimateCombinations gives the progress bar a denominator before the
// grid is actually built; buildGrid's filtering and capping aren't
// exported, so this is a best-effort bound, not an exact count.
func estimateCombinations(cfg optimizer.OptimizeConfig) int {
	if cfg.MaxCombinations > 0 {
		return cfg.MaxCombinations
	}
	total := 1
	for _, r := range cfg.StrategyRanges {
		total *= len(r)
	}
	for _, r := range cfg.BacktestRanges {
		total *= len(r)
	}
	return total
}

func bestMetric(result optimizer.Result, metric string) float64 {
	if result.Best == nil {
		return 0
	}
	switch metric {
	case optimizer.MetricProfitFactor:
		return result.Best.Metrics.ProfitFactor
	case optimizer.MetricSharpeRatio:
		return result.Best.Metrics.SharpeRatio
	case optimizer.MetricSortinoRatio:
		return result.Best.Metrics.SortinoRatio
	case optimizer.MetricWinRate:
		return result.Best.Metrics.WinratePct
	case optimizer.MetricExpectancy:
		return result.Best.Metrics.Expectancy
	case optimizer.MetricCalmarRatio:
		return result.Best.Metrics.CalmarRatio
	case optimizer.MetricMaxDrawdownPct:
		return result.Best.Metrics.MaxDrawdownPct
	default:
		return result.Best.Metrics.TotalReturnPct
	}
}

func persistOptimizationRun(ctx context.Context, dbPath, strategyName, metric string, result optimizer.Result) error {
	repo, err := persistence.NewSQLiteRepository(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	var bestParamsJSON, bestMetricsJSON string
	if result.Best != nil {
		if b, err := json.Marshal(result.Best.Combination); err == nil {
			bestParamsJSON = string(b)
		}
		if b, err := json.Marshal(result.Best.Metrics); err == nil {
			bestMetricsJSON = string(b)
		}
	}

	return repo.SaveOptimizationRun(ctx, persistence.OptimizationRunRecord{
		CreatedAt:       time.Now(),
		StrategyName:    strategyName,
		Metric:          metric,
		Tried:           result.Tried,
		Skipped:         result.Skipped,
		FilteredOut:     result.FilteredOut,
		BestParamsJSON:  bestParamsJSON,
		BestMetricsJSON: bestMetricsJSON,
	})
}
