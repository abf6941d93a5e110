package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tathienbao/quant-lab/internal/alerting"
	"github.com/tathienbao/quant-lab/internal/backtest"
	"github.com/tathienbao/quant-lab/internal/metrics"
	"github.com/tathienbao/quant-lab/internal/persistence"
	"github.com/tathienbao/quant-lab/internal/report"
	"github.com/tathienbao/quant-lab/internal/strategy"
	"github.com/tathienbao/quant-lab/internal/types"
)

func newBacktestCmd(flags *rootFlags) *cobra.Command {
	var dataPath, strategyName, outDir string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a single Backtester pass over one bar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if strategyName == "" && interactive {
				strategyName, err = selectStrategy()
				if err != nil {
					return err
				}
			}
			if strategyName == "" {
				strategyName = cfg.Optimizer.StrategyName
			}
			if dataPath == "" && interactive {
				dataPath, err = selectDataFile("data")
				if err != nil {
					return err
				}
			}
			if dataPath == "" {
				return fmt.Errorf("--data is required (or pass --interactive)")
			}

			timer := metrics.NewTimer("backtest")
			defer timer.ObserveDone()

			bars, err := report.LoadBars(dataPath)
			if err != nil {
				return err
			}

			strat, err := strategy.New(strategyName, nil)
			if err != nil {
				return fmt.Errorf("construct strategy: %w", err)
			}
			signalBars, err := strat.GenerateSignals(bars)
			if err != nil {
				return fmt.Errorf("generate signals: %w", err)
			}

			btCfg, riskCfg := cfg.ToBacktestConfig()
			bt, err := backtest.New(btCfg, riskCfg)
			if err != nil {
				return fmt.Errorf("construct backtester: %w", err)
			}

			result, err := bt.Run(signalBars)
			if err != nil {
				return fmt.Errorf("run backtest: %w", err)
			}

			logger.Info().
				Str("strategy", strategyName).
				Float64("total_return_pct", result.Metrics.TotalReturnPct).
				Int("num_trades", result.Metrics.NumTrades).
				Float64("max_drawdown_pct", result.Metrics.MaxDrawdownPct).
				Msg("backtest complete")

			if outDir != "" {
				if err := writeBacktestArtifacts(outDir, result); err != nil {
					return err
				}
			}

			if cfg.Persistence.Enabled {
				if err := persistBacktestRun(cmd.Context(), cfg.Persistence.Path, strategyName, result); err != nil {
					logger.Warn().Err(err).Msg("failed to persist backtest run")
				}
			}

			if cfg.Alerting.Enabled {
				alerter := buildAlerter(cfg, logger)
				summary := alerting.RunSummary{Label: strategyName, Metrics: result.Metrics}
				if err := alerter.Alert(cmd.Context(), alerting.SeverityInfo, summary.Message(), summary.Fields()...); err != nil {
					logger.Warn().Err(err).Msg("failed to send backtest alert")
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to an OHLCV CSV bar file")
	cmd.Flags().StringVar(&strategyName, "strategy", "", "registered strategy name (defaults to optimizer.strategy_name)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write Trades/Equity/Metrics artifacts")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "prompt for strategy/data file selection")
	return cmd
}

func writeBacktestArtifacts(outDir string, result types.BacktestResult) error {
	if err := report.WriteTradesCSV(filepath.Join(outDir, "trades.csv"), result.Trades); err != nil {
		return err
	}
	if err := report.WriteEquityCSV(filepath.Join(outDir, "equity.csv"), result.EquityCurve); err != nil {
		return err
	}
	return report.WriteMetricsJSON(filepath.Join(outDir, "metrics.json"), result.Metrics)
}

func persistBacktestRun(ctx context.Context, dbPath, strategyName string, result types.BacktestResult) error {
	repo, err := persistence.NewSQLiteRepository(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	paramsJSON := fmt.Sprintf(`{"run_id":%q}`, uuid.NewString())
	return repo.SaveBacktestRun(ctx, persistence.BacktestRunRecord{
		CreatedAt:      time.Now(),
		StrategyName:   strategyName,
		ParamsJSON:     paramsJSON,
		TotalReturnPct: result.Metrics.TotalReturnPct,
		NumTrades:      result.Metrics.NumTrades,
		WinratePct:     result.Metrics.WinratePct,
		ProfitFactor:   result.Metrics.ProfitFactor,
		MaxDrawdownPct: result.Metrics.MaxDrawdownPct,
		SharpeRatio:    result.Metrics.SharpeRatio,
	})
}
