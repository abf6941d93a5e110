package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tathienbao/quant-lab/internal/alerting"
	"github.com/tathienbao/quant-lab/internal/metrics"
	"github.com/tathienbao/quant-lab/internal/optimizer"
	"github.com/tathienbao/quant-lab/internal/report"
)

func newWalkForwardCmd(flags *rootFlags) *cobra.Command {
	var dataPath, outDir string

	cmd := &cobra.Command{
		Use:   "walkforward",
		Short: "Run rolling or anchored walk-forward validation over a grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if dataPath == "" {
				return fmt.Errorf("--data is required")
			}

			timer := metrics.NewTimer("walkforward")
			defer timer.ObserveDone()

			bars, err := report.LoadBars(dataPath)
			if err != nil {
				return err
			}

			btCfg, riskCfg := cfg.ToBacktestConfig()
			optCfg := cfg.ToOptimizeConfig(btCfg, riskCfg)
			wfCfg := cfg.ToWalkForwardConfig()

			result, err := optimizer.RunWalkForward(cmd.Context(), bars, optCfg, wfCfg)
			if err != nil {
				return fmt.Errorf("walk-forward: %w", err)
			}

			logger.Info().
				Int("windows", len(result.Windows)).
				Float64("mean_train_return_pct", result.MeanTrainReturnPct).
				Float64("mean_val_return_pct", result.MeanValReturnPct).
				Float64("mean_degradation_pct", result.MeanDegradationPct).
				Float64("consistency_score", result.ConsistencyScore).
				Msg("walk-forward complete")

			if result.MeanDegradationPct >= highDegradationThresholdPct && cfg.Alerting.Enabled {
				alerter := buildAlerter(cfg, logger)
				msg := fmt.Sprintf("walk-forward degradation %.1f%% exceeds threshold for %s", result.MeanDegradationPct, optCfg.StrategyName)
				if err := alerter.Alert(cmd.Context(), alerting.SeverityWarning, msg); err != nil {
					logger.Warn().Err(err).Msg("failed to send degradation alert")
				}
			}

			if outDir != "" {
				if err := writeWalkForwardArtifacts(outDir, result); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "path to an OHLCV CSV bar file")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write the combined validation equity curve")
	return cmd
}

// highDegradationThresholdPct flags a walk-forward run whose mean
// train-to-validation degradation crosses this bound as worth a
// warning-severity alert (§4.4's degradation metric applied here as an
// operational threshold rather than a pass/fail gate).
const highDegradationThresholdPct = 50.0

func writeWalkForwardArtifacts(outDir string, result optimizer.WalkForwardResult) error {
	return report.WriteEquityCSV(filepath.Join(outDir, "walkforward_equity.csv"), result.CombinedEquityCurve)
}
