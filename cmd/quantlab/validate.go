package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tathienbao/quant-lab/internal/report"
)

// newValidateCmd checks a config file and (optionally) a bar file
// without running anything: config.Load already runs Validate, so a
// clean load is the config check; report.LoadBars parses the bar file
// and BarTable.Validate then checks the bar schema (timestamp ordering,
// OHLC sanity, volume), the same check Backtester.Run makes before any
// bar is processed.
func newValidateCmd(flags *rootFlags) *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file and optional bar file without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger.Info().Str("strategy", cfg.Optimizer.StrategyName).Msg("config is valid")

			if dataPath != "" {
				bars, err := report.LoadBars(dataPath)
				if err != nil {
					return fmt.Errorf("bar file invalid: %w", err)
				}
				if err := bars.Validate(); err != nil {
					return fmt.Errorf("bar table invalid: %w", err)
				}
				logger.Info().Int("bars", bars.Len()).Msg("bar file is valid")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "optional bar file to validate alongside the config")
	return cmd
}
