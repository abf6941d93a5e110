// Package config loads and validates the YAML configuration a CLI
// invocation of cmd/quantlab binds to the backtest/optimizer/walk-forward
// components. Kept directly from the teacher's internal/config: YAML with
// env-var expansion, a single Validate pass collecting every error before
// returning, and Config->domain-type conversion methods.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-lab/internal/optimizer"
	"github.com/tathienbao/quant-lab/internal/types"
	"gopkg.in/yaml.v3"
)

// Config represents the full CLI-driven configuration.
type Config struct {
	Backtest    BacktestSection    `yaml:"backtest"`
	Risk        RiskSection        `yaml:"risk"`
	Optimizer   OptimizerSection   `yaml:"optimizer"`
	WalkForward WalkForwardSection `yaml:"walk_forward"`
	Persistence PersistenceSection `yaml:"persistence"`
	Metrics     MetricsSection     `yaml:"metrics"`
	Alerting    AlertingSection    `yaml:"alerting"`
	Logging     LoggingSection     `yaml:"logging"`
}

// BacktestSection configures a single Backtester run.
type BacktestSection struct {
	InitialCapital float64 `yaml:"initial_capital"`
	StopTakeMode   string  `yaml:"stop_take_mode"` // "pct" | "atr"
	SLPct          float64 `yaml:"sl_pct"`
	TPRR           float64 `yaml:"tp_rr"`
	ATRMultSL      float64 `yaml:"atr_mult_sl"`
	ATRMultTP      float64 `yaml:"atr_mult_tp"`
	FeePct         float64 `yaml:"fee_pct"`
	SlippagePct    float64 `yaml:"slippage_pct"`
	AllowShort     bool    `yaml:"allow_short"`
}

// RiskSection configures the position sizer.
type RiskSection struct {
	RiskPct        float64 `yaml:"risk_pct"`
	MaxPositionPct float64 `yaml:"max_position_pct"`
}

// OptimizerSection configures a grid search / parallel evaluation run.
type OptimizerSection struct {
	StrategyName    string           `yaml:"strategy_name"`
	StrategyRanges  map[string][]any `yaml:"strategy_ranges"`
	BacktestRanges  map[string][]any `yaml:"backtest_ranges"`
	MaxCombinations int              `yaml:"max_combinations"`
	Seed            uint64           `yaml:"seed"`
	MinTrades       int              `yaml:"min_trades"`
	Metric          string           `yaml:"metric"`
	NJobs           int              `yaml:"n_jobs"`
}

// WalkForwardSection configures a rolling or anchored walk-forward run.
type WalkForwardSection struct {
	NSplits  int     `yaml:"n_splits"`
	TrainPct float64 `yaml:"train_pct"`
	Anchored bool    `yaml:"anchored"`
}

// PersistenceSection configures the SQLite run-history sink.
type PersistenceSection struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsSection configures the Prometheus scrape endpoint.
type MetricsSection struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// AlertingSection configures run-outcome notifications.
type AlertingSection struct {
	Enabled  bool   `yaml:"enabled"`
	Channel  string `yaml:"channel"` // "console" | "telegram"
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// LoggingSection holds the YAML logging settings. cmd/quantlab does not
// read it: its zerolog logger takes level and file from --log-level /
// --log-file or QUANTLAB_LOG_LEVEL / QUANTLAB_LOG_FILE.
type LoggingSection struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads and validates a YAML config file, expanding ${VAR}/$VAR
// environment references before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates YAML config bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section and joins all violations into one error,
// rather than failing on the first (grounded on the teacher's
// Config.Validate, which collects into a []string and joins with "; ").
func (c *Config) Validate() error {
	var errs []string

	if c.Backtest.InitialCapital <= 0 {
		errs = append(errs, "backtest.initial_capital must be positive")
	}
	switch c.Backtest.StopTakeMode {
	case "pct":
		if c.Backtest.SLPct <= 0 || c.Backtest.SLPct >= 0.5 {
			errs = append(errs, "backtest.sl_pct must be in (0, 0.5)")
		}
		if c.Backtest.TPRR <= 0 {
			errs = append(errs, "backtest.tp_rr must be positive")
		}
	case "atr":
		if c.Backtest.ATRMultSL <= 0 {
			errs = append(errs, "backtest.atr_mult_sl must be positive")
		}
		if c.Backtest.ATRMultTP <= 0 {
			errs = append(errs, "backtest.atr_mult_tp must be positive")
		}
	default:
		errs = append(errs, "backtest.stop_take_mode must be 'pct' or 'atr'")
	}
	if c.Backtest.FeePct < 0 {
		errs = append(errs, "backtest.fee_pct must be non-negative")
	}
	if c.Backtest.SlippagePct < 0 || c.Backtest.SlippagePct > 0.05 {
		errs = append(errs, "backtest.slippage_pct must be in [0, 0.05]")
	}

	if c.Risk.RiskPct <= 0 || c.Risk.RiskPct > 0.1 {
		errs = append(errs, "risk.risk_pct must be in (0, 0.1]")
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		errs = append(errs, "risk.max_position_pct must be in (0, 1]")
	}

	if c.Optimizer.StrategyName == "" {
		errs = append(errs, "optimizer.strategy_name is required")
	}

	if c.Persistence.Enabled && c.Persistence.Path == "" {
		errs = append(errs, "persistence.path is required when persistence.enabled is true")
	}
	if c.Alerting.Enabled && c.Alerting.Channel == "telegram" {
		if c.Alerting.BotToken == "" || c.Alerting.ChatID == "" {
			errs = append(errs, "alerting.bot_token and alerting.chat_id are required for the telegram channel")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// ToBacktestConfig converts the YAML sections into the domain
// types.BacktestConfig/RiskConfig pair the Backtester constructor expects.
func (c *Config) ToBacktestConfig() (types.BacktestConfig, types.RiskConfig) {
	bt := types.BacktestConfig{
		InitialCapital: decimal.NewFromFloat(c.Backtest.InitialCapital),
		FeePct:         c.Backtest.FeePct,
		SlippagePct:    c.Backtest.SlippagePct,
		AllowShort:     c.Backtest.AllowShort,
	}
	switch c.Backtest.StopTakeMode {
	case "atr":
		bt.Mode = types.StopTakeATR
		bt.ATR = types.ATRStopTake{MultSL: c.Backtest.ATRMultSL, MultTP: c.Backtest.ATRMultTP}
	default:
		bt.Mode = types.StopTakePct
		bt.Pct = types.PctStopTake{SLPct: c.Backtest.SLPct, TPRR: c.Backtest.TPRR}
	}

	risk := types.RiskConfig{RiskPct: c.Risk.RiskPct, MaxPositionPct: c.Risk.MaxPositionPct}
	return bt, risk
}

// ToOptimizeConfig builds an optimizer.OptimizeConfig from the YAML
// optimizer section plus the already-converted base backtest/risk config.
func (c *Config) ToOptimizeConfig(base types.BacktestConfig, baseRisk types.RiskConfig) optimizer.OptimizeConfig {
	return optimizer.OptimizeConfig{
		StrategyName:       c.Optimizer.StrategyName,
		StrategyRanges:     optimizer.ParamRanges(c.Optimizer.StrategyRanges),
		BacktestRanges:     optimizer.ParamRanges(c.Optimizer.BacktestRanges),
		BaseBacktestConfig: base,
		BaseRiskConfig:     baseRisk,
		MaxCombinations:    c.Optimizer.MaxCombinations,
		Seed:               c.Optimizer.Seed,
		MinTrades:          c.Optimizer.MinTrades,
		Metric:             c.Optimizer.Metric,
		NJobs:              c.Optimizer.NJobs,
	}
}

// ToWalkForwardConfig builds an optimizer.WalkForwardConfig from the YAML
// walk_forward section.
func (c *Config) ToWalkForwardConfig() optimizer.WalkForwardConfig {
	return optimizer.WalkForwardConfig{
		NSplits:  c.WalkForward.NSplits,
		TrainPct: c.WalkForward.TrainPct,
		Anchored: c.WalkForward.Anchored,
	}
}
