package config

import (
	"errors"
	"testing"

	"github.com/tathienbao/quant-lab/internal/types"
)

func validYAML() string {
	return `
backtest:
  initial_capital: 10000
  stop_take_mode: pct
  sl_pct: 0.02
  tp_rr: 2.0
  fee_pct: 0.001
  slippage_pct: 0.0005
  allow_short: true

risk:
  risk_pct: 0.01
  max_position_pct: 1.0

optimizer:
  strategy_name: marsi
  strategy_ranges:
    fast_period: [5, 10]
    slow_period: [20, 30]
  max_combinations: 100
  seed: 42
  min_trades: 10
  metric: total_return_pct
  n_jobs: 4

walk_forward:
  n_splits: 5
  train_pct: 0.7
  anchored: false

persistence:
  enabled: false

metrics:
  enabled: false

alerting:
  enabled: false

logging:
  level: info
`
}

func TestLoadFromBytes_Valid(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML()))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	if cfg.Backtest.InitialCapital != 10000 {
		t.Errorf("InitialCapital = %v, want 10000", cfg.Backtest.InitialCapital)
	}
	if cfg.Optimizer.StrategyName != "marsi" {
		t.Errorf("StrategyName = %q, want marsi", cfg.Optimizer.StrategyName)
	}
	if len(cfg.Optimizer.StrategyRanges["fast_period"]) != 2 {
		t.Errorf("StrategyRanges[fast_period] = %v, want 2 entries", cfg.Optimizer.StrategyRanges["fast_period"])
	}
}

func TestValidate_RejectsNonPositiveCapital(t *testing.T) {
	cfg := Config{Backtest: BacktestSection{InitialCapital: 0, StopTakeMode: "pct", SLPct: 0.02, TPRR: 2},
		Risk:      RiskSection{RiskPct: 0.01, MaxPositionPct: 1},
		Optimizer: OptimizerSection{StrategyName: "marsi"}}
	err := cfg.Validate()
	if !errors.Is(err, types.ErrInvalidConfig) {
		t.Fatalf("Validate() error = %v, want wrapping ErrInvalidConfig", err)
	}
}

func TestValidate_RejectsUnknownStopTakeMode(t *testing.T) {
	cfg := Config{Backtest: BacktestSection{InitialCapital: 1000, StopTakeMode: "bogus"},
		Risk:      RiskSection{RiskPct: 0.01, MaxPositionPct: 1},
		Optimizer: OptimizerSection{StrategyName: "marsi"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an unknown stop_take_mode")
	}
}

func TestValidate_RequiresTelegramCredentialsWhenEnabled(t *testing.T) {
	cfg := Config{
		Backtest:  BacktestSection{InitialCapital: 1000, StopTakeMode: "pct", SLPct: 0.02, TPRR: 2},
		Risk:      RiskSection{RiskPct: 0.01, MaxPositionPct: 1},
		Optimizer: OptimizerSection{StrategyName: "marsi"},
		Alerting:  AlertingSection{Enabled: true, Channel: "telegram"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when telegram is selected without bot_token/chat_id")
	}
}

func TestToBacktestConfig_PctMode(t *testing.T) {
	cfg := Config{
		Backtest: BacktestSection{InitialCapital: 5000, StopTakeMode: "pct", SLPct: 0.03, TPRR: 1.5, AllowShort: true},
		Risk:     RiskSection{RiskPct: 0.02, MaxPositionPct: 0.8},
	}
	bt, riskCfg := cfg.ToBacktestConfig()
	if bt.Mode != types.StopTakePct {
		t.Errorf("Mode = %v, want StopTakePct", bt.Mode)
	}
	if bt.Pct.SLPct != 0.03 || bt.Pct.TPRR != 1.5 {
		t.Errorf("Pct = %+v, want {0.03 1.5}", bt.Pct)
	}
	if !bt.AllowShort {
		t.Error("expected AllowShort to carry through")
	}
	if riskCfg.RiskPct != 0.02 || riskCfg.MaxPositionPct != 0.8 {
		t.Errorf("riskCfg = %+v, want {0.02 0.8}", riskCfg)
	}
}

func TestToBacktestConfig_ATRMode(t *testing.T) {
	cfg := Config{
		Backtest: BacktestSection{InitialCapital: 5000, StopTakeMode: "atr", ATRMultSL: 2, ATRMultTP: 3},
		Risk:     RiskSection{RiskPct: 0.01, MaxPositionPct: 1},
	}
	bt, _ := cfg.ToBacktestConfig()
	if bt.Mode != types.StopTakeATR {
		t.Errorf("Mode = %v, want StopTakeATR", bt.Mode)
	}
	if bt.ATR.MultSL != 2 || bt.ATR.MultTP != 3 {
		t.Errorf("ATR = %+v, want {2 3}", bt.ATR)
	}
}

func TestToOptimizeConfig_CarriesGridAndMetric(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML()))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	bt, riskCfg := cfg.ToBacktestConfig()
	optCfg := cfg.ToOptimizeConfig(bt, riskCfg)
	if optCfg.StrategyName != "marsi" || optCfg.Metric != "total_return_pct" || optCfg.NJobs != 4 {
		t.Errorf("optCfg = %+v, want strategy=marsi metric=total_return_pct n_jobs=4", optCfg)
	}
}

func TestToWalkForwardConfig_CarriesSplitSettings(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML()))
	if err != nil {
		t.Fatalf("LoadFromBytes() error = %v", err)
	}
	wfCfg := cfg.ToWalkForwardConfig()
	if wfCfg.NSplits != 5 || wfCfg.TrainPct != 0.7 || wfCfg.Anchored {
		t.Errorf("wfCfg = %+v, want {5 0.7 false}", wfCfg)
	}
}
