package optimizer

import "github.com/tathienbao/quant-lab/internal/types"

// params reads a loosely typed combination map the same way
// strategy.params does; it is a second, unexported copy rather than a
// shared import because strategy.params is itself unexported — the
// optimizer only ever touches backtest/risk numeric fields, which do not
// warrant exporting the strategy package's internal parameter type.
type params map[string]any

func (p params) floatOr(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func (p params) boolOr(key string, def bool) bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// applyBacktestParams overlays a combination's backtest-parameter map
// onto a base BacktestConfig/RiskConfig pair, leaving any field the
// combination does not mention at its base value. This lets a grid sweep
// a subset of backtest knobs (e.g. just sl_pct and tp_rr) while the rest
// of the config stays fixed for the whole run.
func applyBacktestParams(base types.BacktestConfig, baseRisk types.RiskConfig, p params) (types.BacktestConfig, types.RiskConfig) {
	cfg := base
	risk := baseRisk

	cfg.Pct.SLPct = p.floatOr("sl_pct", cfg.Pct.SLPct)
	cfg.Pct.TPRR = p.floatOr("tp_rr", cfg.Pct.TPRR)
	cfg.ATR.MultSL = p.floatOr("atr_mult_sl", cfg.ATR.MultSL)
	cfg.ATR.MultTP = p.floatOr("atr_mult_tp", cfg.ATR.MultTP)
	cfg.FeePct = p.floatOr("fee_pct", cfg.FeePct)
	cfg.SlippagePct = p.floatOr("slippage_pct", cfg.SlippagePct)
	cfg.AllowShort = p.boolOr("allow_short", cfg.AllowShort)

	risk.RiskPct = p.floatOr("risk_pct", risk.RiskPct)
	risk.MaxPositionPct = p.floatOr("max_position_pct", risk.MaxPositionPct)

	return cfg, risk
}
