package alerting

import (
	"fmt"

	"github.com/tathienbao/quant-lab/internal/types"
)

// RunSummary describes one backtest or optimizer run's headline outcome,
// the fields a "new best result" or "run completed" alert carries.
// Adapted from the teacher's DailySummary (a daily live-trading P&L
// snapshot); this is the research equivalent, one MetricsBundle instead
// of one trading day.
type RunSummary struct {
	Label   string // strategy name or combination description
	Metrics types.MetricsBundle
}

// Fields renders the summary as alternating key/value pairs suitable for
// FormatFields.
func (s RunSummary) Fields() []any {
	return []any{
		"strategy", s.Label,
		"total_return_pct", fmt.Sprintf("%.2f", s.Metrics.TotalReturnPct),
		"num_trades", s.Metrics.NumTrades,
		"win_rate_pct", fmt.Sprintf("%.2f", s.Metrics.WinratePct),
		"profit_factor", fmt.Sprintf("%.2f", s.Metrics.ProfitFactor),
		"max_drawdown_pct", fmt.Sprintf("%.2f", s.Metrics.MaxDrawdownPct),
		"sharpe_ratio", fmt.Sprintf("%.2f", s.Metrics.SharpeRatio),
	}
}

// Message renders a one-line human summary of the run.
func (s RunSummary) Message() string {
	return fmt.Sprintf("%s: %.2f%% return over %d trades (win rate %.1f%%, drawdown %.1f%%)",
		s.Label, s.Metrics.TotalReturnPct, s.Metrics.NumTrades, s.Metrics.WinratePct, s.Metrics.MaxDrawdownPct)
}
