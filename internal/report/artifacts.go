package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/tathienbao/quant-lab/internal/optimizer"
	"github.com/tathienbao/quant-lab/internal/types"
)

// TradeRecord is one Trades.csv row. gocsv struct tags drive the header
// and marshaling; the decimal money fields are stored as strings, filled
// from each decimal.Decimal's String method.
type TradeRecord struct {
	Side         string `csv:"side"`
	EntryTime    string `csv:"entry_time"`
	ExitTime     string `csv:"exit_time"`
	EntryPrice   string `csv:"entry_price"`
	ExitPrice    string `csv:"exit_price"`
	Size         string `csv:"size"`
	StopLoss     string `csv:"stop_loss"`
	TakeProfit   string `csv:"take_profit"`
	PnL          string `csv:"pnl"`
	PnLPct       float64 `csv:"pnl_pct"`
	DurationBars int     `csv:"duration_bars"`
	ExitReason   string  `csv:"exit_reason"`
}

// EquityRecord is one Equity.csv row.
type EquityRecord struct {
	Timestamp string `csv:"timestamp"`
	Equity    string `csv:"equity"`
}

// OptimizationRecord is one Optimization.csv row: one parameter
// combination's dense result.
type OptimizationRecord struct {
	StrategyParamsJSON string  `csv:"strategy_params"`
	BacktestParamsJSON string  `csv:"backtest_params"`
	Skipped            bool    `csv:"skipped"`
	SkipReason         string  `csv:"skip_reason"`
	TotalReturnPct     float64 `csv:"total_return_pct"`
	NumTrades          int     `csv:"num_trades"`
	WinratePct         float64 `csv:"winrate_pct"`
	ProfitFactor       float64 `csv:"profit_factor"`
	MaxDrawdownPct     float64 `csv:"max_drawdown_pct"`
	SharpeRatio        float64 `csv:"sharpe_ratio"`
}

// WriteTradesCSV writes one row per trade to path.
func WriteTradesCSV(path string, trades []types.Trade) error {
	records := make([]*TradeRecord, len(trades))
	for i, t := range trades {
		records[i] = &TradeRecord{
			Side:         t.Side.String(),
			EntryTime:    t.EntryTime.Format(timeLayout),
			ExitTime:     t.ExitTime.Format(timeLayout),
			EntryPrice:   t.EntryPrice.String(),
			ExitPrice:    t.ExitPrice.String(),
			Size:         t.Size.String(),
			StopLoss:     t.StopLoss.String(),
			TakeProfit:   t.TakeProfit.String(),
			PnL:          t.PnL.String(),
			PnLPct:       t.PnLPct,
			DurationBars: t.DurationBars,
			ExitReason:   string(t.ExitReason),
		}
	}
	return writeCSV(path, records)
}

// WriteEquityCSV writes one row per equity-curve point to path.
func WriteEquityCSV(path string, curve []types.EquityPoint) error {
	records := make([]*EquityRecord, len(curve))
	for i, p := range curve {
		records[i] = &EquityRecord{Timestamp: p.Timestamp.Format(timeLayout), Equity: p.Equity.String()}
	}
	return writeCSV(path, records)
}

// WriteOptimizationCSV writes one row per evaluated combination to path.
func WriteOptimizationCSV(path string, results []optimizer.CombinationResult) error {
	records := make([]*OptimizationRecord, len(results))
	for i, r := range results {
		stratJSON, _ := json.Marshal(r.Combination.StrategyParams)
		btJSON, _ := json.Marshal(r.Combination.BacktestParams)
		records[i] = &OptimizationRecord{
			StrategyParamsJSON: string(stratJSON),
			BacktestParamsJSON: string(btJSON),
			Skipped:            r.Skipped,
			SkipReason:         r.SkipReason,
			TotalReturnPct:     r.Metrics.TotalReturnPct,
			NumTrades:          r.Metrics.NumTrades,
			WinratePct:         r.Metrics.WinratePct,
			ProfitFactor:       r.Metrics.ProfitFactor,
			MaxDrawdownPct:     r.Metrics.MaxDrawdownPct,
			SharpeRatio:        r.Metrics.SharpeRatio,
		}
	}
	return writeCSV(path, records)
}

// WriteMetricsJSON writes a MetricsBundle as flat JSON. encoding/json is
// sufficient for a flat scalar struct; no example-corpus library offers
// anything beyond what it already does here.
func WriteMetricsJSON(path string, metrics types.MetricsBundle) error {
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func writeCSV[T any](path string, records []*T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := gocsv.MarshalFile(records, f); err != nil {
		return fmt.Errorf("marshal csv %s: %w", path, err)
	}
	return nil
}
