package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-lab/internal/types"
)

func eqPoint(hour int, equity string) types.EquityPoint {
	return types.EquityPoint{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(hour) * time.Hour),
		Equity:    d(equity),
	}
}

func winTrade(pnl string, duration int) types.Trade {
	return types.Trade{PnL: d(pnl), DurationBars: duration}
}

func TestComputeMetrics_NoTrades(t *testing.T) {
	equity := []types.EquityPoint{eqPoint(0, "10000"), eqPoint(1, "10000")}
	m := computeMetrics(nil, equity, d("10000"))
	if m.NumTrades != 0 || m.MaxDrawdownPct != 0 {
		t.Errorf("got %+v, want all-zero metrics on a flat curve", m)
	}
}

func TestComputeMetrics_ProfitFactorCapsAt99_99WhenNoLosses(t *testing.T) {
	trades := []types.Trade{winTrade("100", 2), winTrade("50", 3)}
	equity := []types.EquityPoint{eqPoint(0, "10000"), eqPoint(1, "10150")}
	m := computeMetrics(trades, equity, d("10000"))
	if m.ProfitFactor != 99.99 {
		t.Errorf("ProfitFactor = %v, want 99.99", m.ProfitFactor)
	}
}

func TestComputeMetrics_WinrateAndGrossFigures(t *testing.T) {
	trades := []types.Trade{winTrade("100", 2), winTrade("-40", 1), winTrade("60", 4)}
	equity := []types.EquityPoint{eqPoint(0, "10000"), eqPoint(1, "10120")}
	m := computeMetrics(trades, equity, d("10000"))

	if m.NumTrades != 3 || m.WinningTrades != 2 || m.LosingTrades != 1 {
		t.Fatalf("counts = %+v", m)
	}
	wantWinrate := 2.0 / 3.0 * 100
	if math.Abs(m.WinratePct-wantWinrate) > 1e-9 {
		t.Errorf("WinratePct = %v, want %v", m.WinratePct, wantWinrate)
	}
	if !m.GrossProfit.Equal(d("160")) {
		t.Errorf("GrossProfit = %s, want 160", m.GrossProfit)
	}
	if !m.GrossLoss.Equal(d("40")) {
		t.Errorf("GrossLoss = %s, want 40", m.GrossLoss)
	}
	wantPF := 160.0 / 40.0
	if math.Abs(m.ProfitFactor-wantPF) > 1e-9 {
		t.Errorf("ProfitFactor = %v, want %v", m.ProfitFactor, wantPF)
	}
}

func TestComputeMetrics_MaxConsecutiveStreaks(t *testing.T) {
	trades := []types.Trade{
		winTrade("10", 1), winTrade("10", 1), winTrade("10", 1), // 3 wins
		winTrade("-5", 1), winTrade("-5", 1), // 2 losses
		winTrade("1", 1), // 1 win
	}
	equity := []types.EquityPoint{eqPoint(0, "10000"), eqPoint(1, "10021")}
	m := computeMetrics(trades, equity, d("10000"))
	if m.MaxConsecutiveWins != 3 {
		t.Errorf("MaxConsecutiveWins = %d, want 3", m.MaxConsecutiveWins)
	}
	if m.MaxConsecutiveLosses != 2 {
		t.Errorf("MaxConsecutiveLosses = %d, want 2", m.MaxConsecutiveLosses)
	}
}

func TestComputeMetrics_MaxDrawdownFromEquityCurve(t *testing.T) {
	equity := []types.EquityPoint{
		eqPoint(0, "10000"),
		eqPoint(1, "11000"), // new peak
		eqPoint(2, "9900"),  // -10% from peak
		eqPoint(3, "10500"),
	}
	trades := []types.Trade{winTrade("500", 3)}
	m := computeMetrics(trades, equity, d("10000"))
	if math.Abs(m.MaxDrawdownPct-10) > 1e-9 {
		t.Errorf("MaxDrawdownPct = %v, want 10", m.MaxDrawdownPct)
	}
	if m.MaxDrawdownDurationBars != 1 {
		t.Errorf("MaxDrawdownDurationBars = %d, want 1 (peak at bar 1, trough at bar 2)", m.MaxDrawdownDurationBars)
	}
}

func TestComputeMetrics_SortinoIs99_99WithNoDownside(t *testing.T) {
	equity := []types.EquityPoint{
		eqPoint(0, "10000"),
		eqPoint(1, "10100"),
		eqPoint(2, "10200"),
		eqPoint(3, "10300"),
	}
	trades := []types.Trade{winTrade("300", 3)}
	m := computeMetrics(trades, equity, d("10000"))
	if m.SortinoRatio != 99.99 {
		t.Errorf("SortinoRatio = %v, want 99.99 with an all-positive return series", m.SortinoRatio)
	}
}

func TestComputeMetrics_SharpeZeroWithTooFewReturns(t *testing.T) {
	equity := []types.EquityPoint{eqPoint(0, "10000")}
	trades := []types.Trade{winTrade("0", 0)}
	m := computeMetrics(trades, equity, d("10000"))
	if m.SharpeRatio != 0 || m.SortinoRatio != 0 {
		t.Errorf("Sharpe/Sortino = %v/%v, want 0/0 with fewer than two equity points", m.SharpeRatio, m.SortinoRatio)
	}
}

func TestComputeMetrics_Expectancy(t *testing.T) {
	// 2 wins of 100, 1 loss of 60 -> winRate=2/3, lossRate=1/3,
	// avgWin=100, avgLoss=60 -> expectancy = 2/3*100 - 1/3*60 = 46.666...
	trades := []types.Trade{winTrade("100", 1), winTrade("100", 1), winTrade("-60", 1)}
	equity := []types.EquityPoint{eqPoint(0, "10000"), eqPoint(1, "10140")}
	m := computeMetrics(trades, equity, d("10000"))
	want := 2.0/3.0*100 - 1.0/3.0*60
	if math.Abs(m.Expectancy-want) > 1e-6 {
		t.Errorf("Expectancy = %v, want %v", m.Expectancy, want)
	}
}

func TestBacktester_MetricsEndToEnd(t *testing.T) {
	bars := buildBars([]bar{
		{100, 101, 99, 100, 1},
		{100, 101, 99, 100, 0},
		{100, 105, 99, 103, 0}, // tp at 104
	})
	bt, _ := New(pctConfig(), flatRisk())
	result, err := bt.Run(bars)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Metrics.NumTrades != 1 || result.Metrics.WinningTrades != 1 {
		t.Fatalf("Metrics = %+v", result.Metrics)
	}
	if result.Metrics.WinratePct != 100 {
		t.Errorf("WinratePct = %v, want 100", result.Metrics.WinratePct)
	}
	wantReturn, _ := decimal.NewFromFloat(200).Div(d("10000")).Mul(decimal.NewFromInt(100)).Float64()
	if math.Abs(result.Metrics.TotalReturnPct-wantReturn) > 1e-6 {
		t.Errorf("TotalReturnPct = %v, want %v", result.Metrics.TotalReturnPct, wantReturn)
	}
}
