package backtest

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-lab/internal/types"
)

// computeMetrics derives a MetricsBundle from a completed trade list and
// equity curve, following the §3/§4.3 formulas exactly: profit_factor and
// sortino_ratio cap at 99.99 when their denominator is degenerate,
// sharpe/sortino use per-bar returns annualized by √252, and drawdown is a
// single pass over the equity curve tracking the running peak.
func computeMetrics(trades []types.Trade, equity []types.EquityPoint, initialCapital decimal.Decimal) types.MetricsBundle {
	maxDDPct, maxDDBars := maxDrawdown(equity)

	if len(trades) == 0 {
		return types.MetricsBundle{
			MaxDrawdownPct:          maxDDPct,
			MaxDrawdownDurationBars: maxDDBars,
		}
	}

	var winning, losing int
	grossProfit, grossLoss := decimal.Zero, decimal.Zero
	var totalDuration int
	maxConsecWins, maxConsecLosses := 0, 0
	curWins, curLosses := 0, 0

	for _, t := range trades {
		if t.PnL.IsPositive() {
			winning++
			grossProfit = grossProfit.Add(t.PnL)
			curWins++
			curLosses = 0
			if curWins > maxConsecWins {
				maxConsecWins = curWins
			}
		} else {
			losing++
			grossLoss = grossLoss.Add(t.PnL.Abs())
			curLosses++
			curWins = 0
			if curLosses > maxConsecLosses {
				maxConsecLosses = curLosses
			}
		}
		totalDuration += t.DurationBars
	}

	finalCapital := equity[len(equity)-1].Equity
	totalReturnPct := 0.0
	if initialCapital.IsPositive() {
		totalReturnPct, _ = finalCapital.Sub(initialCapital).Div(initialCapital).Mul(decimal.NewFromInt(100)).Float64()
	}

	winratePct := float64(winning) / float64(len(trades)) * 100

	profitFactor := 99.99
	if grossLoss.IsPositive() {
		profitFactor, _ = grossProfit.Div(grossLoss).Float64()
	}

	sharpe, sortino := sharpeSortino(equity)

	annualizedReturn := totalReturnPct / 100
	calmar := 99.99
	if maxDDPct > 0 {
		calmar = annualizedReturn / (maxDDPct / 100)
	}

	winRateFrac := float64(winning) / float64(len(trades))
	lossRateFrac := float64(losing) / float64(len(trades))
	avgWin := 0.0
	if winning > 0 {
		avgWin, _ = grossProfit.Div(decimal.NewFromInt(int64(winning))).Float64()
	}
	avgLoss := 0.0
	if losing > 0 {
		avgLoss, _ = grossLoss.Div(decimal.NewFromInt(int64(losing))).Float64()
	}
	expectancy := winRateFrac*avgWin - lossRateFrac*avgLoss

	recoveryFactor := 0.0
	if grossLoss.IsPositive() {
		recoveryFactor, _ = finalCapital.Sub(initialCapital).Div(grossLoss).Float64()
	}

	return types.MetricsBundle{
		TotalReturnPct:          totalReturnPct,
		NumTrades:               len(trades),
		WinningTrades:           winning,
		LosingTrades:            losing,
		WinratePct:              winratePct,
		GrossProfit:             grossProfit,
		GrossLoss:               grossLoss,
		ProfitFactor:            profitFactor,
		MaxDrawdownPct:          maxDDPct,
		MaxDrawdownDurationBars: maxDDBars,
		SharpeRatio:             sharpe,
		SortinoRatio:            sortino,
		CalmarRatio:             calmar,
		Expectancy:              expectancy,
		RecoveryFactor:          recoveryFactor,
		AvgTradeDuration:        float64(totalDuration) / float64(len(trades)),
		MaxConsecutiveWins:      maxConsecWins,
		MaxConsecutiveLosses:    maxConsecLosses,
	}
}

// maxDrawdown returns the maximum percentage drawdown and the bar count
// of the episode (peak index to trough index) in which it occurred.
func maxDrawdown(equity []types.EquityPoint) (pct float64, durationBars int) {
	if len(equity) == 0 {
		return 0, 0
	}

	peak := equity[0].Equity
	peakIdx := 0
	maxDD := 0.0
	maxDDDuration := 0

	for i, point := range equity {
		if point.Equity.GreaterThan(peak) {
			peak = point.Equity
			peakIdx = i
		}
		if peak.IsPositive() {
			dd, _ := peak.Sub(point.Equity).Div(peak).Mul(decimal.NewFromInt(100)).Float64()
			if dd > maxDD {
				maxDD = dd
				maxDDDuration = i - peakIdx
			}
		}
	}

	return maxDD, maxDDDuration
}

// sharpeSortino computes the annualized Sharpe and Sortino ratios from
// per-bar equity returns. Sharpe is 0 when fewer than two returns exist or
// the return series has zero variance; Sortino is 99.99 when no
// negative-return bar exists (an undefined-but-favorable case, not zero
// risk) and 0 under the same degenerate conditions as Sharpe otherwise.
func sharpeSortino(equity []types.EquityPoint) (sharpe, sortino float64) {
	if len(equity) < 2 {
		return 0, 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev.IsZero() {
			continue
		}
		ret, _ := equity[i].Equity.Sub(prev).Div(prev).Float64()
		returns = append(returns, ret)
	}
	if len(returns) == 0 {
		return 0, 0
	}

	mean := meanOf(returns)
	std := stddevOf(returns, mean)
	if std > 0 {
		sharpe = mean / std * math.Sqrt(252)
	}

	downside := make([]float64, 0)
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		sortino = 99.99
		return sharpe, sortino
	}
	downsideStd := stddevOf(downside, meanOf(downside))
	if downsideStd == 0 {
		sortino = 0
		return sharpe, sortino
	}
	sortino = mean / downsideStd * math.Sqrt(252)
	return sharpe, sortino
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
