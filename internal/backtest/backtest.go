// Package backtest replays a signal-annotated bar table through a single
// simulated account: one open position at a time, next-bar-open entries,
// pessimistic same-bar stop/target resolution, and a per-bar equity curve.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-lab/internal/risk"
	"github.com/tathienbao/quant-lab/internal/types"
)

// Backtester runs one BacktestConfig/RiskConfig pair against a bar table.
// It holds no per-run state: Run is safe to call repeatedly, and
// concurrently, on independent bar tables (the optimizer's worker pool
// does exactly that).
type Backtester struct {
	cfg   types.BacktestConfig
	risk  types.RiskConfig
	sizer *risk.PositionSizer
}

// New validates cfg and risk and constructs a Backtester, grounded on the
// teacher's construction-time-validation convention: invalid configuration
// is rejected before any bar is ever processed, not discovered mid-run.
func New(cfg types.BacktestConfig, riskCfg types.RiskConfig) (*Backtester, error) {
	if err := validateConfig(cfg, riskCfg); err != nil {
		return nil, err
	}
	return &Backtester{
		cfg:   cfg,
		risk:  riskCfg,
		sizer: risk.NewPositionSizer(decimal.NewFromFloat(riskCfg.MaxPositionPct)),
	}, nil
}

func validateConfig(cfg types.BacktestConfig, riskCfg types.RiskConfig) error {
	if cfg.InitialCapital.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: initial_capital must be positive", types.ErrInvalidConfig)
	}
	if cfg.FeePct < 0 {
		return fmt.Errorf("%w: fee_pct must be >= 0", types.ErrInvalidConfig)
	}
	if cfg.SlippagePct < 0 || cfg.SlippagePct > 0.05 {
		return fmt.Errorf("%w: slippage_pct must be in [0, 0.05]", types.ErrInvalidConfig)
	}
	switch cfg.Mode {
	case types.StopTakePct:
		if cfg.Pct.SLPct <= 0 || cfg.Pct.SLPct >= 0.5 {
			return fmt.Errorf("%w: sl_pct must be in (0, 0.5)", types.ErrInvalidConfig)
		}
		if cfg.Pct.TPRR <= 0 {
			return fmt.Errorf("%w: tp_rr must be positive", types.ErrInvalidConfig)
		}
	case types.StopTakeATR:
		if cfg.ATR.MultSL <= 0 || cfg.ATR.MultTP <= 0 {
			return fmt.Errorf("%w: atr_mult_sl and atr_mult_tp must be positive", types.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown stop/take mode", types.ErrInvalidConfig)
	}
	if riskCfg.RiskPct <= 0 || riskCfg.RiskPct > 0.1 {
		return fmt.Errorf("%w: risk_pct must be in (0, 0.1]", types.ErrInvalidConfig)
	}
	if riskCfg.MaxPositionPct <= 0 || riskCfg.MaxPositionPct > 1 {
		return fmt.Errorf("%w: max_position_pct must be in (0, 1]", types.ErrInvalidConfig)
	}
	return nil
}

// openPosition tracks the state of the single live trade.
type openPosition struct {
	side       types.Side
	entryTime  time.Time
	entryIndex int
	entryPrice decimal.Decimal
	size       decimal.Decimal
	stop       decimal.Decimal
	target     decimal.Decimal
}

// Run replays bars against cfg/risk and returns the completed trades,
// equity curve, and metrics bundle. bars must already carry a Signal
// column (the output of a Strategy.GenerateSignals call); Run itself
// never generates signals.
func (bt *Backtester) Run(bars types.BarTable) (types.BacktestResult, error) {
	if err := bt.checkColumns(bars); err != nil {
		return types.BacktestResult{}, err
	}

	n := bars.Len()
	capital := bt.cfg.InitialCapital
	var open *openPosition
	var pendingSignal int8
	var pendingStrength float64

	trades := make([]types.Trade, 0)
	equity := make([]types.EquityPoint, n)

	var atrCol []float64
	if bt.cfg.Mode == types.StopTakeATR {
		atrCol, _ = bars.Column("atr")
	}

	for i := 0; i < n; i++ {
		justExited := false

		if open != nil {
			trade, exited := bt.checkExit(open, bars, i)
			if exited {
				trades = append(trades, trade)
				capital = capital.Add(trade.PnL)
				open = nil
				justExited = true
			}
		}

		if open == nil && !justExited && pendingSignal != 0 {
			side := types.Side(pendingSignal)
			if side == types.SideShort && !bt.cfg.AllowShort {
				pendingSignal = 0
				pendingStrength = 0
			} else {
				entryPrice := bt.applyEntrySlippage(side, bars.Open[i])
				var atr float64
				if atrCol != nil {
					atr = atrCol[i]
					if types.IsMissing(atr) {
						return types.BacktestResult{}, fmt.Errorf("backtest: atr is missing at the entry bar: %w", types.NewRowError(types.ErrMissingColumn, i))
					}
				}
				stop, target := bt.stopTarget(side, entryPrice, atr)

				effectiveRisk := bt.risk.RiskPct * pendingStrength
				size := bt.sizer.Size(capital, entryPrice, stop, decimal.NewFromFloat(effectiveRisk))

				pendingSignal = 0
				pendingStrength = 0

				if size.IsPositive() {
					open = &openPosition{
						side:       side,
						entryTime:  bars.Timestamps[i],
						entryIndex: i,
						entryPrice: entryPrice,
						size:       size,
						stop:       stop,
						target:     target,
					}
				}
			}
		}

		if open == nil {
			sig := bars.Signal[i]
			if sig != 0 {
				pendingSignal = sig
				pendingStrength = signalStrengthAt(bars, i)
			}
		}

		equity[i] = types.EquityPoint{
			Timestamp: bars.Timestamps[i],
			Equity:    capital.Add(unrealizedPnL(open, bars.Close[i])),
		}
	}

	if open != nil {
		last := n - 1
		exitPrice := bt.applyExitSlippage(open.side, bars.Close[last])
		trade := bt.closeTrade(open, exitPrice, last, bars.Timestamps[last], types.ExitEndOfData)
		trades = append(trades, trade)
		capital = capital.Add(trade.PnL)
		equity[last].Equity = capital
	}

	metrics := computeMetrics(trades, equity, bt.cfg.InitialCapital)

	return types.BacktestResult{
		Metrics:     metrics,
		Trades:      trades,
		EquityCurve: equity,
	}, nil
}

func (bt *Backtester) checkColumns(bars types.BarTable) error {
	if err := bars.Validate(); err != nil {
		return err
	}
	if bars.Signal == nil {
		return fmt.Errorf("%w: signal", types.ErrMissingColumn)
	}
	if bt.cfg.Mode == types.StopTakeATR {
		if _, ok := bars.Column("atr"); !ok {
			return fmt.Errorf("%w: atr", types.ErrMissingColumn)
		}
	}
	return nil
}

func signalStrengthAt(bars types.BarTable, i int) float64 {
	if bars.SignalStrength == nil {
		return 1
	}
	return bars.SignalStrength[i]
}

func unrealizedPnL(open *openPosition, close float64) decimal.Decimal {
	if open == nil {
		return decimal.Zero
	}
	closeD := decimal.NewFromFloat(close)
	diff := closeD.Sub(open.entryPrice)
	if open.side == types.SideShort {
		diff = diff.Neg()
	}
	return diff.Mul(open.size)
}

func (bt *Backtester) stopTarget(side types.Side, entry decimal.Decimal, atr float64) (stop, target decimal.Decimal) {
	switch bt.cfg.Mode {
	case types.StopTakeATR:
		dist := decimal.NewFromFloat(atr)
		slDist := dist.Mul(decimal.NewFromFloat(bt.cfg.ATR.MultSL))
		tpDist := dist.Mul(decimal.NewFromFloat(bt.cfg.ATR.MultTP))
		if side == types.SideLong {
			return entry.Sub(slDist), entry.Add(tpDist)
		}
		return entry.Add(slDist), entry.Sub(tpDist)
	default:
		slPct := decimal.NewFromFloat(bt.cfg.Pct.SLPct)
		tpPct := slPct.Mul(decimal.NewFromFloat(bt.cfg.Pct.TPRR))
		if side == types.SideLong {
			return entry.Mul(decimal.NewFromInt(1).Sub(slPct)), entry.Mul(decimal.NewFromInt(1).Add(tpPct))
		}
		return entry.Mul(decimal.NewFromInt(1).Add(slPct)), entry.Mul(decimal.NewFromInt(1).Sub(tpPct))
	}
}

// checkExit resolves the exit branch of the per-bar algorithm: stop/target
// against [low, high], pessimistic same-bar tie-break, then signal
// reversal at close.
func (bt *Backtester) checkExit(open *openPosition, bars types.BarTable, i int) (types.Trade, bool) {
	low, high, closeP, openP := bars.Low[i], bars.High[i], bars.Close[i], bars.Open[i]

	var slHit, tpHit bool
	switch open.side {
	case types.SideLong:
		slHit = low <= inexact(open.stop)
		tpHit = high >= inexact(open.target)
	case types.SideShort:
		slHit = high >= inexact(open.stop)
		tpHit = low <= inexact(open.target)
	}

	var exitPrice decimal.Decimal
	var reason types.ExitReason
	exited := false

	switch {
	case slHit && tpHit:
		distSL := math.Abs(openP - inexact(open.stop))
		distTP := math.Abs(openP - inexact(open.target))
		if distSL <= distTP {
			exitPrice, reason = open.stop, types.ExitStopLoss
		} else {
			exitPrice, reason = open.target, types.ExitTakeProfit
		}
		exited = true
	case slHit:
		exitPrice, reason = open.stop, types.ExitStopLoss
		exited = true
	case tpHit:
		exitPrice, reason = open.target, types.ExitTakeProfit
		exited = true
	default:
		sig := bars.Signal[i]
		if sig != 0 && types.Side(sig) == open.side.Opposite() {
			exitPrice, reason = decimal.NewFromFloat(closeP), types.ExitSignalReversal
			exited = true
		}
	}

	if !exited {
		return types.Trade{}, false
	}

	exitPrice = bt.applyExitSlippage(open.side, inexact(exitPrice))
	trade := bt.closeTrade(open, exitPrice, i, bars.Timestamps[i], reason)
	return trade, true
}

func (bt *Backtester) closeTrade(open *openPosition, exitPrice decimal.Decimal, i int, ts time.Time, reason types.ExitReason) types.Trade {
	var rawPnL decimal.Decimal
	if open.side == types.SideLong {
		rawPnL = exitPrice.Sub(open.entryPrice).Mul(open.size)
	} else {
		rawPnL = open.entryPrice.Sub(exitPrice).Mul(open.size)
	}

	feePct := decimal.NewFromFloat(bt.cfg.FeePct)
	fees := open.entryPrice.Mul(open.size).Mul(feePct).Add(exitPrice.Mul(open.size).Mul(feePct))
	pnl := rawPnL.Sub(fees)

	notional := open.entryPrice.Mul(open.size)
	pnlPct := 0.0
	if notional.IsPositive() {
		pnlPct, _ = pnl.Div(notional).Mul(decimal.NewFromInt(100)).Float64()
	}

	return types.Trade{
		Side:         open.side,
		EntryTime:    open.entryTime,
		ExitTime:     ts,
		EntryIndex:   open.entryIndex,
		ExitIndex:    i,
		EntryPrice:   open.entryPrice,
		ExitPrice:    exitPrice,
		Size:         open.size,
		StopLoss:     open.stop,
		TakeProfit:   open.target,
		PnL:          pnl,
		PnLPct:       pnlPct,
		DurationBars: i - open.entryIndex,
		ExitReason:   reason,
	}
}

func (bt *Backtester) applyEntrySlippage(side types.Side, price float64) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	if bt.cfg.SlippagePct == 0 {
		return p
	}
	adj := p.Mul(decimal.NewFromFloat(bt.cfg.SlippagePct))
	if side == types.SideLong {
		return p.Add(adj) // buying costs more
	}
	return p.Sub(adj) // short-selling fills lower
}

func (bt *Backtester) applyExitSlippage(side types.Side, price float64) decimal.Decimal {
	p := decimal.NewFromFloat(price)
	if bt.cfg.SlippagePct == 0 {
		return p
	}
	adj := p.Mul(decimal.NewFromFloat(bt.cfg.SlippagePct))
	if side == types.SideLong {
		return p.Sub(adj) // selling to close a long fills lower
	}
	return p.Add(adj) // buying to cover a short fills higher
}

func inexact(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
