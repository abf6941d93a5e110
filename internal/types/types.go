// Package types defines the shared data model used across the indicator,
// strategy, backtest, and optimizer packages: the OHLCV bar table, trades,
// equity points, and the sizing/config value types that gate backtest and
// strategy construction.
package types

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of a position or signal.
type Side int8

const (
	SideShort Side = -1
	SideFlat  Side = 0
	SideLong  Side = 1
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "LONG"
	case SideShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Opposite returns the opposite side. SideFlat is its own opposite.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return SideFlat
	}
}

// ExitReason tags why a trade was closed.
type ExitReason string

const (
	ExitStopLoss       ExitReason = "sl"
	ExitTakeProfit     ExitReason = "tp"
	ExitSignalReversal ExitReason = "signal_reversal"
	ExitEndOfData      ExitReason = "end_of_data"
)

// Missing is the sentinel an indicator emits for bars whose lookback
// history is insufficient to compute a real value. Consumers must test
// with math.IsNaN before using a column value; a missing value is never
// a valid signal input.
var Missing = math.NaN()

// IsMissing reports whether v is the indicator "missing value" sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// BarTable is an ordered, struct-of-arrays OHLCV series plus whatever
// indicator and signal columns a strategy has added. Every non-nil slice
// shares Len() with Timestamps. This is the fixed-schema replacement for
// a dynamically typed table: the columns the core cares about are named
// fields or named entries of Indicators, never loosely typed cells.
type BarTable struct {
	Timestamps []time.Time
	Open       []float64
	High       []float64
	Low        []float64
	Close      []float64
	Volume     []float64

	// Signal is nil until a strategy has run. Values are -1, 0, or +1.
	Signal []int8
	// SignalStrength is optional; when present it scales position size.
	SignalStrength []float64

	// Indicators holds named derived columns (e.g. "atr", "rsi_14") added
	// by indicator calculations or strategies, each the same length as
	// Timestamps.
	Indicators map[string][]float64
}

// RequiredColumns names the base OHLCV columns every strategy needs.
var RequiredColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// Len returns the number of bars in the table.
func (b BarTable) Len() int {
	return len(b.Timestamps)
}

// Column returns a named indicator column and whether it is present.
func (b BarTable) Column(name string) ([]float64, bool) {
	if b.Indicators == nil {
		return nil, false
	}
	col, ok := b.Indicators[name]
	return col, ok
}

// WithColumn returns a shallow copy of b with the named indicator column
// set, leaving b untouched. Strategies and indicators must only ever
// derive new tables this way, never mutate the one they were given.
func (b BarTable) WithColumn(name string, values []float64) BarTable {
	out := b
	out.Indicators = make(map[string][]float64, len(b.Indicators)+1)
	for k, v := range b.Indicators {
		out.Indicators[k] = v
	}
	out.Indicators[name] = values
	return out
}

// WithSignals returns a shallow copy of b with Signal and SignalStrength
// set, leaving b untouched.
func (b BarTable) WithSignals(signal []int8, strength []float64) BarTable {
	out := b
	out.Signal = signal
	out.SignalStrength = strength
	return out
}

// Slice returns a shallow copy of b restricted to bars [0, k). The result
// shares backing arrays with b; callers must not mutate it. This is the
// tool the no-look-ahead property test uses to compare
// GenerateSignals(B)[:k] against GenerateSignals(B[:k]).
func (b BarTable) Slice(k int) BarTable {
	out := BarTable{
		Timestamps: b.Timestamps[:k],
		Open:       b.Open[:k],
		High:       b.High[:k],
		Low:        b.Low[:k],
		Close:      b.Close[:k],
		Volume:     b.Volume[:k],
	}
	if b.Signal != nil {
		out.Signal = b.Signal[:k]
	}
	if b.SignalStrength != nil {
		out.SignalStrength = b.SignalStrength[:k]
	}
	if b.Indicators != nil {
		out.Indicators = make(map[string][]float64, len(b.Indicators))
		for name, col := range b.Indicators {
			if len(col) >= k {
				out.Indicators[name] = col[:k]
			}
		}
	}
	return out
}

// Window returns a shallow copy of b restricted to bars [start, end). Like
// Slice, the result shares backing arrays with b; callers must not mutate
// it. The optimizer's train/validation split and walk-forward windowing
// use this to carve train and validation slices out of one bar table
// without copying the underlying OHLCV data.
func (b BarTable) Window(start, end int) BarTable {
	out := BarTable{
		Timestamps: b.Timestamps[start:end],
		Open:       b.Open[start:end],
		High:       b.High[start:end],
		Low:        b.Low[start:end],
		Close:      b.Close[start:end],
		Volume:     b.Volume[start:end],
	}
	if b.Signal != nil {
		out.Signal = b.Signal[start:end]
	}
	if b.SignalStrength != nil {
		out.SignalStrength = b.SignalStrength[start:end]
	}
	if b.Indicators != nil {
		out.Indicators = make(map[string][]float64, len(b.Indicators))
		for name, col := range b.Indicators {
			if len(col) >= end {
				out.Indicators[name] = col[start:end]
			}
		}
	}
	return out
}

// Validate checks the OHLCV invariants from the data model: the table is
// non-empty, columns are not ragged, timestamps are strictly
// non-decreasing with no duplicates, low <= min(open, close) <=
// max(open, close) <= high, and volume is non-negative.
func (b BarTable) Validate() error {
	n := b.Len()
	if n == 0 {
		return ErrEmptyBarTable
	}
	if len(b.Open) != n || len(b.High) != n || len(b.Low) != n ||
		len(b.Close) != n || len(b.Volume) != n {
		return ErrRaggedColumns
	}

	for i := 0; i < n; i++ {
		if i > 0 {
			if b.Timestamps[i].Before(b.Timestamps[i-1]) {
				return NewRowError(ErrNonMonotonicTimestamps, i)
			}
			if b.Timestamps[i].Equal(b.Timestamps[i-1]) {
				return NewRowError(ErrDuplicateTimestamp, i)
			}
		}
		lo, hi := b.Low[i], b.High[i]
		minBody, maxBody := b.Open[i], b.Open[i]
		if b.Close[i] < minBody {
			minBody = b.Close[i]
		}
		if b.Close[i] > maxBody {
			maxBody = b.Close[i]
		}
		if !(lo <= minBody && minBody <= maxBody && maxBody <= hi) {
			return NewRowError(ErrInvalidOHLC, i)
		}
		if b.Volume[i] < 0 {
			return NewRowError(ErrNegativeVolume, i)
		}
	}
	return nil
}

// StopTakeMode selects how a BacktestConfig derives stop-loss and
// take-profit distances. Exactly one of Pct or ATR is populated,
// replacing the source's two-parallel-optional-field design with a
// closed tagged variant so "both set" is unrepresentable.
type StopTakeMode int8

const (
	StopTakePct StopTakeMode = iota
	StopTakeATR
)

// PctStopTake is the percentage-distance stop/target variant.
type PctStopTake struct {
	SLPct float64 // stop distance as a fraction of entry, (0, 0.5)
	TPRR  float64 // take-profit distance as a multiple of the stop distance, > 0
}

// ATRStopTake is the ATR-multiple stop/target variant. Requires an "atr"
// indicator column on the bar table passed to the Backtester.
type ATRStopTake struct {
	MultSL float64 // > 0
	MultTP float64 // > 0
}

// BacktestConfig configures a single Backtester run.
type BacktestConfig struct {
	InitialCapital decimal.Decimal
	Mode           StopTakeMode
	Pct            PctStopTake
	ATR            ATRStopTake
	FeePct         float64 // >= 0, charged on notional at entry and exit independently
	SlippagePct    float64 // [0, 0.05]
	AllowShort     bool
}

// RiskConfig configures the position sizer.
type RiskConfig struct {
	RiskPct        float64 // (0, 0.1]
	MaxPositionPct float64 // (0, 1]
}

// Trade is a completed position. Money fields use decimal.Decimal for
// exact capital-conservation arithmetic (§8.5); OHLCV and derived
// indicator data use float64 throughout the rest of the core, since the
// optimizer re-runs backtests by the thousand and the extra precision
// decimal would cost there is not needed for prices. A Trade is created
// when entry is committed and becomes immutable once exit is committed.
type Trade struct {
	Side            Side
	EntryTime       time.Time
	ExitTime        time.Time
	EntryIndex      int
	ExitIndex       int
	EntryPrice      decimal.Decimal
	ExitPrice       decimal.Decimal
	Size            decimal.Decimal
	StopLoss        decimal.Decimal
	TakeProfit      decimal.Decimal
	PnL             decimal.Decimal // realized, net of fees
	PnLPct          float64         // PnL / (entry * size) * 100
	DurationBars    int
	ExitReason      ExitReason
}

// EquityPoint is one sample of the equity curve: realized capital plus
// mark-to-market unrealized PnL of any open position at that bar's close.
type EquityPoint struct {
	Timestamp time.Time
	Equity    decimal.Decimal
}

// MetricsBundle holds the scalar performance metrics computed from a set
// of trades and an equity curve. See §3 for each formula's definition.
type MetricsBundle struct {
	TotalReturnPct          float64
	NumTrades               int
	WinningTrades           int
	LosingTrades            int
	WinratePct              float64
	GrossProfit             decimal.Decimal
	GrossLoss               decimal.Decimal
	ProfitFactor            float64
	MaxDrawdownPct          float64
	MaxDrawdownDurationBars int
	SharpeRatio             float64
	SortinoRatio            float64
	CalmarRatio             float64
	Expectancy              float64
	RecoveryFactor          float64
	AvgTradeDuration        float64
	MaxConsecutiveWins      int
	MaxConsecutiveLosses    int
}

// BacktestResult is the immutable output of a single Backtester run.
type BacktestResult struct {
	Metrics     MetricsBundle
	Trades      []Trade
	EquityCurve []EquityPoint
	Parameters  map[string]any
	Symbol      string
	Timeframe   string
}
