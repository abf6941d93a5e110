// Package risk implements the position sizer and a high-water-mark
// (running peak / drawdown) tracker.
package risk

import (
	"github.com/shopspring/decimal"
)

// PositionSizer implements the §4.5 position-sizing formula. Adapted
// from the teacher's tick/contract-based PositionSizer.Calculate
// (floor(capital_at_risk / tick_risk)) to continuous base-unit sizing:
// no futures tick table, no contract rounding, a size-by-exposure cap
// in addition to the size-by-risk figure.
type PositionSizer struct {
	maxPositionPct decimal.Decimal
}

// NewPositionSizer constructs a PositionSizer capped at maxPositionPct
// of capital notional per position.
func NewPositionSizer(maxPositionPct decimal.Decimal) *PositionSizer {
	return &PositionSizer{maxPositionPct: maxPositionPct}
}

// Size computes the position size for entering at entry with a stop at
// stop, given capital and riskPct:
//
//  1. risk_amount = capital * risk_pct
//  2. risk_per_unit = |entry - stop|; if zero, return 0
//  3. size_by_risk = risk_amount / risk_per_unit
//  4. size_by_cap = (capital * max_position_pct) / entry
//  5. return min(size_by_risk, size_by_cap), clamped at 0
//
// This bounds realized loss at the stop to approximately risk_pct of
// capital, and bounds notional exposure to max_position_pct of capital.
func (p *PositionSizer) Size(capital, entry, stop, riskPct decimal.Decimal) decimal.Decimal {
	if capital.LessThanOrEqual(decimal.Zero) || entry.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	riskPerUnit := entry.Sub(stop).Abs()
	if riskPerUnit.IsZero() {
		return decimal.Zero
	}

	riskAmount := capital.Mul(riskPct)
	sizeByRisk := riskAmount.Div(riskPerUnit)
	sizeByCap := capital.Mul(p.maxPositionPct).Div(entry)

	size := sizeByRisk
	if sizeByCap.LessThan(size) {
		size = sizeByCap
	}
	if size.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return size
}
