package strategy

import (
	"fmt"

	"github.com/tathienbao/quant-lab/internal/types"
	"github.com/tathienbao/quant-lab/pkg/indicator"
)

// SupertrendConfig configures the Supertrend strategy.
type SupertrendConfig struct {
	ATRPeriod    int     // > 0
	Multiplier   float64 // > 0, band distance in ATR units
	UseADXFilter bool    // zero signals when ADX < ADXThreshold
	ADXPeriod    int     // > 0, used when UseADXFilter
	ADXThreshold float64 // [0, 100], used when UseADXFilter
}

// DefaultSupertrendConfig returns sensible defaults.
func DefaultSupertrendConfig() SupertrendConfig {
	return SupertrendConfig{
		ATRPeriod:    10,
		Multiplier:   3.0,
		UseADXFilter: false,
		ADXPeriod:    14,
		ADXThreshold: 20,
	}
}

func supertrendFromParams(p params) SupertrendConfig {
	d := DefaultSupertrendConfig()
	return SupertrendConfig{
		ATRPeriod:    p.intOr("atr_period", d.ATRPeriod),
		Multiplier:   p.floatOr("multiplier", d.Multiplier),
		UseADXFilter: p.boolOr("use_adx_filter", d.UseADXFilter),
		ADXPeriod:    p.intOr("adx_period", d.ADXPeriod),
		ADXThreshold: p.floatOr("adx_threshold", d.ADXThreshold),
	}
}

// Supertrend implements the ATR-band continuation-logic trend follower.
type Supertrend struct {
	cfg SupertrendConfig
}

// NewSupertrend constructs a Supertrend strategy.
func NewSupertrend(cfg SupertrendConfig) *Supertrend {
	return &Supertrend{cfg: cfg}
}

func (s *Supertrend) Name() string { return "supertrend" }

func (s *Supertrend) ValidateConfig() error {
	c := s.cfg
	if c.ATRPeriod <= 0 {
		return fmt.Errorf("%w: atr_period must be positive", errInvalidConfig)
	}
	if c.Multiplier <= 0 {
		return fmt.Errorf("%w: multiplier must be positive", errInvalidConfig)
	}
	if c.UseADXFilter {
		if c.ADXPeriod <= 0 {
			return fmt.Errorf("%w: adx_period must be positive", errInvalidConfig)
		}
		if c.ADXThreshold < 0 || c.ADXThreshold > 100 {
			return rangeErr("adx_threshold", c.ADXThreshold, 0, 100)
		}
	}
	return nil
}

func (s *Supertrend) RequiredColumns() []string {
	return types.RequiredColumns
}

// GenerateSignals computes basic upper/lower bands from (H+L)/2 +/- m*ATR,
// smooths them into final bands that only move in the trend's favor
// (descend unless broken for upper, rise unless broken for lower), and
// fires a signal on every direction flip.
func (s *Supertrend) GenerateSignals(bars types.BarTable) (types.BarTable, error) {
	if err := checkRequiredColumns(bars); err != nil {
		return types.BarTable{}, err
	}

	n := bars.Len()
	atr := indicator.ATRSeries(bars.High, bars.Low, bars.Close, s.cfg.ATRPeriod)

	var adx []float64
	if s.cfg.UseADXFilter {
		adx = indicator.ADXSeries(bars.High, bars.Low, bars.Close, s.cfg.ADXPeriod)
	}

	finalUpper := make([]float64, n)
	finalLower := make([]float64, n)
	trendDir := make([]int8, n)

	signal, strength := allocSignals(n)
	initialized := false

	for i := 0; i < n; i++ {
		if indicator.IsMissing(atr[i]) {
			continue
		}
		mid := (bars.High[i] + bars.Low[i]) / 2
		basicUpper := mid + s.cfg.Multiplier*atr[i]
		basicLower := mid - s.cfg.Multiplier*atr[i]

		if !initialized {
			finalUpper[i] = basicUpper
			finalLower[i] = basicLower
			trendDir[i] = 1
			initialized = true
			continue
		}

		if bars.Close[i-1] > finalUpper[i-1] {
			finalUpper[i] = basicUpper
		} else {
			finalUpper[i] = min2(basicUpper, finalUpper[i-1])
		}
		if bars.Close[i-1] < finalLower[i-1] {
			finalLower[i] = basicLower
		} else {
			finalLower[i] = max2(basicLower, finalLower[i-1])
		}

		prevDir := trendDir[i-1]
		dir := prevDir
		if bars.Close[i] > finalUpper[i-1] {
			dir = 1
		} else if bars.Close[i] < finalLower[i-1] {
			dir = -1
		}
		trendDir[i] = dir

		if dir != prevDir {
			if s.cfg.UseADXFilter && (indicator.IsMissing(adx[i]) || adx[i] < s.cfg.ADXThreshold) {
				continue
			}
			signal[i] = dir
			strength[i] = 1.0
		}
	}

	out := bars.WithColumn("atr", atr).
		WithColumn("supertrend_upper", finalUpper).
		WithColumn("supertrend_lower", finalLower)
	return out.WithSignals(signal, strength), nil
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
