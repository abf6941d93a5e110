package strategy

import (
	"fmt"
	"sort"

	"github.com/tathienbao/quant-lab/internal/types"
	"github.com/tathienbao/quant-lab/pkg/indicator"
)

// KeltnerBreakoutConfig configures the Keltner Breakout strategy.
type KeltnerBreakoutConfig struct {
	EMAPeriod      int     // > 0, Keltner middle band period
	ATRPeriod      int     // > 0
	Multiplier     float64 // > 0, band distance in ATR units
	VolLookback    int     // > 0, rolling window for the volatility-floor quantile
	VolQuantile    float64 // [0, 1], ATR must exceed this quantile of its own recent history
	UseTrendFilter bool    // gate by long-EMA trend filter
	TrendPeriod    int     // > 0, used when UseTrendFilter
}

// DefaultKeltnerBreakoutConfig returns sensible defaults.
func DefaultKeltnerBreakoutConfig() KeltnerBreakoutConfig {
	return KeltnerBreakoutConfig{
		EMAPeriod:      20,
		ATRPeriod:      10,
		Multiplier:     2.0,
		VolLookback:    50,
		VolQuantile:    0.5,
		UseTrendFilter: false,
		TrendPeriod:    100,
	}
}

func keltnerFromParams(p params) KeltnerBreakoutConfig {
	d := DefaultKeltnerBreakoutConfig()
	return KeltnerBreakoutConfig{
		EMAPeriod:      p.intOr("ema_period", d.EMAPeriod),
		ATRPeriod:      p.intOr("atr_period", d.ATRPeriod),
		Multiplier:     p.floatOr("multiplier", d.Multiplier),
		VolLookback:    p.intOr("vol_lookback", d.VolLookback),
		VolQuantile:    p.floatOr("vol_quantile", d.VolQuantile),
		UseTrendFilter: p.boolOr("use_trend_filter", d.UseTrendFilter),
		TrendPeriod:    p.intOr("trend_period", d.TrendPeriod),
	}
}

// KeltnerBreakout implements a swing-range breakout against Keltner
// bands (EMA +/- k*ATR), gated by a volatility floor (ATR above a
// rolling quantile of its own history) and an optional long-EMA trend
// filter. Adapted from the teacher's swing-high/low grid strategy,
// re-grounded on Keltner bands instead of a raw swing range.
type KeltnerBreakout struct {
	cfg KeltnerBreakoutConfig
}

// NewKeltnerBreakout constructs a Keltner Breakout strategy.
func NewKeltnerBreakout(cfg KeltnerBreakoutConfig) *KeltnerBreakout {
	return &KeltnerBreakout{cfg: cfg}
}

func (k *KeltnerBreakout) Name() string { return "keltner_breakout" }

func (k *KeltnerBreakout) ValidateConfig() error {
	c := k.cfg
	if c.EMAPeriod <= 0 || c.ATRPeriod <= 0 || c.VolLookback <= 0 {
		return fmt.Errorf("%w: periods must be positive", errInvalidConfig)
	}
	if c.Multiplier <= 0 {
		return fmt.Errorf("%w: multiplier must be positive", errInvalidConfig)
	}
	if c.VolQuantile < 0 || c.VolQuantile > 1 {
		return rangeErr("vol_quantile", c.VolQuantile, 0, 1)
	}
	if c.UseTrendFilter && c.TrendPeriod <= 0 {
		return fmt.Errorf("%w: trend_period must be positive", errInvalidConfig)
	}
	return nil
}

func (k *KeltnerBreakout) RequiredColumns() []string {
	return types.RequiredColumns
}

func (k *KeltnerBreakout) GenerateSignals(bars types.BarTable) (types.BarTable, error) {
	if err := checkRequiredColumns(bars); err != nil {
		return types.BarTable{}, err
	}

	n := bars.Len()
	kc := indicator.Keltner(bars.High, bars.Low, bars.Close, k.cfg.EMAPeriod, k.cfg.ATRPeriod, k.cfg.Multiplier)
	atr := indicator.ATRSeries(bars.High, bars.Low, bars.Close, k.cfg.ATRPeriod)

	var trendMA []float64
	if k.cfg.UseTrendFilter {
		trendMA = indicator.EMASeries(bars.Close, k.cfg.TrendPeriod)
	}

	signal, strength := allocSignals(n)

	for i := 0; i < n; i++ {
		if indicator.IsMissing(kc.Upper[i]) || indicator.IsMissing(atr[i]) {
			continue
		}

		floor, ok := atrQuantile(atr, i, k.cfg.VolLookback, k.cfg.VolQuantile)
		if !ok || atr[i] <= floor {
			continue
		}

		var dir int8
		switch {
		case bars.Close[i] > kc.Upper[i]:
			dir = 1
		case bars.Close[i] < kc.Lower[i]:
			dir = -1
		default:
			continue
		}

		if k.cfg.UseTrendFilter && !indicator.IsMissing(trendMA[i]) {
			if dir == 1 && bars.Close[i] < trendMA[i] {
				continue
			}
			if dir == -1 && bars.Close[i] > trendMA[i] {
				continue
			}
		}

		signal[i] = dir
		strength[i] = 1.0
	}

	out := bars.WithColumn("atr", atr).
		WithColumn("kc_upper", kc.Upper).
		WithColumn("kc_lower", kc.Lower)
	return out.WithSignals(signal, strength), nil
}

// atrQuantile returns the q-th quantile of atr[max(0,i-lookback):i]
// (strictly before i, so the floor never depends on the current bar's
// own value) and whether enough history exists to compute it.
func atrQuantile(atr []float64, i, lookback int, q float64) (float64, bool) {
	start := i - lookback
	if start < 0 {
		start = 0
	}
	window := atr[start:i]
	vals := make([]float64, 0, len(window))
	for _, v := range window {
		if !indicator.IsMissing(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	idx := int(q * float64(len(vals)-1))
	return vals[idx], true
}
