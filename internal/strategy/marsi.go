package strategy

import (
	"fmt"

	"github.com/tathienbao/quant-lab/internal/types"
	"github.com/tathienbao/quant-lab/pkg/indicator"
)

// MARSIConfig configures the MA+RSI crossover strategy.
type MARSIConfig struct {
	FastPeriod    int     // > 0, must be < SlowPeriod
	SlowPeriod    int     // > 0
	RSIPeriod     int     // > 0
	SignalMode    string  // "cross" | "trend"
	UseRSIFilter  bool    // suppress longs when RSI > Overbought, shorts when RSI < Oversold
	Overbought    float64 // (50, 100)
	Oversold      float64 // (0, 50)
	UseTrendMA    bool    // gate by long-MA trend filter
	TrendPeriod   int     // > 0, used when UseTrendMA
}

// DefaultMARSIConfig returns sensible defaults.
func DefaultMARSIConfig() MARSIConfig {
	return MARSIConfig{
		FastPeriod:   12,
		SlowPeriod:   26,
		RSIPeriod:    14,
		SignalMode:   "cross",
		UseRSIFilter: true,
		Overbought:   70,
		Oversold:     30,
		UseTrendMA:   false,
		TrendPeriod:  200,
	}
}

func marsiFromParams(p params) MARSIConfig {
	d := DefaultMARSIConfig()
	return MARSIConfig{
		FastPeriod:   p.intOr("fast_period", d.FastPeriod),
		SlowPeriod:   p.intOr("slow_period", d.SlowPeriod),
		RSIPeriod:    p.intOr("rsi_period", d.RSIPeriod),
		SignalMode:   p.stringOr("signal_mode", d.SignalMode),
		UseRSIFilter: p.boolOr("use_rsi_filter", d.UseRSIFilter),
		Overbought:   p.floatOr("overbought", d.Overbought),
		Oversold:     p.floatOr("oversold", d.Oversold),
		UseTrendMA:   p.boolOr("use_trend_ma", d.UseTrendMA),
		TrendPeriod:  p.intOr("trend_period", d.TrendPeriod),
	}
}

// MARSI implements the fast/slow EMA crossover strategy with an optional
// RSI filter and long-MA trend filter.
type MARSI struct {
	cfg MARSIConfig
}

// NewMARSI constructs an MA+RSI crossover strategy.
func NewMARSI(cfg MARSIConfig) *MARSI {
	return &MARSI{cfg: cfg}
}

func (m *MARSI) Name() string { return "marsi" }

func (m *MARSI) ValidateConfig() error {
	c := m.cfg
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 || c.RSIPeriod <= 0 {
		return fmt.Errorf("%w: periods must be positive", errInvalidConfig)
	}
	if c.FastPeriod >= c.SlowPeriod {
		return fmt.Errorf("%w: fast_period (%d) must be < slow_period (%d)", errInvalidConfig, c.FastPeriod, c.SlowPeriod)
	}
	if c.SignalMode != "cross" && c.SignalMode != "trend" {
		return fmt.Errorf("%w: signal_mode must be \"cross\" or \"trend\"", errInvalidConfig)
	}
	if c.Overbought <= 50 || c.Overbought >= 100 {
		return rangeErr("overbought", c.Overbought, 50, 100)
	}
	if c.Oversold <= 0 || c.Oversold >= 50 {
		return rangeErr("oversold", c.Oversold, 0, 50)
	}
	if c.UseTrendMA && c.TrendPeriod <= 0 {
		return fmt.Errorf("%w: trend_period must be positive", errInvalidConfig)
	}
	return nil
}

func (m *MARSI) RequiredColumns() []string {
	return types.RequiredColumns
}

// GenerateSignals fires +1 on fast-EMA crossing above slow-EMA (or, in
// "trend" mode, for every bar where fast stays above slow), -1 on the
// symmetric cross/stay below, gated by the RSI and trend filters.
func (m *MARSI) GenerateSignals(bars types.BarTable) (types.BarTable, error) {
	if err := checkRequiredColumns(bars); err != nil {
		return types.BarTable{}, err
	}

	n := bars.Len()
	fast := indicator.EMASeries(bars.Close, m.cfg.FastPeriod)
	slow := indicator.EMASeries(bars.Close, m.cfg.SlowPeriod)
	rsi := indicator.RSISeries(bars.Close, m.cfg.RSIPeriod)

	var trendMA []float64
	if m.cfg.UseTrendMA {
		trendMA = indicator.EMASeries(bars.Close, m.cfg.TrendPeriod)
	}

	signal, strength := allocSignals(n)
	prevAbove := false
	havePrev := false

	for i := 0; i < n; i++ {
		if indicator.IsMissing(fast[i]) || indicator.IsMissing(slow[i]) {
			havePrev = false
			continue
		}
		above := fast[i] > slow[i]

		var dir int8
		switch m.cfg.SignalMode {
		case "trend":
			if above {
				dir = 1
			} else {
				dir = -1
			}
		default: // "cross"
			if havePrev && above != prevAbove {
				if above {
					dir = 1
				} else {
					dir = -1
				}
			}
		}
		havePrev = true
		prevAbove = above

		if dir == 0 {
			continue
		}

		if m.cfg.UseRSIFilter && !indicator.IsMissing(rsi[i]) {
			if dir == 1 && rsi[i] > m.cfg.Overbought {
				continue
			}
			if dir == -1 && rsi[i] < m.cfg.Oversold {
				continue
			}
		}

		if m.cfg.UseTrendMA && !indicator.IsMissing(trendMA[i]) {
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

	out := bars.WithColumn("ema_fast", fast).WithColumn("ema_slow", slow).WithColumn("rsi", rsi)
	return out.WithSignals(signal, strength), nil
}
