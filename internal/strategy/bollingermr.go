package strategy

import (
	"fmt"

	"github.com/tathienbao/quant-lab/internal/types"
	"github.com/tathienbao/quant-lab/pkg/indicator"
)

// BollingerMRConfig configures the Bollinger Mean Reversion strategy.
type BollingerMRConfig struct {
	SMAPeriod    int     // > 0, Bollinger middle band period
	StdDevPeriod int     // > 0
	EntryStdDev  float64 // > 0, band width in standard deviations
	RSIPeriod    int     // > 0
	Overbought   float64 // (50, 100)
	Oversold     float64 // (0, 50)
}

// DefaultBollingerMRConfig returns sensible defaults.
func DefaultBollingerMRConfig() BollingerMRConfig {
	return BollingerMRConfig{
		SMAPeriod:    20,
		StdDevPeriod: 20,
		EntryStdDev:  2.0,
		RSIPeriod:    14,
		Overbought:   70,
		Oversold:     30,
	}
}

func bollingerMRFromParams(p params) BollingerMRConfig {
	d := DefaultBollingerMRConfig()
	return BollingerMRConfig{
		SMAPeriod:    p.intOr("sma_period", d.SMAPeriod),
		StdDevPeriod: p.intOr("stddev_period", d.StdDevPeriod),
		EntryStdDev:  p.floatOr("entry_stddev", d.EntryStdDev),
		RSIPeriod:    p.intOr("rsi_period", d.RSIPeriod),
		Overbought:   p.floatOr("overbought", d.Overbought),
		Oversold:     p.floatOr("oversold", d.Oversold),
	}
}

// BollingerMR fires long when close is below the lower Bollinger band
// and RSI is oversold, short when close is above the upper band and RSI
// is overbought.
type BollingerMR struct {
	cfg BollingerMRConfig
}

// NewBollingerMR constructs a Bollinger Mean Reversion strategy.
func NewBollingerMR(cfg BollingerMRConfig) *BollingerMR {
	return &BollingerMR{cfg: cfg}
}

func (b *BollingerMR) Name() string { return "bollinger_mr" }

func (b *BollingerMR) ValidateConfig() error {
	c := b.cfg
	if c.SMAPeriod <= 0 || c.StdDevPeriod <= 0 || c.RSIPeriod <= 0 {
		return fmt.Errorf("%w: periods must be positive", errInvalidConfig)
	}
	if c.EntryStdDev <= 0 {
		return fmt.Errorf("%w: entry_stddev must be positive", errInvalidConfig)
	}
	if c.Overbought <= 50 || c.Overbought >= 100 {
		return rangeErr("overbought", c.Overbought, 50, 100)
	}
	if c.Oversold <= 0 || c.Oversold >= 50 {
		return rangeErr("oversold", c.Oversold, 0, 50)
	}
	return nil
}

func (b *BollingerMR) RequiredColumns() []string {
	return types.RequiredColumns
}

func (b *BollingerMR) GenerateSignals(bars types.BarTable) (types.BarTable, error) {
	if err := checkRequiredColumns(bars); err != nil {
		return types.BarTable{}, err
	}

	n := bars.Len()
	bands := indicator.Bollinger(bars.Close, b.cfg.SMAPeriod, b.cfg.EntryStdDev)
	rsi := indicator.RSISeries(bars.Close, b.cfg.RSIPeriod)

	signal, strength := allocSignals(n)

	for i := 0; i < n; i++ {
		if indicator.IsMissing(bands.Lower[i]) || indicator.IsMissing(rsi[i]) {
			continue
		}
		switch {
		case bars.Close[i] < bands.Lower[i] && rsi[i] < b.cfg.Oversold:
			signal[i] = 1
			strength[i] = 1.0
		case bars.Close[i] > bands.Upper[i] && rsi[i] > b.cfg.Overbought:
			signal[i] = -1
			strength[i] = 1.0
		}
	}

	out := bars.WithColumn("bb_middle", bands.Middle).
		WithColumn("bb_upper", bands.Upper).
		WithColumn("bb_lower", bands.Lower).
		WithColumn("rsi", rsi)
	return out.WithSignals(signal, strength), nil
}
