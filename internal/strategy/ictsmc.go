package strategy

import (
	"fmt"

	"github.com/tathienbao/quant-lab/internal/types"
)

// ICTSMCConfig configures the ICT/Smart-Money structural strategy.
type ICTSMCConfig struct {
	PivotWindow     int     // > 0, bars on each side required to confirm a swing point
	KillZoneStart   int     // [0, 23], inclusive hour-of-day window start
	KillZoneEnd     int     // [0, 23], exclusive hour-of-day window end, must be > KillZoneStart
	FVGThresholdPct float64 // > 0, minimum gap size as a fraction of price
	SetupTimeout    int     // > 0, bars before an unconfirmed/unretraced setup is abandoned
}

// DefaultICTSMCConfig returns sensible defaults.
func DefaultICTSMCConfig() ICTSMCConfig {
	return ICTSMCConfig{
		PivotWindow:     5,
		KillZoneStart:   7,
		KillZoneEnd:     10,
		FVGThresholdPct: 0.0005,
		SetupTimeout:    30,
	}
}

func ictsmcFromParams(p params) ICTSMCConfig {
	d := DefaultICTSMCConfig()
	return ICTSMCConfig{
		PivotWindow:     p.intOr("pivot_window", d.PivotWindow),
		KillZoneStart:   p.intOr("killzone_start", d.KillZoneStart),
		KillZoneEnd:     p.intOr("killzone_end", d.KillZoneEnd),
		FVGThresholdPct: p.floatOr("fvg_threshold_pct", d.FVGThresholdPct),
		SetupTimeout:    p.intOr("setup_timeout", d.SetupTimeout),
	}
}

// ICTSMC implements the ICT/Smart-Money structural strategy: a
// liquidity sweep of a recent swing, followed by a market-structure
// shift that leaves a Fair-Value-Gap, entered on retrace into the gap.
type ICTSMC struct {
	cfg ICTSMCConfig
}

// NewICTSMC constructs an ICT/Smart-Money structural strategy.
func NewICTSMC(cfg ICTSMCConfig) *ICTSMC {
	return &ICTSMC{cfg: cfg}
}

func (s *ICTSMC) Name() string { return "ict_smc" }

func (s *ICTSMC) ValidateConfig() error {
	c := s.cfg
	if c.PivotWindow <= 0 {
		return fmt.Errorf("%w: pivot_window must be positive", errInvalidConfig)
	}
	if c.KillZoneStart < 0 || c.KillZoneStart > 23 || c.KillZoneEnd < 0 || c.KillZoneEnd > 23 {
		return fmt.Errorf("%w: killzone hours must be in [0, 23]", errInvalidConfig)
	}
	if c.KillZoneEnd <= c.KillZoneStart {
		return fmt.Errorf("%w: killzone_end must be > killzone_start", errInvalidConfig)
	}
	if c.FVGThresholdPct <= 0 {
		return fmt.Errorf("%w: fvg_threshold_pct must be positive", errInvalidConfig)
	}
	if c.SetupTimeout <= 0 {
		return fmt.Errorf("%w: setup_timeout must be positive", errInvalidConfig)
	}
	return nil
}

func (s *ICTSMC) RequiredColumns() []string {
	return types.RequiredColumns
}

type swingPoint struct {
	index int
	price float64
}

// setupStage tracks where a candidate trade idea is in the ICT
// sequence: swept a level, confirmed a structure shift, now waiting for
// price to retrace into the Fair-Value-Gap the shift left behind.
type setupStage int8

const (
	stageAwaitingShift setupStage = iota
	stageAwaitingRetrace
)

type activeSetup struct {
	side       types.Side
	stage      setupStage
	startIndex int
	sweptLevel float64
	fvgLow     float64
	fvgHigh    float64
}

// GenerateSignals walks the bar table once, confirming swing points with
// a PivotWindow delay (so the confirmation never depends on bars beyond
// the current index), tracking at most one active setup at a time.
func (s *ICTSMC) GenerateSignals(bars types.BarTable) (types.BarTable, error) {
	if err := checkRequiredColumns(bars); err != nil {
		return types.BarTable{}, err
	}

	n := bars.Len()
	signal, strength := allocSignals(n)

	var swingHighs, swingLows []swingPoint
	var setup *activeSetup
	w := s.cfg.PivotWindow

	for i := 0; i < n; i++ {
		// Confirm the pivot candidate w bars back, once w bars of
		// right-side context exist.
		if c := i - w; c >= w {
			if isSwingHigh(bars.High, c, w) {
				swingHighs = append(swingHighs, swingPoint{c, bars.High[c]})
			}
			if isSwingLow(bars.Low, c, w) {
				swingLows = append(swingLows, swingPoint{c, bars.Low[c]})
			}
		}

		inKillZone := bars.Timestamps[i].Hour() >= s.cfg.KillZoneStart && bars.Timestamps[i].Hour() < s.cfg.KillZoneEnd

		if setup != nil && i-setup.startIndex > s.cfg.SetupTimeout {
			setup = nil
		}

		if setup == nil {
			if !inKillZone {
				continue
			}
			if lvl, ok := lastAtOrBefore(swingLows, i); ok && bars.Low[i] < lvl.price && bars.Close[i] > lvl.price {
				setup = &activeSetup{side: types.SideLong, stage: stageAwaitingShift, startIndex: i, sweptLevel: lvl.price}
				continue
			}
			if lvl, ok := lastAtOrBefore(swingHighs, i); ok && bars.High[i] > lvl.price && bars.Close[i] < lvl.price {
				setup = &activeSetup{side: types.SideShort, stage: stageAwaitingShift, startIndex: i, sweptLevel: lvl.price}
				continue
			}
			continue
		}

		switch setup.stage {
		case stageAwaitingShift:
			if setup.side == types.SideLong {
				if lvl, ok := lastAtOrBefore(swingHighs, setup.startIndex); ok && bars.Close[i] > lvl.price {
					if i >= 2 && bars.Low[i] > bars.High[i-2] {
						gap := (bars.Low[i] - bars.High[i-2]) / bars.Close[i]
						if gap > s.cfg.FVGThresholdPct {
							setup.stage = stageAwaitingRetrace
							setup.fvgLow = bars.High[i-2]
							setup.fvgHigh = bars.Low[i]
						}
					}
				}
			} else {
				if lvl, ok := lastAtOrBefore(swingLows, setup.startIndex); ok && bars.Close[i] < lvl.price {
					if i >= 2 && bars.High[i] < bars.Low[i-2] {
						gap := (bars.Low[i-2] - bars.High[i]) / bars.Close[i]
						if gap > s.cfg.FVGThresholdPct {
							setup.stage = stageAwaitingRetrace
							setup.fvgLow = bars.High[i]
							setup.fvgHigh = bars.Low[i-2]
						}
					}
				}
			}

		case stageAwaitingRetrace:
			if setup.side == types.SideLong {
				if bars.Close[i] < setup.fvgLow {
					setup = nil
					continue
				}
				if bars.Low[i] <= setup.fvgHigh && bars.Low[i] >= setup.fvgLow {
					signal[i] = 1
					strength[i] = 1.0
					setup = nil
				}
			} else {
				if bars.Close[i] > setup.fvgHigh {
					setup = nil
					continue
				}
				if bars.High[i] >= setup.fvgLow && bars.High[i] <= setup.fvgHigh {
					signal[i] = -1
					strength[i] = 1.0
					setup = nil
				}
			}
		}
	}

	return bars.WithSignals(signal, strength), nil
}

func isSwingHigh(high []float64, c, w int) bool {
	for k := c - w; k <= c+w; k++ {
		if k != c && high[k] >= high[c] {
			return false
		}
	}
	return true
}

func isSwingLow(low []float64, c, w int) bool {
	for k := c - w; k <= c+w; k++ {
		if k != c && low[k] <= low[c] {
			return false
		}
	}
	return true
}

// lastAtOrBefore returns the most recently confirmed swing point at or
// before upto: a swing low is the support a bullish sweep breaks
// through, a swing high the resistance a bearish sweep breaks through.
func lastAtOrBefore(points []swingPoint, upto int) (swingPoint, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].index <= upto {
			return points[i], true
		}
	}
	return swingPoint{}, false
}
