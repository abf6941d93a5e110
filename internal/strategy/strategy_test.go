package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/tathienbao/quant-lab/internal/types"
)

func syntheticBars(n int, priceAt func(i int) float64) types.BarTable {
	ts := make([]time.Time, n)
	o := make([]float64, n)
	h := make([]float64, n)
	l := make([]float64, n)
	c := make([]float64, n)
	v := make([]float64, n)
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		price := priceAt(i)
		o[i] = price
		c[i] = price
		h[i] = price + 0.5
		l[i] = price - 0.5
		v[i] = 100
	}
	return types.BarTable{Timestamps: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func trendingBars(n int) types.BarTable {
	return syntheticBars(n, func(i int) float64 { return 100 + float64(i)*0.75 })
}

func oscillatingBars(n int) types.BarTable {
	return syntheticBars(n, func(i int) float64 {
		return 100 + 5*math.Sin(float64(i)/3.0)
	})
}

func TestRegistry_New(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, nil)
			if err != nil {
				t.Fatalf("New(%q, nil) error = %v", name, err)
			}
			if s.Name() == "" {
				t.Error("strategy Name() is empty")
			}
		})
	}
}

func TestRegistry_UnknownStrategy(t *testing.T) {
	_, err := New("nonexistent", nil)
	if err == nil {
		t.Fatal("expected error for unknown strategy name")
	}
}

func TestRegistry_DefaultsFillUnspecifiedParams(t *testing.T) {
	s, err := New("marsi", map[string]any{"fast_period": 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m := s.(*MARSI)
	if m.cfg.FastPeriod != 5 {
		t.Errorf("FastPeriod = %d, want 5", m.cfg.FastPeriod)
	}
	if m.cfg.SlowPeriod != DefaultMARSIConfig().SlowPeriod {
		t.Errorf("SlowPeriod = %d, want default %d", m.cfg.SlowPeriod, DefaultMARSIConfig().SlowPeriod)
	}
}

// TestNoLookAhead verifies property 1 from the testable-properties list:
// signals computed over a prefix of the bar table must match the
// signals computed by running the strategy on that prefix alone.
func TestNoLookAhead(t *testing.T) {
	makers := map[string]func() Strategy{
		"marsi":            func() Strategy { return NewMARSI(DefaultMARSIConfig()) },
		"supertrend":       func() Strategy { return NewSupertrend(DefaultSupertrendConfig()) },
		"bollinger_mr":     func() Strategy { return NewBollingerMR(DefaultBollingerMRConfig()) },
		"keltner_breakout": func() Strategy { return NewKeltnerBreakout(DefaultKeltnerBreakoutConfig()) },
		"ict_smc":          func() Strategy { return NewICTSMC(DefaultICTSMCConfig()) },
	}

	full := oscillatingBars(120)
	k := 80

	for name, make := range makers {
		t.Run(name, func(t *testing.T) {
			s := make()

			fullResult, err := s.GenerateSignals(full)
			if err != nil {
				t.Fatalf("GenerateSignals(full) error = %v", err)
			}

			prefixResult, err := make().GenerateSignals(full.Slice(k))
			if err != nil {
				t.Fatalf("GenerateSignals(prefix) error = %v", err)
			}

			for i := 0; i < k; i++ {
				if fullResult.Signal[i] != prefixResult.Signal[i] {
					t.Errorf("%s: signal diverges at bar %d: full=%d prefix=%d",
						name, i, fullResult.Signal[i], prefixResult.Signal[i])
				}
			}
		})
	}
}

func TestMARSI_CrossFiresOnDirectionChange(t *testing.T) {
	cfg := DefaultMARSIConfig()
	cfg.FastPeriod = 2
	cfg.SlowPeriod = 4
	cfg.UseRSIFilter = false
	m := NewMARSI(cfg)

	// Down for 30 bars, then up: the fast EMA crosses above the slow one
	// after the turn.
	bars := syntheticBars(60, func(i int) float64 { return 100 + 0.75*math.Abs(float64(i-30)) })
	result, err := m.GenerateSignals(bars)
	if err != nil {
		t.Fatalf("GenerateSignals() error = %v", err)
	}

	found := false
	for _, sig := range result.Signal {
		if sig == 1 {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected a long signal once the downtrend turns up")
	}
}

func TestBollingerMR_ValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BollingerMRConfig)
		wantErr bool
	}{
		{"valid defaults", func(c *BollingerMRConfig) {}, false},
		{"zero sma period", func(c *BollingerMRConfig) { c.SMAPeriod = 0 }, true},
		{"negative entry stddev", func(c *BollingerMRConfig) { c.EntryStdDev = -1 }, true},
		{"overbought too low", func(c *BollingerMRConfig) { c.Overbought = 40 }, true},
		{"oversold too high", func(c *BollingerMRConfig) { c.Oversold = 60 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBollingerMRConfig()
			tt.mutate(&cfg)
			err := NewBollingerMR(cfg).ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMARSI_ValidateConfig_FastMustBeLessThanSlow(t *testing.T) {
	cfg := DefaultMARSIConfig()
	cfg.FastPeriod = 26
	cfg.SlowPeriod = 12
	if err := NewMARSI(cfg).ValidateConfig(); err == nil {
		t.Error("expected error when fast_period >= slow_period")
	}
}

func TestKeltnerBreakout_ValidateConfig_QuantileRange(t *testing.T) {
	cfg := DefaultKeltnerBreakoutConfig()
	cfg.VolQuantile = 1.5
	if err := NewKeltnerBreakout(cfg).ValidateConfig(); err == nil {
		t.Error("expected error for vol_quantile outside [0, 1]")
	}
}

func TestICTSMC_ValidateConfig_KillzoneOrdering(t *testing.T) {
	cfg := DefaultICTSMCConfig()
	cfg.KillZoneStart = 10
	cfg.KillZoneEnd = 7
	if err := NewICTSMC(cfg).ValidateConfig(); err == nil {
		t.Error("expected error when killzone_end <= killzone_start")
	}
}

func TestGenerateSignals_EmptyTableRejected(t *testing.T) {
	for _, name := range Names() {
		s, _ := New(name, nil)
		_, err := s.GenerateSignals(types.BarTable{})
		if err == nil {
			t.Errorf("%s: GenerateSignals(empty) expected error", name)
		}
	}
}
