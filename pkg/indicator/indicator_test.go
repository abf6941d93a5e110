package indicator

import (
	"math"
	"testing"
)

func TestSMA_Update(t *testing.T) {
	sma := NewSMA(3)

	tests := []struct {
		value   float64
		wantNaN bool
		want    float64
	}{
		{1, true, 0},
		{2, true, 0},
		{3, false, 2}, // (1+2+3)/3
		{4, false, 3}, // (2+3+4)/3
		{5, false, 4}, // (3+4+5)/3
	}

	for i, tt := range tests {
		got := sma.Update(tt.value)
		if tt.wantNaN {
			if !math.IsNaN(got) {
				t.Errorf("step %d: Update(%v) = %v, want NaN", i, tt.value, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("step %d: Update(%v) = %v, want %v", i, tt.value, got, tt.want)
		}
	}
}

func TestSMASeries_MatchesIncremental(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14, 15, 16}
	series := SMASeries(values, 4)

	sma := NewSMA(4)
	for i, v := range values {
		want := sma.Update(v)
		got := series[i]
		if math.IsNaN(want) != math.IsNaN(got) || (!math.IsNaN(want) && want != got) {
			t.Errorf("index %d: SMASeries = %v, incremental = %v", i, got, want)
		}
	}
}

func TestEMA_SeedsThenSmooths(t *testing.T) {
	ema := NewEMA(3)
	for _, v := range []float64{1, 2} {
		if got := ema.Update(v); !math.IsNaN(got) {
			t.Errorf("Update(%v) = %v, want NaN during seed", v, got)
		}
	}
	seeded := ema.Update(3) // seed = (1+2+3)/3 = 2
	if seeded != 2 {
		t.Errorf("seeded EMA = %v, want 2", seeded)
	}
	next := ema.Update(4)
	alpha := 2.0 / 4.0
	want := alpha*4 + (1-alpha)*2
	if math.Abs(next-want) > 1e-9 {
		t.Errorf("EMA after seed = %v, want %v", next, want)
	}
}

func TestRSI_ExtremeMoves(t *testing.T) {
	rsi := NewRSI(3)
	closes := []float64{100, 101, 102, 103} // all gains, no losses
	var last float64
	for _, c := range closes {
		last = rsi.Update(c)
	}
	if last != 100 {
		t.Errorf("RSI with only gains = %v, want 100", last)
	}
}

func TestATR_FirstBarIsHighMinusLow(t *testing.T) {
	atr := NewATR(1)
	got := atr.Update(110, 100, 105)
	if got != 10 {
		t.Errorf("ATR(1) first bar = %v, want 10", got)
	}
}

func TestATR_UsesPriorClose(t *testing.T) {
	atr := NewATR(1)
	atr.Update(110, 100, 105)
	// TR = max(high-low, |high-prevClose|, |low-prevClose|)
	// = max(112-108, |112-105|, |108-105|) = max(4, 7, 3) = 7
	got := atr.Update(112, 108, 109)
	if got != 7 {
		t.Errorf("ATR(1) second bar = %v, want 7", got)
	}
}

func TestStdDev_ConstantSeriesIsZero(t *testing.T) {
	sd := NewStdDev(3)
	var last float64
	for _, v := range []float64{5, 5, 5, 5} {
		last = sd.Update(v)
	}
	if last != 0 {
		t.Errorf("StdDev of constant series = %v, want 0", last)
	}
}

func TestBollinger_MiddleIsSMA(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15}
	bb := Bollinger(closes, 3, 2)
	sma := SMASeries(closes, 3)

	for i := range closes {
		if math.IsNaN(bb.Middle[i]) != math.IsNaN(sma[i]) {
			t.Fatalf("index %d: Bollinger middle NaN-ness diverges from SMA", i)
		}
		if !math.IsNaN(bb.Middle[i]) && bb.Middle[i] != sma[i] {
			t.Errorf("index %d: Bollinger middle = %v, want %v", i, bb.Middle[i], sma[i])
		}
		if !math.IsNaN(bb.Upper[i]) && bb.Upper[i] < bb.Middle[i] {
			t.Errorf("index %d: upper band %v below middle %v", i, bb.Upper[i], bb.Middle[i])
		}
		if !math.IsNaN(bb.Lower[i]) && bb.Lower[i] > bb.Middle[i] {
			t.Errorf("index %d: lower band %v above middle %v", i, bb.Lower[i], bb.Middle[i])
		}
	}
}

func TestKeltner_BandsStraddleMiddle(t *testing.T) {
	high := []float64{12, 13, 14, 15, 16, 17}
	low := []float64{8, 9, 10, 11, 12, 13}
	close := []float64{10, 11, 12, 13, 14, 15}

	kc := Keltner(high, low, close, 3, 3, 2)
	for i := range close {
		if math.IsNaN(kc.Upper[i]) {
			continue
		}
		if kc.Upper[i] < kc.Middle[i] || kc.Lower[i] > kc.Middle[i] {
			t.Errorf("index %d: Keltner bands don't straddle middle", i)
		}
	}
}

func TestMACD_HistogramIsDifference(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	result := MACD(closes, 12, 26, 9)
	for i := range closes {
		if math.IsNaN(result.MACD[i]) || math.IsNaN(result.Signal[i]) {
			continue
		}
		want := result.MACD[i] - result.Signal[i]
		if math.Abs(result.Histogram[i]-want) > 1e-9 {
			t.Errorf("index %d: histogram = %v, want %v", i, result.Histogram[i], want)
		}
	}
}

func TestADX_TrendingSeriesExceedsFlat(t *testing.T) {
	n := 40
	trendHigh := make([]float64, n)
	trendLow := make([]float64, n)
	trendClose := make([]float64, n)
	flatHigh := make([]float64, n)
	flatLow := make([]float64, n)
	flatClose := make([]float64, n)

	for i := 0; i < n; i++ {
		trendClose[i] = 100 + float64(i)
		trendHigh[i] = trendClose[i] + 1
		trendLow[i] = trendClose[i] - 1

		flatClose[i] = 100
		flatHigh[i] = 101
		flatLow[i] = 99
	}

	trendADX := ADXSeries(trendHigh, trendLow, trendClose, 14)
	flatADX := ADXSeries(flatHigh, flatLow, flatClose, 14)

	if math.IsNaN(trendADX[n-1]) || math.IsNaN(flatADX[n-1]) {
		t.Fatal("expected ADX to be ready by the end of the series")
	}
	if trendADX[n-1] <= flatADX[n-1] {
		t.Errorf("trending ADX %v should exceed flat ADX %v", trendADX[n-1], flatADX[n-1])
	}
}
