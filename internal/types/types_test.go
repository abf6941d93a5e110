package types

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSide_String(t *testing.T) {
	tests := []struct {
		side Side
		want string
	}{
		{SideLong, "LONG"},
		{SideShort, "SHORT"},
		{SideFlat, "FLAT"},
		{Side(99), "FLAT"}, // unknown defaults to FLAT
	}

	for _, tt := range tests {
		got := tt.side.String()
		if got != tt.want {
			t.Errorf("Side(%d).String() = %s, want %s", tt.side, got, tt.want)
		}
	}
}

func TestSide_Opposite(t *testing.T) {
	tests := []struct {
		side Side
		want Side
	}{
		{SideLong, SideShort},
		{SideShort, SideLong},
		{SideFlat, SideFlat},
	}

	for _, tt := range tests {
		got := tt.side.Opposite()
		if got != tt.want {
			t.Errorf("Side(%d).Opposite() = %d, want %d", tt.side, got, tt.want)
		}
	}
}

func TestIsMissing(t *testing.T) {
	if !IsMissing(Missing) {
		t.Error("IsMissing(Missing) = false, want true")
	}
	if IsMissing(0) {
		t.Error("IsMissing(0) = true, want false")
	}
	if IsMissing(math.Inf(1)) {
		t.Error("IsMissing(+Inf) = true, want false")
	}
}

func bars(n int) BarTable {
	ts := make([]time.Time, n)
	o := make([]float64, n)
	h := make([]float64, n)
	l := make([]float64, n)
	c := make([]float64, n)
	v := make([]float64, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Minute)
		o[i], h[i], l[i], c[i], v[i] = 100, 101, 99, 100, 10
	}
	return BarTable{Timestamps: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestBarTable_Validate(t *testing.T) {
	t.Run("valid table passes", func(t *testing.T) {
		if err := bars(5).Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("empty table rejected", func(t *testing.T) {
		if err := (BarTable{}).Validate(); err != ErrEmptyBarTable {
			t.Errorf("Validate() = %v, want ErrEmptyBarTable", err)
		}
	})

	t.Run("ragged column rejected", func(t *testing.T) {
		b := bars(5)
		b.Close = b.Close[:4]
		if err := b.Validate(); err != ErrRaggedColumns {
			t.Errorf("Validate() = %v, want ErrRaggedColumns", err)
		}
	})

	t.Run("non-monotonic timestamp rejected", func(t *testing.T) {
		b := bars(3)
		b.Timestamps[2] = b.Timestamps[0]
		err := b.Validate()
		if err == nil {
			t.Fatal("Validate() = nil, want error")
		}
		var rowErr *RowError
		if !asRowError(err, &rowErr) || rowErr.Err != ErrDuplicateTimestamp {
			t.Errorf("Validate() = %v, want duplicate timestamp at row 2", err)
		}
	})

	t.Run("decreasing timestamp rejected", func(t *testing.T) {
		b := bars(3)
		b.Timestamps[1] = b.Timestamps[0].Add(-time.Minute)
		err := b.Validate()
		var rowErr *RowError
		if !asRowError(err, &rowErr) || rowErr.Err != ErrNonMonotonicTimestamps {
			t.Errorf("Validate() = %v, want non-monotonic at row 1", err)
		}
	})

	t.Run("high below body rejected", func(t *testing.T) {
		b := bars(3)
		b.High[1] = 50
		err := b.Validate()
		var rowErr *RowError
		if !asRowError(err, &rowErr) || rowErr.Err != ErrInvalidOHLC {
			t.Errorf("Validate() = %v, want invalid OHLC at row 1", err)
		}
	})

	t.Run("negative volume rejected", func(t *testing.T) {
		b := bars(3)
		b.Volume[0] = -1
		err := b.Validate()
		var rowErr *RowError
		if !asRowError(err, &rowErr) || rowErr.Err != ErrNegativeVolume {
			t.Errorf("Validate() = %v, want negative volume at row 0", err)
		}
	})
}

func asRowError(err error, target **RowError) bool {
	re, ok := err.(*RowError)
	if !ok {
		return false
	}
	*target = re
	return true
}

func TestBarTable_SliceNoLookAhead(t *testing.T) {
	full := bars(10)
	k := 4
	prefix := full.Slice(k)

	if prefix.Len() != k {
		t.Fatalf("Slice(%d).Len() = %d, want %d", k, prefix.Len(), k)
	}
	for i := 0; i < k; i++ {
		if !prefix.Timestamps[i].Equal(full.Timestamps[i]) {
			t.Errorf("Slice timestamp[%d] diverges from full table", i)
		}
	}
}

func TestBarTable_WithColumnDoesNotMutate(t *testing.T) {
	b := bars(5)
	withATR := b.WithColumn("atr", []float64{1, 2, 3, 4, 5})

	if _, ok := b.Column("atr"); ok {
		t.Error("WithColumn mutated the original table's Indicators")
	}
	col, ok := withATR.Column("atr")
	if !ok || len(col) != 5 {
		t.Error("WithColumn did not attach the new column")
	}
}

func TestDecimal_CapitalConservation(t *testing.T) {
	capital := decimal.RequireFromString("10000")
	pnls := []string{"125.50", "-40.25", "10.00"}

	for _, p := range pnls {
		capital = capital.Add(decimal.RequireFromString(p))
	}

	want := decimal.RequireFromString("10095.25")
	if !capital.Equal(want) {
		t.Errorf("capital = %s, want %s", capital, want)
	}
}
