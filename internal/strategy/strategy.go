// Package strategy implements the signal-generation layer: pure
// transformations from an OHLCV bar table to a bar table carrying a
// signal column, plus a registry dispatching strategy construction by
// string key.
package strategy

import (
	"github.com/tathienbao/quant-lab/internal/types"
)

// Strategy is a pure transformation from bars to signal-annotated bars.
// GenerateSignals must never mutate bars, and must never use data at
// index > i to decide the signal at index i.
type Strategy interface {
	Name() string
	ValidateConfig() error
	RequiredColumns() []string
	GenerateSignals(bars types.BarTable) (types.BarTable, error)
}

// checkRequiredColumns verifies bars carries every base OHLCV column.
// Strategy-specific indicator columns are computed by the strategy
// itself inside GenerateSignals, not required as input.
func checkRequiredColumns(bars types.BarTable) error {
	n := bars.Len()
	if n == 0 {
		return types.ErrEmptyBarTable
	}
	columns := []struct {
		name   string
		values []float64
	}{
		{"open", bars.Open}, {"high", bars.High}, {"low", bars.Low},
		{"close", bars.Close}, {"volume", bars.Volume},
	}
	for _, c := range columns {
		if len(c.values) != n {
			return types.NewColumnError(c.name)
		}
	}
	return nil
}

// allocSignals returns a fresh int8 signal slice and float64 strength
// slice of length n, both zero-valued.
func allocSignals(n int) ([]int8, []float64) {
	return make([]int8, n), make([]float64, n)
}

var errInvalidConfig = types.ErrInvalidConfig
