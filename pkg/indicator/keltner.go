package indicator

// KeltnerChannels holds the three Keltner Channel columns: middle (EMA),
// and upper/lower offset by k ATR units.
type KeltnerChannels struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Keltner computes Keltner Channels in batch: middle = EMA(period),
// upper/lower = middle +/- k*ATR(atrPeriod).
func Keltner(high, low, close []float64, period, atrPeriod int, k float64) KeltnerChannels {
	middle := EMASeries(close, period)
	atr := ATRSeries(high, low, close, atrPeriod)

	upper := make([]float64, len(close))
	lower := make([]float64, len(close))
	for i := range close {
		if IsMissing(middle[i]) || IsMissing(atr[i]) {
			upper[i], lower[i] = missing(), missing()
			continue
		}
		upper[i] = middle[i] + k*atr[i]
		lower[i] = middle[i] - k*atr[i]
	}
	return KeltnerChannels{Middle: middle, Upper: upper, Lower: lower}
}
