package indicator

// BollingerBands holds the three Bollinger Band columns: middle (SMA),
// and upper/lower offset by k standard deviations.
type BollingerBands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes Bollinger Bands in batch: middle = SMA(period),
// upper/lower = middle +/- k*stdev(period).
func Bollinger(closes []float64, period int, k float64) BollingerBands {
	middle := SMASeries(closes, period)
	stdev := StdDevSeries(closes, period)

	upper := make([]float64, len(closes))
	lower := make([]float64, len(closes))
	for i := range closes {
		if IsMissing(middle[i]) || IsMissing(stdev[i]) {
			upper[i], lower[i] = missing(), missing()
			continue
		}
		upper[i] = middle[i] + k*stdev[i]
		lower[i] = middle[i] - k*stdev[i]
	}
	return BollingerBands{Middle: middle, Upper: upper, Lower: lower}
}
