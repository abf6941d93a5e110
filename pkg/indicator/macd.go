package indicator

// MACDResult holds the MACD line, its signal line, and their difference
// (the histogram).
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the Moving Average Convergence/Divergence in batch:
// macd = EMA(fast) - EMA(slow), signal = EMA(macd, signalPeriod),
// histogram = macd - signal.
func MACD(closes []float64, fast, slow, signalPeriod int) MACDResult {
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)

	macd := make([]float64, len(closes))
	for i := range closes {
		if IsMissing(fastEMA[i]) || IsMissing(slowEMA[i]) {
			macd[i] = missing()
			continue
		}
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	signal := make([]float64, len(closes))
	sigEMA := NewEMA(signalPeriod)
	for i, v := range macd {
		if IsMissing(v) {
			signal[i] = missing()
			continue
		}
		signal[i] = sigEMA.Update(v)
	}

	histogram := make([]float64, len(closes))
	for i := range closes {
		if IsMissing(macd[i]) || IsMissing(signal[i]) {
			histogram[i] = missing()
			continue
		}
		histogram[i] = macd[i] - signal[i]
	}

	return MACDResult{MACD: macd, Signal: signal, Histogram: histogram}
}
