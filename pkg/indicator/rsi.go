package indicator

// RSI is an incremental Relative Strength Index using Wilder's
// smoothing: the average gain/loss over `period` bars is seeded as a
// plain mean, then smoothed with a 1/period decay on every later bar.
type RSI struct {
	period      int
	prevClose   float64
	haveClose   bool
	gainSum     float64
	lossSum     float64
	count       int
	avgGain     float64
	avgLoss     float64
	ready       bool
}

// NewRSI constructs an RSI with the given period (clamped to >= 1).
func NewRSI(period int) *RSI {
	if period < 1 {
		period = 1
	}
	return &RSI{period: period}
}

// Update feeds one new close price and returns the current RSI, or NaN
// until `period`+1 closes have been observed.
func (r *RSI) Update(close float64) float64 {
	if !r.haveClose {
		r.prevClose = close
		r.haveClose = true
		return missing()
	}

	change := close - r.prevClose
	r.prevClose = close

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if !r.ready {
		r.gainSum += gain
		r.lossSum += loss
		r.count++
		if r.count == r.period {
			r.avgGain = r.gainSum / float64(r.period)
			r.avgLoss = r.lossSum / float64(r.period)
			r.ready = true
		}
		return r.Current()
	}

	r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
	r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
	return r.Current()
}

// Current returns the current RSI without adding new data.
func (r *RSI) Current() float64 {
	if !r.ready {
		return missing()
	}
	if r.avgLoss == 0 {
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}

// Ready reports whether the average gain/loss has been seeded.
func (r *RSI) Ready() bool { return r.ready }

// Period returns the configured period.
func (r *RSI) Period() int { return r.period }

// Reset clears all accumulated state.
func (r *RSI) Reset() {
	*r = RSI{period: r.period}
}

// RSISeries computes the batch RSI column for closes.
func RSISeries(closes []float64, period int) []float64 {
	rsi := NewRSI(period)
	out := make([]float64, len(closes))
	for i, c := range closes {
		out[i] = rsi.Update(c)
	}
	return out
}
