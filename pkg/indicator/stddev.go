package indicator

import "math"

// StdDev is an incremental population standard deviation over a fixed
// window, computed from the window's own SMA.
type StdDev struct {
	period int
	window []float64
	sma    *SMA
	head   int
	filled bool
}

// NewStdDev constructs a StdDev with the given period (clamped to >= 1).
func NewStdDev(period int) *StdDev {
	if period < 1 {
		period = 1
	}
	return &StdDev{period: period, window: make([]float64, period), sma: NewSMA(period)}
}

// Update feeds one new value and returns the current standard deviation,
// or NaN if the window isn't yet full.
func (s *StdDev) Update(value float64) float64 {
	mean := s.sma.Update(value)
	s.window[s.head] = value
	s.head = (s.head + 1) % s.period
	if !s.filled && s.head == 0 {
		s.filled = true
	}
	if !s.filled {
		return missing()
	}
	return stddevOf(s.window, mean)
}

// Current returns the current standard deviation without adding new data.
func (s *StdDev) Current() float64 {
	if !s.filled {
		return missing()
	}
	return stddevOf(s.window, s.sma.Current())
}

// Mean returns the current window mean (the underlying SMA).
func (s *StdDev) Mean() float64 {
	return s.sma.Current()
}

// Ready reports whether the window has filled.
func (s *StdDev) Ready() bool { return s.filled }

// Period returns the configured window length.
func (s *StdDev) Period() int { return s.period }

// Reset clears all accumulated state.
func (s *StdDev) Reset() {
	s.window = make([]float64, s.period)
	s.sma.Reset()
	s.head = 0
	s.filled = false
}

func stddevOf(window []float64, mean float64) float64 {
	var sumSquares float64
	for _, v := range window {
		d := v - mean
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(window)))
}

// StdDevSeries computes the batch standard-deviation column for values.
func StdDevSeries(values []float64, period int) []float64 {
	sd := NewStdDev(period)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = sd.Update(v)
	}
	return out
}
