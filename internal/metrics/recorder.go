package metrics

import "time"

// Recorder provides the narrow set of methods the optimizer driver uses
// to update the package-level collectors, mirroring the teacher's
// Recorder shape (a thin method set over package-level vars rather than
// instance-held collectors, so a single process-wide registry is shared).
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordEvaluated records one combination finishing evaluation.
func (r *Recorder) RecordEvaluated(strategy string) {
	CombinationsEvaluatedTotal.WithLabelValues(strategy).Inc()
}

// RecordSkipped records one combination being skipped.
func (r *Recorder) RecordSkipped(strategy, reason string) {
	CombinationsSkippedTotal.WithLabelValues(strategy, reason).Inc()
}

// RecordBest updates the running best metric value for a strategy/metric pair.
func (r *Recorder) RecordBest(strategy, metric string, value float64) {
	BestMetricValue.WithLabelValues(strategy, metric).Set(value)
}

// SetActiveWorkers sets the current worker-pool occupancy.
func (r *Recorder) SetActiveWorkers(n int) {
	ActiveWorkers.Set(float64(n))
}

// Timer measures a run's wall-clock duration for RunDurationSeconds.
type Timer struct {
	kind  string
	start time.Time
}

// NewTimer starts a timer for a run of the given kind ("backtest", "optimize", "walkforward").
func NewTimer(kind string) *Timer {
	return &Timer{kind: kind, start: time.Now()}
}

// ObserveDone records the elapsed duration since the timer started.
func (t *Timer) ObserveDone() {
	RunDurationSeconds.WithLabelValues(t.kind).Observe(time.Since(t.start).Seconds())
}
