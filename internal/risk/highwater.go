package risk

import (
	"sync"

	"github.com/shopspring/decimal"
)

// HighWaterMarkTracker tracks the running peak of an equity series.
// Thread-safe, kept from the teacher's risk engine, where it served live
// drawdown monitoring. No other package in this module uses it; the
// walk-forward aggregator builds its combined validation equity curve
// without it.
type HighWaterMarkTracker struct {
	mu      sync.RWMutex
	peak    decimal.Decimal
	current decimal.Decimal
}

// NewHighWaterMarkTracker creates a tracker seeded at initialEquity.
func NewHighWaterMarkTracker(initialEquity decimal.Decimal) *HighWaterMarkTracker {
	return &HighWaterMarkTracker{peak: initialEquity, current: initialEquity}
}

// Update records a new equity value, returning true if it set a new
// peak.
func (h *HighWaterMarkTracker) Update(equity decimal.Decimal) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = equity
	if equity.GreaterThan(h.peak) {
		h.peak = equity
		return true
	}
	return false
}

// Current returns the last recorded equity value.
func (h *HighWaterMarkTracker) Current() decimal.Decimal {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Peak returns the high-water mark.
func (h *HighWaterMarkTracker) Peak() decimal.Decimal {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.peak
}

// Drawdown returns (peak - current) / peak, or zero at or above peak.
func (h *HighWaterMarkTracker) Drawdown() decimal.Decimal {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.drawdownLocked()
}

func (h *HighWaterMarkTracker) drawdownLocked() decimal.Decimal {
	if h.peak.IsZero() || h.current.GreaterThanOrEqual(h.peak) {
		return decimal.Zero
	}
	return h.peak.Sub(h.current).Div(h.peak)
}

// Reset reseeds the tracker at a new initial equity.
func (h *HighWaterMarkTracker) Reset(equity decimal.Decimal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peak = equity
	h.current = equity
}

// Snapshot returns (current, peak, drawdown) in one consistent read.
func (h *HighWaterMarkTracker) Snapshot() (current, peak, drawdown decimal.Decimal) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current, h.peak, h.drawdownLocked()
}
