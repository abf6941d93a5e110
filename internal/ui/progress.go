// Package ui renders terminal progress for long-running optimizer and
// walk-forward jobs. It replaces the teacher's bar-by-bar ASCII
// candlestick/equity display (ui.BacktestUI, which animates one
// MarketEvent at a time) with a combination-by-combination progress bar,
// since the optimizer's unit of work is a parameter combination, not a
// bar — but keeps the same ANSI-escape single-line-redraw idiom and
// color palette.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"
)

const (
	clearLine  = "\033[2K"
	moveStart  = "\r"
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
)

// OptimizerProgress renders a single redrawn line tracking combinations
// tried/skipped against the grid total and the current best metric value.
// Renders are throttled through a rate.Limiter so a tight evaluation loop
// (thousands of combinations/sec on a small bar table) doesn't spend more
// time drawing than optimizing.
type OptimizerProgress struct {
	total   int
	width   int
	limiter *rate.Limiter

	tried, skipped int
	bestLabel      string
	bestValue      float64
	started        time.Time
}

// NewOptimizerProgress creates a progress reporter for a grid of the
// given size, redrawing at most maxFPS times per second.
func NewOptimizerProgress(total int, maxFPS float64) *OptimizerProgress {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	if maxFPS <= 0 {
		maxFPS = 10
	}
	return &OptimizerProgress{
		total:   total,
		width:   width,
		limiter: rate.NewLimiter(rate.Limit(maxFPS), 1),
		started: time.Now(),
	}
}

// Update records progress for one more evaluated combination and redraws
// the line if the limiter allows it (always draws on the final update).
func (p *OptimizerProgress) Update(tried, skipped int, bestLabel string, bestValue float64) {
	p.tried, p.skipped = tried, skipped
	p.bestLabel, p.bestValue = bestLabel, bestValue

	if tried >= p.total || p.limiter.Allow() {
		p.render()
	}
}

// Done redraws a final line and moves to a fresh line.
func (p *OptimizerProgress) Done() {
	p.render()
	fmt.Println()
}

func (p *OptimizerProgress) render() {
	progress := 0.0
	if p.total > 0 {
		progress = float64(p.tried) / float64(p.total)
	}
	barWidth := p.width - 40
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(progress * float64(barWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	elapsed := time.Since(p.started).Round(time.Second)
	line := fmt.Sprintf("%s%s%s %s%.0f%%%s [%d/%d tried, %d skipped] best(%s)=%s%.4f%s elapsed=%s",
		colorCyan, bar, colorReset,
		colorBold, progress*100, colorReset,
		p.tried, p.total, p.skipped,
		p.bestLabel, bestColor(p.bestValue), p.bestValue, colorReset,
		elapsed)

	fmt.Print(moveStart + clearLine + line)
}

func bestColor(v float64) string {
	if v < 0 {
		return colorRed
	}
	return colorGreen
}
