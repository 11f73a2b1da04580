package pdfx

import (
	"sort"
	"strings"
)

const (
	// minColumnSamples is the minimum number of Td positions needed before
	// the column heuristic is trusted.
	minColumnSamples = 8

	// minColumnSpread is the minimum x-range (in text space units) for a
	// page to plausibly hold two columns.
	minColumnSpread = 150.0

	// minTableRows is the number of consecutive multi-cell rows that make
	// a table region.
	minTableRows = 3
)

// multiColumn reports whether the Td x-positions cluster into two distinct
// left/right bands. Single-column pages start nearly every text block at the
// same left margin; two-column pages show a second dense band past midpage.
func (l *layoutInfo) multiColumn() bool {
	xs := l.xPositions
	if len(xs) < minColumnSamples {
		return false
	}

	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	min, max := sorted[0], sorted[len(sorted)-1]
	spread := max - min
	if spread < minColumnSpread {
		return false
	}

	// Count starts in the left quarter and right half of the x-range.
	var left, right int
	for _, x := range sorted {
		switch {
		case x <= min+0.25*spread:
			left++
		case x >= min+0.5*spread:
			right++
		}
	}

	// Both bands need real density, and together they should account for
	// most text starts (scattered x values mean floats, not columns).
	if left < 3 || right < 3 {
		return false
	}
	return float64(left+right) >= 0.7*float64(len(xs))
}

// hasTable reports whether the page text contains a run of rows that look
// like table rows: three or more cells separated by double-space gaps.
func (l *layoutInfo) hasTable(text string) bool {
	run := 0
	for _, line := range strings.Split(text, "\n") {
		if countCells(line) >= 3 {
			run++
			if run >= minTableRows {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// countCells counts double-space-separated cells in a line.
func countCells(line string) int {
	cells := 0
	for _, part := range strings.Split(line, "  ") {
		if strings.TrimSpace(part) != "" {
			cells++
		}
	}
	return cells
}
