// Package timegrid computes pixel-space layout for rendering a guide as a
// horizontal time grid: fixed-width header slots, per-programme offsets and
// widths, and the current-time indicator. All functions are pure; time is an
// explicit argument so layouts are reproducible.
package timegrid

import (
	"fmt"
	"time"
)

// DefaultPixelsPerMinute is the time-to-space scale used when callers don't
// override it.
const DefaultPixelsPerMinute = 5.0

// MinProgramWidth keeps very short programmes clickable and legible.
const MinProgramWidth = 50.0

// DefaultSlotMinutes is the header bucket width.
const DefaultSlotMinutes = 30

const msPerMinute = 60 * 1000

// Slot is one fixed-width header bucket. Derived only, never persisted.
type Slot struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Label string `json:"label"`
}

// GenerateSlots rounds start down to the nearest interval boundary and emits
// consecutive [t, t+interval) slots until end is covered; the last slot may
// overshoot end. Labels are zero-padded 24-hour HH:MM in local time.
func GenerateSlots(start, end int64, intervalMinutes int) []Slot {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultSlotMinutes
	}
	intervalMs := int64(intervalMinutes) * msPerMinute
	rounded := (start / intervalMs) * intervalMs
	if start < 0 && start%intervalMs != 0 {
		rounded -= intervalMs
	}
	var slots []Slot
	for t := rounded; t < end; t += intervalMs {
		lt := time.UnixMilli(t).Local()
		slots = append(slots, Slot{
			Start: t,
			End:   t + intervalMs,
			Label: fmt.Sprintf("%02d:%02d", lt.Hour(), lt.Minute()),
		})
	}
	return slots
}

// TimelineWidth is the full grid width for a [start, end) window.
func TimelineWidth(start, end int64, pixelsPerMinute float64) float64 {
	return float64(end-start) / msPerMinute * pixelsPerMinute
}

// CurrentTimePosition is the indicator offset for now relative to the grid
// start. May be negative or beyond the timeline width when now falls outside
// the window; the grid only renders the indicator when the offset is positive.
func CurrentTimePosition(now time.Time, start int64, pixelsPerMinute float64) float64 {
	return float64(now.UnixMilli()-start) / msPerMinute * pixelsPerMinute
}

// ProgramWidth converts a programme's duration to pixels, floored at
// MinProgramWidth — including zero or negative durations from malformed feeds.
func ProgramWidth(start, stop int64, pixelsPerMinute float64) float64 {
	w := float64(stop-start) / msPerMinute * pixelsPerMinute
	if w < MinProgramWidth {
		return MinProgramWidth
	}
	return w
}

// ProgramLeft is a programme's offset inside its channel row. Programmes
// starting before the visible window clip to the left edge, never negative.
func ProgramLeft(start, gridStart int64, pixelsPerMinute float64) float64 {
	offset := start - gridStart
	if offset < 0 {
		offset = 0
	}
	return float64(offset) / msPerMinute * pixelsPerMinute
}

// IsNowPlaying reports whether now falls inside [start, stop).
func IsNowPlaying(now time.Time, start, stop int64) bool {
	ms := now.UnixMilli()
	return start <= ms && ms < stop
}

// Progress is the percentage of a playing programme that has elapsed, in
// [0, 100) whenever IsNowPlaying holds; 0 otherwise.
func Progress(now time.Time, start, stop int64) float64 {
	if !IsNowPlaying(now, start, stop) {
		return 0
	}
	return float64(now.UnixMilli()-start) / float64(stop-start) * 100
}
