package timeline

import (
	"fmt"
	"math"
)

// Segment is a half-open time interval [Start, End) in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Middle returns the centre of the segment.
func (s Segment) Middle() float64 {
	return (s.Start + s.End) / 2
}

// Contains reports whether t lies in [Start, End).
func (s Segment) Contains(t float64) bool {
	return t >= s.Start && t < s.End
}

// Overlaps reports whether s and o share a non-empty interval.
func (s Segment) Overlaps(o Segment) bool {
	return math.Max(s.Start, o.Start) < math.Min(s.End, o.End)
}

func (s Segment) String() string {
	return fmt.Sprintf("[%.3f, %.3f)", s.Start, s.End)
}

// SlidingWindow is a uniform grid of frames: frame i covers
// [Start + i*Step, Start + i*Step + Duration).
type SlidingWindow struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Step     float64 `json:"step"`
}

// Frame returns the time span of frame i.
func (w SlidingWindow) Frame(i int) Segment {
	start := w.Start + float64(i)*w.Step
	return Segment{Start: start, End: start + w.Duration}
}

// Center returns the centre time of frame i.
func (w SlidingWindow) Center(i int) float64 {
	return w.Start + float64(i)*w.Step + w.Duration/2
}

// ClosestFrame returns the index of the frame whose centre is nearest to t.
// The result may be negative or beyond the last frame of a finite feature.
func (w SlidingWindow) ClosestFrame(t float64) int {
	return int(math.Round((t - w.Start - w.Duration/2) / w.Step))
}

// StartingAt returns the index of the frame whose start is nearest to t.
func (w SlidingWindow) StartingAt(t float64) int {
	return int(math.Round((t - w.Start) / w.Step))
}

// Extent returns the span covered by the first n frames.
func (w SlidingWindow) Extent(n int) Segment {
	if n <= 0 {
		return Segment{Start: w.Start, End: w.Start}
	}
	return Segment{Start: w.Start, End: w.Frame(n - 1).End}
}

// Shift returns the window moved to start at the beginning of frame i.
func (w SlidingWindow) Shift(i int) SlidingWindow {
	w.Start += float64(i) * w.Step
	return w
}
