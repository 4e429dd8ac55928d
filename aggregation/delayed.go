package aggregation

import (
	"math"

	"github.com/kbukum/streamdiar/timeline"
	"github.com/kbukum/streamdiar/validation"
)

// NumOverlappingWindows is the number of chunks, hopping by step, whose
// extents overlap a span of length latency. It is at least 1.
func NumOverlappingWindows(step, latency float64) int {
	n := int(math.Ceil(latency/step - 1e-9))
	if n < 1 {
		return 1
	}
	return n
}

// DelayedAggregation emits, for a list of chunk estimates ordered oldest
// first, the combined estimate of the step-long region that ends latency -
// step seconds before the newest chunk ends.
type DelayedAggregation struct {
	Step     float64
	Latency  float64
	Strategy Strategy
	Cropping CroppingMode
}

// NewDelayedAggregation validates and returns an aggregation.
func NewDelayedAggregation(step, latency float64, strategy Strategy, cropping CroppingMode) (DelayedAggregation, error) {
	v := validation.New().
		Positive("step", step).
		Positive("latency", latency).
		Custom(latency >= step, "latency", "must not be smaller than step").
		OneOf("strategy", string(strategy), []string{string(StrategyHamming), string(StrategyFirst)}).
		OneOf("cropping_mode", string(cropping), []string{string(CroppingLoose), string(CroppingCenter)})
	if err := v.Validate(); err != nil {
		return DelayedAggregation{}, err
	}
	return DelayedAggregation{Step: step, Latency: latency, Strategy: strategy, Cropping: cropping}, nil
}

// NumOverlappingWindows bounds the number of entries Aggregate needs.
func (d DelayedAggregation) NumOverlappingWindows() int {
	return NumOverlappingWindows(d.Step, d.Latency)
}

// Region returns the span the next output covers. When first is set the
// region is extended back to the start of the oldest entry so the head of
// the stream is emitted too.
func (d DelayedAggregation) Region(entries []timeline.Feature, first bool) timeline.Segment {
	end := entries[len(entries)-1].Extent().End
	start := end - d.Latency
	region := timeline.Segment{Start: start, End: start + d.Step}
	if first {
		if head := entries[0].Extent().Start; head < region.Start {
			region.Start = head
		}
	}
	return region
}

// Aggregate combines entries (oldest first, all with the same number of
// columns) over Region(entries, first). The output lies on the newest
// entry's frame grid. Each output frame only uses entries whose extent
// contains the frame centre; frames no entry covers are left out at the
// edges and zero inside.
func (d DelayedAggregation) Aggregate(entries []timeline.Feature, first bool) timeline.Feature {
	if len(entries) == 0 {
		return timeline.Feature{}
	}
	newest := entries[len(entries)-1]
	w := newest.Window
	lo, hi := d.frameRange(w, d.Region(entries, first))

	// Trim frames outside every entry.
	covered := func(i int) bool {
		c := w.Center(i)
		for _, e := range entries {
			if _, ok := frameOf(e, c); ok {
				return true
			}
		}
		return false
	}
	for lo < hi && !covered(lo) {
		lo++
	}
	for hi > lo && !covered(hi-1) {
		hi--
	}

	out := timeline.NewFeature(hi-lo, newest.Dims, w.Shift(lo))
	switch d.Strategy {
	case StrategyFirst:
		d.first(out, entries, lo)
	default:
		d.hamming(out, entries, lo)
	}
	return out
}

// frameRange returns the half-open range of frame indices of w inside region.
func (d DelayedAggregation) frameRange(w timeline.SlidingWindow, region timeline.Segment) (int, int) {
	if d.Cropping == CroppingCenter {
		lo := w.StartingAt(region.Start)
		n := int(math.Round(region.Duration() / w.Step))
		return lo, lo + n
	}
	lo := w.ClosestFrame(region.Start) - 1
	hi := w.ClosestFrame(region.End) + 1
	for lo <= hi && !region.Contains(w.Center(lo)) {
		lo++
	}
	end := lo
	for end <= hi && region.Contains(w.Center(end)) {
		end++
	}
	return lo, end
}

func (d DelayedAggregation) first(out timeline.Feature, entries []timeline.Feature, lo int) {
	w := entries[len(entries)-1].Window
	for i := 0; i < out.Frames; i++ {
		c := w.Center(lo + i)
		for _, e := range entries {
			if j, ok := frameOf(e, c); ok {
				copy(out.Row(i), e.Row(j))
				break
			}
		}
	}
}

func (d DelayedAggregation) hamming(out timeline.Feature, entries []timeline.Feature, lo int) {
	w := entries[len(entries)-1].Window
	windows := make(map[int][]float64)
	for i := 0; i < out.Frames; i++ {
		c := w.Center(lo + i)
		row := out.Row(i)
		var total float64
		for _, e := range entries {
			j, ok := frameOf(e, c)
			if !ok {
				continue
			}
			hw, ok := windows[e.Frames]
			if !ok {
				hw = hamming(e.Frames)
				windows[e.Frames] = hw
			}
			weight := hw[j]
			for k, v := range e.Row(j) {
				row[k] += weight * v
			}
			total += weight
		}
		if total > 0 {
			for k := range row {
				row[k] /= total
			}
		}
	}
}
