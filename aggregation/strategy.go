package aggregation

import (
	"math"

	"github.com/kbukum/streamdiar/timeline"
)

// Strategy selects how overlapping estimates of one frame are combined.
type Strategy string

const (
	// StrategyHamming averages estimates weighted by a Hamming window over
	// each chunk's own frames, favouring estimates near a chunk's centre.
	StrategyHamming Strategy = "hamming"
	// StrategyFirst takes the estimate of the earliest buffered chunk.
	StrategyFirst Strategy = "first"
)

// CroppingMode selects which frames of the output grid fall in a region.
type CroppingMode string

const (
	// CroppingLoose keeps every frame whose centre lies in the region.
	CroppingLoose CroppingMode = "loose"
	// CroppingCenter keeps the run of round(region/step) frames starting at
	// the frame that begins at the region start.
	CroppingCenter CroppingMode = "center"
)

// hamming returns the symmetric Hamming window of length n.
func hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for j := range w {
		w[j] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(j)/float64(n-1))
	}
	return w
}

// frameOf returns the frame of f whose centre is closest to t, and whether
// t lies inside f's extent.
func frameOf(f timeline.Feature, t float64) (int, bool) {
	if f.Frames == 0 || !f.Extent().Contains(t) {
		return 0, false
	}
	j := f.Window.ClosestFrame(t)
	if j < 0 {
		j = 0
	}
	if j >= f.Frames {
		j = f.Frames - 1
	}
	return j, true
}
