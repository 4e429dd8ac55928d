package clustering

import "github.com/kbukum/streamdiar/timeline"

// Unassigned marks a local speaker without a global identity in a Permutation.
const Unassigned = -1

// Permutation maps local speaker index to global identity index.
// Assigned entries are pairwise distinct.
type Permutation []int

// Assigned returns the number of local speakers mapped to an identity.
func (p Permutation) Assigned() int {
	n := 0
	for _, g := range p {
		if g != Unassigned {
			n++
		}
	}
	return n
}

// Global returns the identity for local speaker l, or Unassigned.
func (p Permutation) Global(l int) int {
	if l < 0 || l >= len(p) {
		return Unassigned
	}
	return p[l]
}

// Apply projects local activity onto a width-column global axis. Column g
// carries the activity of the local speaker assigned to identity g; all
// other columns are zero.
func (p Permutation) Apply(activity timeline.Feature, width int) timeline.Feature {
	out := timeline.NewFeature(activity.Frames, width, activity.Window)
	for l, g := range p {
		if g == Unassigned || g >= width || l >= activity.Dims {
			continue
		}
		for i := 0; i < activity.Frames; i++ {
			out.Set(i, g, activity.At(i, l))
		}
	}
	return out
}
