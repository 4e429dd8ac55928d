package diarization

import "github.com/kbukum/streamdiar/timeline"

// Binarize turns a prediction on the global speaker axis into labeled
// intervals. A frame is active when its score exceeds threshold; each run
// of active frames of one speaker becomes an interval from the middle of
// its first frame to the middle of the first frame after it.
func Binarize(pred timeline.Feature, threshold float64) timeline.Annotation {
	var ann timeline.Annotation
	w := pred.Window
	for speaker := 0; speaker < pred.Dims; speaker++ {
		onset := -1
		for i := 0; i <= pred.Frames; i++ {
			active := i < pred.Frames && pred.At(i, speaker) > threshold
			switch {
			case active && onset < 0:
				onset = i
			case !active && onset >= 0:
				ann.Add(w.Center(onset), w.Center(i), speaker)
				onset = -1
			}
		}
	}
	return ann.Sorted()
}
