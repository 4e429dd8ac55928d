// Package timeline provides the time primitives shared by the diarization
// packages: segments, uniform frame grids, frame-indexed feature matrices
// and labeled speaker annotations.
//
// A Feature pairs a row-major matrix (frames × dims) with the SlidingWindow
// that places each row on the absolute time axis:
//
//	w := timeline.SlidingWindow{Start: 12.5, Duration: 0.017, Step: 0.017}
//	f := timeline.NewFeature(293, 3, w)
//	f.Set(0, 1, 0.92)
//	span := f.Extent() // [12.5, 12.5+293*0.017)
package timeline
