package timeline

import (
	"fmt"
	"math"
)

// Feature is a frame-indexed matrix placed on the time axis by Window.
// Data is row-major with Frames rows and Dims columns.
type Feature struct {
	Data   []float64     `json:"data"`
	Frames int           `json:"frames"`
	Dims   int           `json:"dims"`
	Window SlidingWindow `json:"window"`
}

// NewFeature returns a zero-filled feature.
func NewFeature(frames, dims int, w SlidingWindow) Feature {
	return Feature{
		Data:   make([]float64, frames*dims),
		Frames: frames,
		Dims:   dims,
		Window: w,
	}
}

// FeatureFromRows copies a frames × dims matrix into a Feature.
// All rows must have the same length.
func FeatureFromRows(rows [][]float64, w SlidingWindow) (Feature, error) {
	dims := 0
	if len(rows) > 0 {
		dims = len(rows[0])
	}
	f := NewFeature(len(rows), dims, w)
	for i, row := range rows {
		if len(row) != dims {
			return Feature{}, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), dims)
		}
		copy(f.Data[i*dims:], row)
	}
	return f, nil
}

// Waveform wraps mono samples as a one-column feature with one frame per sample.
func Waveform(start float64, sampleRate int, samples []float32) Feature {
	step := 1 / float64(sampleRate)
	f := NewFeature(len(samples), 1, SlidingWindow{Start: start, Duration: step, Step: step})
	for i, s := range samples {
		f.Data[i] = float64(s)
	}
	return f
}

// At returns the value at frame i, column j.
func (f Feature) At(i, j int) float64 {
	return f.Data[i*f.Dims+j]
}

// Set stores v at frame i, column j.
func (f Feature) Set(i, j int, v float64) {
	f.Data[i*f.Dims+j] = v
}

// Row returns frame i as a slice aliasing Data.
func (f Feature) Row(i int) []float64 {
	return f.Data[i*f.Dims : (i+1)*f.Dims]
}

// Column returns a copy of column j.
func (f Feature) Column(j int) []float64 {
	col := make([]float64, f.Frames)
	for i := range col {
		col[i] = f.Data[i*f.Dims+j]
	}
	return col
}

// Rows returns a frames × dims copy of the data.
func (f Feature) Rows() [][]float64 {
	rows := make([][]float64, f.Frames)
	for i := range rows {
		rows[i] = append([]float64(nil), f.Row(i)...)
	}
	return rows
}

// ColumnMeans returns the mean of each column over all frames.
func (f Feature) ColumnMeans() []float64 {
	means := make([]float64, f.Dims)
	if f.Frames == 0 {
		return means
	}
	for i := 0; i < f.Frames; i++ {
		for j := 0; j < f.Dims; j++ {
			means[j] += f.Data[i*f.Dims+j]
		}
	}
	for j := range means {
		means[j] /= float64(f.Frames)
	}
	return means
}

// Extent returns the time span covered by all frames.
func (f Feature) Extent() Segment {
	return f.Window.Extent(f.Frames)
}

// Clone returns a deep copy.
func (f Feature) Clone() Feature {
	c := f
	c.Data = append([]float64(nil), f.Data...)
	return c
}

// Samples converts column 0 back to float32 samples.
func (f Feature) Samples() []float32 {
	out := make([]float32, f.Frames)
	for i := range out {
		out[i] = float32(f.Data[i*f.Dims])
	}
	return out
}

// Finite reports whether every value is neither NaN nor infinite.
func (f Feature) Finite() bool {
	for _, v := range f.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
