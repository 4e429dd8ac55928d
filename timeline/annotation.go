package timeline

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// Interval is one labeled span of speech. Speaker is a global identity index.
type Interval struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker int     `json:"speaker"`
}

// Segment returns the span of the interval.
func (iv Interval) Segment() Segment {
	return Segment{Start: iv.Start, End: iv.End}
}

// Annotation is a set of labeled intervals. Intervals of different speakers
// may overlap.
type Annotation struct {
	URI       string     `json:"uri,omitempty"`
	Intervals []Interval `json:"intervals"`
}

// Add appends an interval.
func (a *Annotation) Add(start, end float64, speaker int) {
	a.Intervals = append(a.Intervals, Interval{Start: start, End: end, Speaker: speaker})
}

// Len returns the number of intervals.
func (a Annotation) Len() int {
	return len(a.Intervals)
}

// Labels returns the distinct speakers in ascending order.
func (a Annotation) Labels() []int {
	seen := make(map[int]struct{})
	var labels []int
	for _, iv := range a.Intervals {
		if _, ok := seen[iv.Speaker]; ok {
			continue
		}
		seen[iv.Speaker] = struct{}{}
		labels = append(labels, iv.Speaker)
	}
	sort.Ints(labels)
	return labels
}

// Sorted returns a copy ordered by start time, then speaker.
func (a Annotation) Sorted() Annotation {
	out := Annotation{URI: a.URI, Intervals: append([]Interval(nil), a.Intervals...)}
	sort.SliceStable(out.Intervals, func(i, j int) bool {
		x, y := out.Intervals[i], out.Intervals[j]
		if x.Start != y.Start {
			return x.Start < y.Start
		}
		return x.Speaker < y.Speaker
	})
	return out
}

// SpeakerLabel formats a global identity index the way RTTM files name speakers.
func SpeakerLabel(speaker int) string {
	return fmt.Sprintf("speaker%d", speaker)
}

// WriteRTTM writes the annotation in RTTM format, one SPEAKER line per interval.
func (a Annotation) WriteRTTM(w io.Writer) error {
	uri := a.URI
	if uri == "" {
		uri = "stream"
	}
	bw := bufio.NewWriter(w)
	for _, iv := range a.Sorted().Intervals {
		if _, err := fmt.Fprintf(bw, "SPEAKER %s 1 %.3f %.3f <NA> <NA> %s <NA> <NA>\n",
			uri, iv.Start, iv.End-iv.Start, SpeakerLabel(iv.Speaker)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
