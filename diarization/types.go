package diarization

import "github.com/kbukum/streamdiar/timeline"

// Chunk is a fixed-length window of mono audio.
type Chunk struct {
	// Start is the absolute time of the first sample in seconds.
	Start      float64   `json:"start"`
	SampleRate int       `json:"sample_rate,omitempty"`
	Samples    []float32 `json:"samples"`
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Scores is the segmentation of one chunk: frames × local speakers, values in [0, 1].
type Scores [][]float64

// Embeddings holds one embedding row per local speaker.
type Embeddings [][]float64

// Result is the output emitted for one processed chunk.
type Result struct {
	// Annotation labels speech with global speaker indices.
	Annotation timeline.Annotation `json:"annotation"`
	// Waveform is the audio of the region the annotation was decided for.
	Waveform timeline.Feature `json:"waveform"`
}
