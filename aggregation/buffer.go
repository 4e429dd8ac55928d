package aggregation

import (
	"github.com/kbukum/streamdiar/timeline"
)

// Entry is one buffered chunk: its raw waveform and its prediction on the
// global speaker axis.
type Entry struct {
	Waveform   timeline.Feature
	Prediction timeline.Feature
}

// ConsensusBuffer is a fixed-capacity FIFO of entries. Waveforms and
// predictions live in the same slot, so both streams evict together.
// It is not safe for concurrent use.
type ConsensusBuffer struct {
	audio   DelayedAggregation
	pred    DelayedAggregation
	ring    []Entry
	head    int
	size    int
	emitted bool
}

// NewConsensusBuffer returns an empty buffer holding up to
// NumOverlappingWindows(step, latency) entries. Waveforms are reassembled
// with first/center, predictions blended with hamming/loose.
func NewConsensusBuffer(step, latency float64) (*ConsensusBuffer, error) {
	audio, err := NewDelayedAggregation(step, latency, StrategyFirst, CroppingCenter)
	if err != nil {
		return nil, err
	}
	pred, err := NewDelayedAggregation(step, latency, StrategyHamming, CroppingLoose)
	if err != nil {
		return nil, err
	}
	return &ConsensusBuffer{
		audio: audio,
		pred:  pred,
		ring:  make([]Entry, pred.NumOverlappingWindows()),
	}, nil
}

// Len returns the number of buffered entries.
func (b *ConsensusBuffer) Len() int { return b.size }

// Cap returns the maximum number of buffered entries.
func (b *ConsensusBuffer) Cap() int { return len(b.ring) }

// Push appends e as the newest entry. A full buffer drops its oldest entry first.
func (b *ConsensusBuffer) Push(e Entry) {
	if b.size == len(b.ring) {
		b.drop()
	}
	b.ring[(b.head+b.size)%len(b.ring)] = e
	b.size++
}

// Entries returns the buffered entries, oldest first.
func (b *ConsensusBuffer) Entries() []Entry {
	out := make([]Entry, b.size)
	for i := range out {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	return out
}

// Aggregate returns the delayed waveform and prediction for the current
// buffer contents. The first call after construction or Reset also covers
// the head of the stream.
func (b *ConsensusBuffer) Aggregate() (waveform, prediction timeline.Feature) {
	if b.size == 0 {
		return timeline.Feature{}, timeline.Feature{}
	}
	entries := b.Entries()
	waves := make([]timeline.Feature, len(entries))
	preds := make([]timeline.Feature, len(entries))
	for i, e := range entries {
		waves[i] = e.Waveform
		preds[i] = e.Prediction
	}
	first := !b.emitted
	b.emitted = true
	return b.audio.Aggregate(waves, first), b.pred.Aggregate(preds, first)
}

// EvictIfFull drops the oldest entry once the buffer is at capacity and
// reports whether it did.
func (b *ConsensusBuffer) EvictIfFull() bool {
	if b.size < len(b.ring) {
		return false
	}
	b.drop()
	return true
}

// Reset empties the buffer.
func (b *ConsensusBuffer) Reset() {
	clear(b.ring)
	b.head, b.size = 0, 0
	b.emitted = false
}

func (b *ConsensusBuffer) drop() {
	b.ring[b.head] = Entry{}
	b.head = (b.head + 1) % len(b.ring)
	b.size--
}
