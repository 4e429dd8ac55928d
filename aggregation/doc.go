// Package aggregation combines overlapping chunk outputs into one delayed
// estimate per step.
//
// Consecutive chunks overlap by duration - step seconds, so every instant is
// covered by several chunk predictions. DelayedAggregation waits latency
// seconds behind the newest chunk and blends (or picks) the buffered
// estimates for the step-long region at that delay. ConsensusBuffer keeps
// the bounded FIFO of buffered chunks and runs the waveform and prediction
// aggregations side by side so both outputs stay time-aligned.
package aggregation
