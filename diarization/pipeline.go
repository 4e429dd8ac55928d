package diarization

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamdiar/aggregation"
	"github.com/kbukum/streamdiar/clustering"
	"github.com/kbukum/streamdiar/errors"
	"github.com/kbukum/streamdiar/logger"
	"github.com/kbukum/streamdiar/observability"
	"github.com/kbukum/streamdiar/timeline"
)

// Oracle names used in errors and spans.
const (
	OracleSegmentation = "segmentation"
	OracleEmbedding    = "embedding"
)

// Pipeline is one online diarization session. It is not safe for
// concurrent use; callers serialize Process and Reset.
type Pipeline struct {
	settings Settings
	seg      SegmentationOracle
	emb      EmbeddingOracle

	tracker *clustering.Tracker
	buffer  *aggregation.ConsensusBuffer
	chunks  int

	sessionID string
	log       *logger.Logger
	metrics   *observability.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics records batch metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(p *Pipeline) { p.sessionID = id }
}

// New resolves cfg against the segmentation oracle and returns a pipeline
// in its initial state.
func New(cfg Config, seg SegmentationOracle, emb EmbeddingOracle, opts ...Option) (*Pipeline, error) {
	if seg == nil || emb == nil {
		return nil, errors.InvalidConfig("oracles", "segmentation and embedding oracles are required")
	}
	settings, err := cfg.Resolve(seg.Duration(), seg.SampleRate())
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		settings:  settings,
		seg:       seg,
		emb:       emb,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.WithComponent("diarization")
	}
	p.log = p.log.WithFields(logger.Fields(logger.FieldSessionID, p.sessionID))

	if err := p.reset(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reset discards every identity and buffered chunk. Replaying the same
// input after Reset reproduces the same output.
func (p *Pipeline) Reset() {
	// Settings were validated in New, so construction cannot fail here.
	if err := p.reset(); err != nil {
		panic(err)
	}
	p.log.Debug("session reset")
}

func (p *Pipeline) reset() error {
	tracker, err := clustering.NewTracker(p.settings.Clustering)
	if err != nil {
		return err
	}
	buffer, err := aggregation.NewConsensusBuffer(p.settings.Step, p.settings.Latency)
	if err != nil {
		return err
	}
	p.tracker, p.buffer, p.chunks = tracker, buffer, 0
	return nil
}

// SessionID returns the session identifier.
func (p *Pipeline) SessionID() string { return p.sessionID }

// Config returns the resolved settings.
func (p *Pipeline) Config() Settings { return p.settings }

// Speakers returns a snapshot of the global identities.
func (p *Pipeline) Speakers() []clustering.Speaker { return p.tracker.Speakers() }

// Processed returns the number of chunks processed since the last reset.
func (p *Pipeline) Processed() int { return p.chunks }

// BufferLen returns the number of chunks currently buffered.
func (p *Pipeline) BufferLen() int { return p.buffer.Len() }

// NumOverlappingWindows returns the buffer capacity.
func (p *Pipeline) NumOverlappingWindows() int { return p.buffer.Cap() }

// Process diarizes a batch of chunks in order and returns one Result per
// chunk. On error no session state has changed.
func (p *Pipeline) Process(ctx context.Context, chunks []Chunk) (results []Result, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			code := string(errors.ErrCodeInternal)
			if appErr, ok := errors.AsAppError(err); ok {
				code = string(appErr.Code)
			}
			p.metrics.RecordError(ctx, code)
			p.log.WithError(err).Warn("batch failed", logger.Fields(logger.FieldChunks, len(chunks)))
		}
	}()

	if err := p.checkBatch(chunks); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanProcess, trace.WithAttributes(
		attribute.String(observability.AttrSessionID, p.sessionID),
		attribute.Int(observability.AttrBatchSize, len(chunks)),
	))
	defer func() { observability.EndSpan(span, err) }()

	waveforms := make([][]float32, len(chunks))
	for i, c := range chunks {
		waveforms[i] = c.Samples
	}

	segs, embs, err := p.infer(ctx, waveforms)
	if err != nil {
		return nil, err
	}

	resolution := p.settings.Duration / float64(len(segs[0]))
	results = make([]Result, len(chunks))
	var total clustering.Stats
	for i, c := range chunks {
		w := timeline.SlidingWindow{Start: c.Start, Duration: resolution, Step: resolution}
		activity, ferr := timeline.FeatureFromRows(segs[i], w)
		if ferr != nil {
			return nil, errors.Internal(ferr)
		}

		before := p.tracker.Len()
		permuted, _, stats := p.tracker.Update(activity, embs[i])
		p.logStats(c, before, stats)
		total = addStats(total, stats)

		p.buffer.Push(aggregation.Entry{
			Waveform:   timeline.Waveform(c.Start, p.settings.SampleRate, c.Samples),
			Prediction: permuted,
		})
		waveform, prediction := p.buffer.Aggregate()
		results[i] = Result{
			Annotation: Binarize(prediction, p.settings.Clustering.TauActive),
			Waveform:   waveform,
		}
		p.buffer.EvictIfFull()
		p.chunks++
	}

	span.SetAttributes(attribute.Int(observability.AttrSpeakers, p.tracker.Len()))
	p.metrics.RecordBatch(ctx, len(chunks), time.Since(start))
	p.metrics.RecordSpeakers(ctx, total.Created, total.Dropped)
	p.log.Debug("batch processed", logger.Fields(
		logger.FieldChunks, len(chunks),
		logger.FieldSpeakers, p.tracker.Len(),
		"matched", total.Matched,
		"created", total.Created,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return results, nil
}

// checkBatch enforces the call preconditions.
func (p *Pipeline) checkBatch(chunks []Chunk) error {
	if len(chunks) == 0 {
		return errors.Precondition("batch must contain at least one chunk")
	}
	want := p.settings.ChunkSamples()
	for i, c := range chunks {
		if c.SampleRate != 0 && c.SampleRate != p.settings.SampleRate {
			return errors.Precondition(fmt.Sprintf("chunk %d has sample rate %d, expected %d", i, c.SampleRate, p.settings.SampleRate)).
				WithDetail(logger.FieldChunk, i)
		}
		if len(c.Samples) != want {
			return errors.Precondition(fmt.Sprintf("chunk %d has %d samples, expected %d", i, len(c.Samples), want)).
				WithDetail(logger.FieldChunk, i)
		}
		if math.IsNaN(c.Start) || math.IsInf(c.Start, 0) {
			return errors.Precondition(fmt.Sprintf("chunk %d has a non-finite start time", i)).
				WithDetail(logger.FieldChunk, i)
		}
	}
	return nil
}

// infer runs both oracles once over the batch and checks their output shapes.
func (p *Pipeline) infer(ctx context.Context, waveforms [][]float32) ([]Scores, []Embeddings, error) {
	segCtx, segSpan := observability.StartSpan(ctx, observability.SpanSegment,
		trace.WithAttributes(attribute.String(observability.AttrOracle, p.seg.Name())))
	segs, err := p.seg.Segment(segCtx, waveforms)
	observability.EndSpan(segSpan, err)
	if err != nil {
		return nil, nil, errors.Inference(OracleSegmentation, err)
	}
	if err := checkScores(segs, len(waveforms)); err != nil {
		return nil, nil, errors.Inference(OracleSegmentation, err)
	}

	embCtx, embSpan := observability.StartSpan(ctx, observability.SpanEmbed,
		trace.WithAttributes(attribute.String(observability.AttrOracle, p.emb.Name())))
	embs, err := p.emb.Embed(embCtx, waveforms, segs)
	observability.EndSpan(embSpan, err)
	if err != nil {
		return nil, nil, errors.Inference(OracleEmbedding, err)
	}
	if err := checkEmbeddings(embs, segs); err != nil {
		return nil, nil, errors.Inference(OracleEmbedding, err)
	}
	return segs, embs, nil
}

func checkScores(segs []Scores, batch int) error {
	if len(segs) != batch {
		return fmt.Errorf("got %d segmentations for %d chunks", len(segs), batch)
	}
	frames := len(segs[0])
	if frames == 0 {
		return fmt.Errorf("segmentation has no frames")
	}
	speakers := len(segs[0][0])
	for b, s := range segs {
		if len(s) != frames {
			return fmt.Errorf("segmentation %d has %d frames, expected %d", b, len(s), frames)
		}
		for i, row := range s {
			if len(row) != speakers {
				return fmt.Errorf("segmentation %d frame %d has %d speakers, expected %d", b, i, len(row), speakers)
			}
			for _, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("segmentation %d frame %d is not finite", b, i)
				}
			}
		}
	}
	return nil
}

func checkEmbeddings(embs []Embeddings, segs []Scores) error {
	if len(embs) != len(segs) {
		return fmt.Errorf("got %d embedding sets for %d chunks", len(embs), len(segs))
	}
	for b, e := range embs {
		if want := len(segs[b][0]); len(e) != want {
			return fmt.Errorf("embedding set %d has %d rows, expected %d", b, len(e), want)
		}
	}
	return nil
}

func (p *Pipeline) logStats(c Chunk, before int, s clustering.Stats) {
	for g := before; g < before+s.Created; g++ {
		p.log.Info("speaker identity created", logger.Fields(
			logger.FieldSpeaker, g,
			"at", c.Start,
		))
	}
	if s.Dropped > 0 {
		p.log.Warn("speaker limit reached, local speakers left unassigned", logger.Fields(
			"dropped", s.Dropped,
			"max_speakers", p.settings.Clustering.MaxSpeakers,
			"at", c.Start,
		))
	}
	if s.Retired > 0 {
		p.log.Info("speaker identity retired", logger.Fields("retired", s.Retired, "at", c.Start))
	}
}

func addStats(a, b clustering.Stats) clustering.Stats {
	return clustering.Stats{
		Active:    a.Active + b.Active,
		Matched:   a.Matched + b.Matched,
		Refreshed: a.Refreshed + b.Refreshed,
		Created:   a.Created + b.Created,
		Dropped:   a.Dropped + b.Dropped,
		Retired:   a.Retired + b.Retired,
	}
}
