// Package diarization runs online speaker diarization over a stream of
// overlapping audio chunks.
//
// A Pipeline is one diarization session. Each Process call segments and
// embeds a batch of chunks through the configured oracles, maps the
// chunk-local speakers onto stable global identities, buffers the permuted
// predictions and emits, per chunk, a delayed consensus annotation together
// with the matching slice of audio.
//
// # Oracles
//
// Segmentation and embedding models run out of process and are reached
// through SegmentationOracle and EmbeddingModel. Backends register
// factories in a Registries value (see diarization/pyannote):
//
//	regs := diarization.NewRegistries()
//	pyannote.Register(regs)
//	seg, emb, err := regs.Create(oracleCfg, cfg)
//	p, err := diarization.New(cfg, seg, emb, diarization.WithLogger(log))
//
//	results, err := p.Process(ctx, chunks)
package diarization
