// Package provider implements a generic provider framework for swappable
// backends.
//
// A Registry[T] holds named factories. Create instantiates a backend from a
// generic config map and caches it by name, so every caller asking for the
// same backend shares one instance. CheckAll reports the health of every
// created backend, preferring HealthChecker over the plain IsAvailable probe.
//
//	reg := provider.NewRegistry[diarization.SegmentationOracle]()
//	reg.RegisterFactory("pyannote", pyannote.SegmentationFactory())
//	seg, err := reg.Create("pyannote", map[string]any{"base_url": url})
package provider
