// Package errors provides the structured error type shared by the
// diarization core, the oracle backends and the HTTP surface.
//
// Every error carries a machine-readable ErrorCode. The codes separate
// configuration and usage mistakes (INVALID_CONFIG, PRECONDITION_FAILED)
// from runtime model failures (INFERENCE_FAILED), so callers can decide
// whether resubmitting the same batch can ever succeed.
package errors
