// Package pipeline provides orchestration for the rPPG estimation pipeline.
//
// It owns the per-subject buffer registry and drives the estimator once per
// externally-paced tick, emitting a per-subject status report for display
// and persistence sinks. The pipeline does not own numeric logic; it
// delegates to the signal, dsp, and estimator packages.
//
// Everything here is single-threaded: a Pipeline is owned by the
// one goroutine calling Tick, and no operation blocks. Callers that share a
// Pipeline across goroutines (e.g. a sample source plus an HTTP reset
// handler) must serialise access themselves.
package pipeline
