// Package dsp provides the numeric filtering and spectral primitives for the
// rPPG pipeline: digital Butterworth bandpass design, zero-phase batch
// filtering, and a real-to-complex spectral transform abstraction backed by
// gonum's FFT.
//
// Everything here is stateless with respect to the signal: filters are
// designed and applied from scratch over the full window on every call.
// Zero-phase filtering needs the whole window up front, and recomputing
// keeps the output a pure function of its inputs.
package dsp
