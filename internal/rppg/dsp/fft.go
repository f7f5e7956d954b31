package dsp

import "gonum.org/v1/gonum/dsp/fourier"

// SpectralTransform converts a real-valued window into its one-sided complex
// spectrum and maps output bins to physical frequencies. Implementations may
// cache per-length state; the pipeline calls them from a single goroutine.
type SpectralTransform interface {
	// Transform returns the n/2+1 one-sided Fourier coefficients of x.
	Transform(x []float64) []complex128
	// BinFrequencies returns the frequency in Hz of each one-sided bin for
	// a window of n samples at the given sampling rate.
	BinFrequencies(n int, rateHz float64) []float64
}

// FFT is the default SpectralTransform, backed by gonum's real FFT. The plan
// is rebuilt only when the window length changes, which in steady state is
// once per subject ramp-up.
type FFT struct {
	n    int
	plan *fourier.FFT
}

// NewFFT returns an FFT ready for windows of any length.
func NewFFT() *FFT {
	return &FFT{}
}

// Transform computes the one-sided Fourier coefficients of x.
func (f *FFT) Transform(x []float64) []complex128 {
	if len(x) == 0 {
		return nil
	}
	if f.plan == nil || f.n != len(x) {
		f.plan = fourier.NewFFT(len(x))
		f.n = len(x)
	}
	return f.plan.Coefficients(nil, x)
}

// BinFrequencies returns the frequency of each one-sided bin: bin i sits at
// i * rateHz / n.
func (f *FFT) BinFrequencies(n int, rateHz float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n/2+1)
	for i := range out {
		out[i] = float64(i) * rateHz / float64(n)
	}
	return out
}
