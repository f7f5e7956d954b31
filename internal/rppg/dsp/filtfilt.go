package dsp

// ApplyBandpass band-limits x with a zero-phase Butterworth bandpass: the
// filter is designed for the given cutoffs and rate, then run forward and
// backward over the whole window so the output is phase-aligned with the
// input. The result has the same length as x. This is a batch, non-causal
// operation recomputed from scratch per call.
func ApplyBandpass(x []float64, lowHz, highHz, rateHz float64, order int) ([]float64, error) {
	b, a, err := BandpassCoefficients(lowHz, highHz, rateHz, order)
	if err != nil {
		return nil, err
	}
	return FiltFilt(b, a, x), nil
}

// FiltFilt applies the IIR filter (b, a) forward and backward over x,
// cancelling the filter's group delay. Edge transients are suppressed by
// odd-reflection padding of the input before filtering; the padding is
// stripped from the result.
func FiltFilt(b, a, x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}

	padlen := 3 * max(len(a), len(b))
	if padlen >= n {
		padlen = n - 1
	}

	// Odd extension: reflect about the first and last samples so the
	// padded signal is continuous in value and slope at the boundaries.
	ext := make([]float64, padlen+n+padlen)
	for i := 0; i < padlen; i++ {
		ext[i] = 2*x[0] - x[padlen-i]
	}
	copy(ext[padlen:], x)
	for i := 0; i < padlen; i++ {
		ext[padlen+n+i] = 2*x[n-1] - x[n-2-i]
	}

	y := lfilter(b, a, ext)
	reverse(y)
	y = lfilter(b, a, y)
	reverse(y)

	out := make([]float64, n)
	copy(out, y[padlen:padlen+n])
	return out
}

// lfilter runs the IIR difference equation in direct form II transposed.
// a[0] is assumed to be 1 (BandpassCoefficients guarantees this).
func lfilter(b, a, x []float64) []float64 {
	nt := max(len(a), len(b))
	bp := make([]float64, nt)
	ap := make([]float64, nt)
	copy(bp, b)
	copy(ap, a)

	if nt < 2 {
		// Degenerate single-tap filter: pure gain.
		y := make([]float64, len(x))
		for i, xn := range x {
			y[i] = bp[0] * xn
		}
		return y
	}

	z := make([]float64, nt-1)
	y := make([]float64, len(x))
	for i, xn := range x {
		yn := bp[0]*xn + z[0]
		for j := 0; j < nt-2; j++ {
			z[j] = bp[j+1]*xn + z[j+1] - ap[j+1]*yn
		}
		z[nt-2] = bp[nt-1]*xn - ap[nt-1]*yn
		y[i] = yn
	}
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
