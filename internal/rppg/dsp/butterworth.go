package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrInvalidFilterSpec is returned when the requested cutoffs cannot yield a
// valid bandpass design even after clamping. Callers treat this as "no
// estimate" for the tick rather than propagating a failure.
var ErrInvalidFilterSpec = errors.New("dsp: invalid bandpass filter specification")

// Default sampling rate guards for filter design. Rates below the minimum
// come from short or jittery histories and would place the passband outside
// the representable range; callers substitute the fallback rate before
// design. The estimator reads these as defaults and lets tuning override
// them.
const (
	MinDesignRateHz      = 8.0
	FallbackDesignRateHz = 30.0
)

// nyquistClamp keeps the high cutoff strictly below Nyquist so the bilinear
// transform stays numerically valid.
const nyquistClamp = 0.99

// BandpassCoefficients designs a digital Butterworth bandpass filter and
// returns its transfer function coefficients (b = numerator, a = denominator,
// a[0] == 1). Cutoffs are in Hz against the given sampling rate.
//
// Guards applied before design, in order:
//  1. rateHz <= 0 fails with ErrInvalidFilterSpec; substituting a usable
//     rate for a degenerate one is the caller's decision (the estimator
//     applies its configured design-rate guard before calling here).
//  2. highHz at or above Nyquist is clamped to 0.99 x Nyquist.
//  3. lowHz <= 0 or lowHz >= highHz after clamping fails with
//     ErrInvalidFilterSpec.
func BandpassCoefficients(lowHz, highHz, rateHz float64, order int) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("%w: order %d", ErrInvalidFilterSpec, order)
	}
	if rateHz <= 0 {
		return nil, nil, fmt.Errorf("%w: sampling rate %f Hz", ErrInvalidFilterSpec, rateHz)
	}
	nyquist := rateHz / 2
	if highHz >= nyquist {
		highHz = nyquistClamp * nyquist
	}
	if lowHz <= 0 || lowHz >= highHz {
		return nil, nil, fmt.Errorf("%w: cutoffs [%f, %f] Hz at rate %f Hz", ErrInvalidFilterSpec, lowHz, highHz, rateHz)
	}

	zeros, poles, gain := bandpassZPK(lowHz/nyquist, highHz/nyquist, order)
	b = realPoly(zeros, gain)
	a = realPoly(poles, 1)
	return b, a, nil
}

// bandpassZPK designs the digital bandpass in zero-pole-gain form. Cutoffs
// are normalised to Nyquist (0..1). The analog Butterworth lowpass prototype
// is transformed to a bandpass and discretised with the bilinear transform.
func bandpassZPK(low, high float64, order int) (zeros, poles []complex128, gain float64) {
	// Prewarp the normalised cutoffs so the bilinear transform lands them
	// at the requested digital frequencies.
	const fs = 2.0
	warpedLow := 2 * fs * math.Tan(math.Pi*low/fs)
	warpedHigh := 2 * fs * math.Tan(math.Pi*high/fs)
	bw := warpedHigh - warpedLow
	wo := math.Sqrt(warpedLow * warpedHigh)

	// Analog lowpass prototype: order poles evenly spaced on the left half
	// of the unit circle, no zeros, unit gain.
	proto := make([]complex128, 0, order)
	for m := -order + 1; m < order; m += 2 {
		proto = append(proto, -cmplx.Exp(complex(0, math.Pi*float64(m)/(2*float64(order)))))
	}

	// Lowpass-to-bandpass transform. Each prototype pole splits into a
	// conjugate pair around the centre frequency; order zeros appear at s=0.
	analogPoles := make([]complex128, 0, 2*order)
	for _, p := range proto {
		ps := p * complex(bw/2, 0)
		d := cmplx.Sqrt(ps*ps - complex(wo*wo, 0))
		analogPoles = append(analogPoles, ps+d, ps-d)
	}
	gain = math.Pow(bw, float64(order))

	// Bilinear transform to the z-domain.
	const fs2 = 2 * fs
	poles = make([]complex128, len(analogPoles))
	num := complex(1, 0)
	den := complex(1, 0)
	for i, p := range analogPoles {
		poles[i] = (complex(fs2, 0) + p) / (complex(fs2, 0) - p)
		den *= complex(fs2, 0) - p
	}
	// Analog zeros all sit at s=0 and map to z=+1; the excess pole count
	// adds matching zeros at z=-1.
	zeros = make([]complex128, 0, 2*order)
	for i := 0; i < order; i++ {
		zeros = append(zeros, complex(1, 0))
		num *= complex(fs2, 0) // fs2 - 0
	}
	for i := 0; i < order; i++ {
		zeros = append(zeros, complex(-1, 0))
	}
	gain *= real(num / den)
	return zeros, poles, gain
}

// realPoly expands a polynomial from its roots, scales by gain, and returns
// the real coefficient sequence in descending order. Roots arrive in
// conjugate pairs so imaginary residue is rounding noise only.
func realPoly(roots []complex128, gain float64) []float64 {
	coeffs := []complex128{complex(1, 0)}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c) * gain
	}
	return out
}
