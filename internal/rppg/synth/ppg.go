// Package synth generates synthetic photoplethysmography-like waveforms for
// demos and tests. The shape is simple: a pulse fundamental
// with one harmonic, slow baseline wander, and cheap deterministic noise.
// It is not clinical; it only needs a recoverable dominant frequency.
package synth

import "math"

// PPGSim generates a PPG-like intensity trace at fs Hz.
type PPGSim struct {
	fs    float64
	bpm   float64
	noise float64
	phase float64
	tick  int
}

// NewPPGSim creates a generator. fs is the sample rate in Hz, bpm the pulse
// rate (typical 60-120), noise the noise amplitude (~0.0-0.5).
func NewPPGSim(fs, bpm, noise float64) *PPGSim {
	if fs <= 0 {
		fs = 30
	}
	if bpm <= 0 {
		bpm = 72
	}
	return &PPGSim{fs: fs, bpm: bpm, noise: noise}
}

// Next returns the next intensity sample and advances time.
func (s *PPGSim) Next() float64 {
	t := float64(s.tick) / s.fs
	s.tick++

	cycleHz := s.bpm / 60.0
	s.phase = math.Mod(cycleHz*t, 1.0)

	// Pulse fundamental plus a softer second harmonic (dicrotic notch-ish).
	pulse := math.Sin(2*math.Pi*cycleHz*t) + 0.35*math.Sin(4*math.Pi*cycleHz*t)

	// Baseline wander (respiration-like, well below the pass band floor).
	baseline := 0.6 * math.Sin(2*math.Pi*0.25*t)

	// Deterministic noise, cheap and repeatable across runs.
	n := s.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	// Centre around a camera-plausible mean intensity.
	return 128 + 3*pulse + baseline + n
}

// Series returns the next n samples as a slice.
func (s *PPGSim) Series(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Next()
	}
	return out
}

func fract(x float64) float64 { return x - math.Floor(x) }
