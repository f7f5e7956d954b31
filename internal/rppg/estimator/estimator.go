// Package estimator extracts a heart-rate reading from a band-limited
// spectral peak over one subject's buffered signal window.
package estimator

import (
	"math/cmplx"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/rppg/dsp"
	"github.com/banshee-data/pulse.report/internal/units"
)

// Status is the per-subject estimation outcome for a tick.
type Status string

const (
	// StatusPending means the subject's buffer has not reached the
	// readiness threshold yet.
	StatusPending Status = "pending"
	// StatusNoSignal means the window was long enough but no valid
	// spectral peak was found in the search band.
	StatusNoSignal Status = "no_signal"
	// StatusMeasured means a heart-rate reading was produced.
	StatusMeasured Status = "measured"
)

// Estimate is the per-subject result of one estimation pass. BPM is only
// meaningful when Status is StatusMeasured.
type Estimate struct {
	Status Status `json:"status"`
	BPM    int    `json:"bpm,omitempty"`
}

// Pending is the estimate reported while a buffer fills.
var Pending = Estimate{Status: StatusPending}

// NoSignal is the estimate reported when no spectral peak qualifies.
var NoSignal = Estimate{Status: StatusNoSignal}

// Measured returns an estimate carrying a heart-rate reading.
func Measured(bpm int) Estimate {
	return Estimate{Status: StatusMeasured, BPM: bpm}
}

// Config holds the filter band and spectral search band.
//
// The filter band (Hz) is wider than the search band (BPM): the bandpass
// removes drift and out-of-band noise, while the narrow search rejects
// residual harmonic and respiration peaks that survive the bandpass.
type Config struct {
	BandLowHz     float64
	BandHighHz    float64
	FilterOrder   int
	SearchLowBPM  float64
	SearchHighBPM float64

	// Design-rate guard: measured rates below MinDesignRateHz are replaced
	// by FallbackDesignRateHz for filter design only; FFT bins still use
	// the measured rate. Zero values take the dsp package defaults.
	MinDesignRateHz      float64
	FallbackDesignRateHz float64
}

// DefaultConfig returns the estimator parameters from the canonical tuning
// defaults file. Panics if the file cannot be found; intended for tests.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds an estimator Config from a loaded TuningConfig.
// Use this in production code where the TuningConfig is already loaded.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		BandLowHz:            cfg.GetBandLowHz(),
		BandHighHz:           cfg.GetBandHighHz(),
		FilterOrder:          cfg.GetFilterOrder(),
		SearchLowBPM:         cfg.GetSearchLowBPM(),
		SearchHighBPM:        cfg.GetSearchHighBPM(),
		MinDesignRateHz:      cfg.GetMinDesignRateHz(),
		FallbackDesignRateHz: cfg.GetFallbackRateHz(),
	}
}

// Estimator turns a signal window plus its measured sampling rate into a
// heart-rate estimate. It owns a SpectralTransform so FFT plans can be
// reused across ticks; it is not safe for concurrent use.
type Estimator struct {
	cfg       Config
	transform dsp.SpectralTransform
}

// New creates an Estimator. A nil transform selects the default FFT.
func New(cfg Config, transform dsp.SpectralTransform) *Estimator {
	if transform == nil {
		transform = dsp.NewFFT()
	}
	if cfg.MinDesignRateHz <= 0 {
		cfg.MinDesignRateHz = dsp.MinDesignRateHz
	}
	if cfg.FallbackDesignRateHz <= 0 {
		cfg.FallbackDesignRateHz = dsp.FallbackDesignRateHz
	}
	return &Estimator{cfg: cfg, transform: transform}
}

// designRate returns the sampling rate to design the bandpass at. Rates
// below the configured minimum are degenerate and substitute the fallback.
func (e *Estimator) designRate(rateHz float64) float64 {
	if rateHz < e.cfg.MinDesignRateHz {
		return e.cfg.FallbackDesignRateHz
	}
	return rateHz
}

// Estimate runs the full pass over one window: mean detrend, zero-phase
// bandpass, FFT, then a peak search restricted to the BPM sub-band. The
// sampling rate is the buffer's measured rate, used for both filter design
// and bin placement; degenerate rates substitute the configured fallback for
// design only. Degenerate windows and filter-design failures degrade to
// NoSignal; nothing here is fatal.
func (e *Estimator) Estimate(values []float64, rateHz float64) Estimate {
	if len(values) == 0 {
		return NoSignal
	}

	detrended := detrend(values)

	filtered, err := dsp.ApplyBandpass(detrended, e.cfg.BandLowHz, e.cfg.BandHighHz, e.designRate(rateHz), e.cfg.FilterOrder)
	if err != nil {
		// Cutoffs degenerate even after clamping: downgrade this tick.
		return NoSignal
	}

	coeffs := e.transform.Transform(filtered)
	freqs := e.transform.BinFrequencies(len(filtered), rateHz)

	// Search only bins inside the BPM sub-band. Short windows give coarse
	// frequency resolution that can skip the band entirely; that is a
	// NoSignal, not an error.
	bestBin := -1
	bestMag := 0.0
	for i, f := range freqs {
		bpm := units.HzToBPM(f)
		if bpm < e.cfg.SearchLowBPM || bpm > e.cfg.SearchHighBPM {
			continue
		}
		if mag := cmplx.Abs(coeffs[i]); bestBin < 0 || mag > bestMag {
			bestBin = i
			bestMag = mag
		}
	}
	if bestBin < 0 {
		return NoSignal
	}
	return Measured(units.TruncateBPM(freqs[bestBin]))
}

// Spectrum returns the band-limited magnitude spectrum for one window,
// alongside the bin frequencies. Used by the debug chart endpoints; the
// processing matches Estimate exactly so the chart shows what the peak
// search saw. The bool result is false when the filter design failed.
func (e *Estimator) Spectrum(values []float64, rateHz float64) (freqs, magnitudes []float64, ok bool) {
	if len(values) == 0 {
		return nil, nil, false
	}
	filtered, err := dsp.ApplyBandpass(detrend(values), e.cfg.BandLowHz, e.cfg.BandHighHz, e.designRate(rateHz), e.cfg.FilterOrder)
	if err != nil {
		return nil, nil, false
	}
	coeffs := e.transform.Transform(filtered)
	freqs = e.transform.BinFrequencies(len(filtered), rateHz)
	magnitudes = make([]float64, len(coeffs))
	for i, c := range coeffs {
		magnitudes[i] = cmplx.Abs(c)
	}
	return freqs, magnitudes, true
}

// detrend subtracts the arithmetic mean, removing the DC component and slow
// illumination drift before filtering.
func detrend(values []float64) []float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - mean
	}
	return out
}
