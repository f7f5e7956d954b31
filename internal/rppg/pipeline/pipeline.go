package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/rppg/estimator"
	"github.com/banshee-data/pulse.report/internal/rppg/signal"
)

// ErrInvalidInput marks a collaborator contract violation (negative subject
// index, clock running backwards past the epoch). These fail fast instead of
// degrading: they indicate a bug upstream, not a sensor artifact.
var ErrInvalidInput = errors.New("pipeline: invalid input")

// EstimateSink receives per-subject estimates after each tick. It is an
// adapter; implementations live outside the rppg packages (e.g.
// internal/rppg/storage/sqlite) and may throttle or drop internally.
type EstimateSink interface {
	RecordEstimate(subject int, est estimator.Estimate, rateHz float64, bufferFill int, at time.Time) error
}

// SubjectStatus is one subject's entry in a tick report.
type SubjectStatus struct {
	Estimate   estimator.Estimate `json:"estimate"`
	RateHz     float64            `json:"rate_hz,omitempty"`
	BufferFill int                `json:"buffer_fill"`
}

// Report is the per-tick output consumed by the display layer.
type Report struct {
	// NoSubject is set when the tick carried no samples at all; the
	// registry has been cleared and Subjects is empty.
	NoSubject bool                  `json:"no_subject"`
	Subjects  map[int]SubjectStatus `json:"subjects"`
	Timestamp time.Time             `json:"timestamp"`
}

// Spectrum is a captured magnitude spectrum for one subject, retained only
// when spectrum capture is enabled. Debug surface, not part of the report.
type Spectrum struct {
	Freqs      []float64 `json:"freqs"`
	Magnitudes []float64 `json:"magnitudes"`
}

// PipelineConfig holds dependencies and tuning for a Pipeline.
type PipelineConfig struct {
	Buffer    signal.BufferConfig
	Estimator estimator.Config
	Strategy  ResetStrategy

	// Clock supplies "now" for sample timestamps and the epoch. Defaults
	// to time.Now; injected in tests for determinism.
	Clock func() time.Time

	// Sink, when non-nil, receives every estimate computed on a tick.
	Sink EstimateSink

	// CaptureSpectra retains the latest magnitude spectrum per subject for
	// the debug chart endpoints. Costs one extra filter+FFT pass per ready
	// subject per tick, so it is off by default.
	CaptureSpectra bool
}

// ConfigFromTuning builds a PipelineConfig from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) PipelineConfig {
	return PipelineConfig{
		Buffer: signal.BufferConfig{
			MaxSamples:     cfg.GetMaxBufferSize(),
			MinReady:       cfg.GetMinBufferSize(),
			FallbackRateHz: cfg.GetFallbackRateHz(),
		},
		Estimator: estimator.ConfigFromTuning(cfg),
		Strategy:  ResetOnEmpty,
	}
}

// DefaultConfig returns a PipelineConfig from the canonical tuning defaults
// file. Panics if the file cannot be found; intended for tests.
func DefaultConfig() PipelineConfig {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// Pipeline drives the per-subject estimation flow once per tick. It owns the
// registry, the epoch, and the estimator; see the package comment for the
// single-goroutine ownership rule.
type Pipeline struct {
	cfg      PipelineConfig
	registry *Registry
	est      *estimator.Estimator
	epoch    time.Time
	last     Report
	spectra  map[int]Spectrum
}

// New creates a Pipeline and stamps its epoch from the configured clock.
func New(cfg PipelineConfig) *Pipeline {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Strategy == "" {
		cfg.Strategy = ResetOnEmpty
	}
	p := &Pipeline{
		cfg:      cfg,
		registry: NewRegistry(cfg.Buffer),
		est:      estimator.New(cfg.Estimator, nil),
		epoch:    cfg.Clock(),
		spectra:  make(map[int]Spectrum),
	}
	p.last = Report{Subjects: map[int]SubjectStatus{}, Timestamp: p.epoch}
	return p
}

// Epoch returns the current pipeline epoch.
func (p *Pipeline) Epoch() time.Time {
	return p.epoch
}

// LatestReport returns the report from the most recent tick (or an empty
// report before the first tick).
func (p *Pipeline) LatestReport() Report {
	return p.last
}

// Spectra returns the latest captured spectra by subject index. Empty unless
// CaptureSpectra is enabled.
func (p *Pipeline) Spectra() map[int]Spectrum {
	return p.spectra
}

// Reset clears the registry and re-stamps the epoch. Externally triggerable
// (UI action); equivalent in effect to a natural zero-subject tick but
// independent of detection.
func (p *Pipeline) Reset() {
	p.registry.Clear()
	p.epoch = p.cfg.Clock()
	p.last = Report{Subjects: map[int]SubjectStatus{}, Timestamp: p.epoch}
	p.spectra = make(map[int]Spectrum)
	diagf("[Pipeline] Reset: registry cleared, epoch re-stamped")
}

// Tick advances the pipeline with one frame's worth of samples, keyed by
// detection-order subject index. An empty map means no subjects were
// detected: the whole registry is destroyed (ResetOnEmpty) and a global
// no-subject report is returned. In-progress accumulation is
// discarded, since index slots have no identity to resume from.
//
// A subject tracked in earlier ticks but missing from this map keeps its
// buffer untouched and its previous status carries over (the collaborator
// produced no usable sample for it this tick).
func (p *Pipeline) Tick(samples map[int]float64) (Report, error) {
	now := p.cfg.Clock()
	ts := now.Sub(p.epoch).Seconds()
	if ts < 0 {
		return Report{}, fmt.Errorf("%w: tick time %.3fs precedes epoch", ErrInvalidInput, ts)
	}

	if len(samples) == 0 {
		if p.registry.Len() > 0 {
			diagf("[Pipeline] No subjects detected, clearing %d buffer(s)", p.registry.Len())
		}
		p.registry.Clear()
		p.spectra = make(map[int]Spectrum)
		p.last = Report{NoSubject: true, Subjects: map[int]SubjectStatus{}, Timestamp: now}
		return p.last, nil
	}

	// Deterministic processing order keeps logs and sink writes stable.
	indices := make([]int, 0, len(samples))
	for idx := range samples {
		if idx < 0 {
			return Report{}, fmt.Errorf("%w: negative subject index %d", ErrInvalidInput, idx)
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	touched := make(map[int]bool, len(indices))
	for _, idx := range indices {
		value := samples[idx]
		if math.IsNaN(value) || math.IsInf(value, 0) {
			// Unusable region sample: leave the buffer alone this tick.
			tracef("[Pipeline] Subject %d: unusable sample, carrying previous status", idx)
			continue
		}
		if err := p.registry.Ensure(idx).Append(value, ts); err != nil {
			return Report{}, err
		}
		touched[idx] = true
	}

	report := Report{Subjects: make(map[int]SubjectStatus, p.registry.Len()), Timestamp: now}
	for _, idx := range p.registry.Indices() {
		buf := p.registry.Get(idx)
		if !touched[idx] {
			// Carry the previous status for subjects the detector skipped.
			if prev, ok := p.last.Subjects[idx]; ok {
				report.Subjects[idx] = prev
			} else {
				report.Subjects[idx] = SubjectStatus{Estimate: estimator.Pending, BufferFill: buf.Len()}
			}
			continue
		}

		status := SubjectStatus{Estimate: estimator.Pending, BufferFill: buf.Len()}
		if buf.IsReady() {
			rate := buf.EffectiveSamplingRate()
			status.RateHz = rate
			status.Estimate = p.est.Estimate(buf.Values(), rate)
			if p.cfg.CaptureSpectra {
				if freqs, mags, ok := p.est.Spectrum(buf.Values(), rate); ok {
					p.spectra[idx] = Spectrum{Freqs: freqs, Magnitudes: mags}
				}
			}
			tracef("[Pipeline] Subject %d: %s (fill=%d rate=%.2fHz)", idx, status.Estimate.Status, buf.Len(), rate)
		} else {
			tracef("[Pipeline] Subject %d: pending (fill=%d/%d)", idx, buf.Len(), p.cfg.Buffer.MinReady)
		}
		report.Subjects[idx] = status

		if p.cfg.Sink != nil {
			if err := p.cfg.Sink.RecordEstimate(idx, status.Estimate, status.RateHz, status.BufferFill, now); err != nil {
				opsf("[Pipeline] Failed to record estimate for subject %d: %v", idx, err)
			}
		}
	}

	p.last = report
	return report, nil
}
