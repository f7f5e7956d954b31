// Package signal provides the per-subject sample history for rPPG estimation.
//
// A Buffer is a bounded FIFO of time-stamped scalar intensity samples. It is
// owned exclusively by the registry entry for one subject index; nothing else
// mutates it.
package signal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTimestamp is returned when a caller supplies a negative or
// non-finite timestamp. Timestamps are seconds since the pipeline epoch, so
// a negative value indicates a collaborator contract violation.
var ErrInvalidTimestamp = errors.New("signal: invalid sample timestamp")

// Sample is one scalar intensity reading with its time offset in seconds
// since the pipeline epoch. Immutable once recorded.
type Sample struct {
	Value     float64
	Timestamp float64
}

// BufferConfig holds sizing and rate-guard parameters for a Buffer.
type BufferConfig struct {
	MaxSamples     int     // FIFO capacity; oldest sample evicted beyond this
	MinReady       int     // readiness threshold for estimation
	FallbackRateHz float64 // used when the timestamp span cannot yield a rate
}

// DefaultBufferConfig returns the standard buffer sizing.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		MaxSamples:     300,
		MinReady:       60,
		FallbackRateHz: 30,
	}
}

// Buffer is a bounded, time-stamped ring of samples for one subject.
type Buffer struct {
	cfg     BufferConfig
	samples []Sample
}

// NewBuffer creates an empty Buffer. Zero or negative config fields fall
// back to the defaults so a zero-value config is usable.
func NewBuffer(cfg BufferConfig) *Buffer {
	def := DefaultBufferConfig()
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = def.MaxSamples
	}
	if cfg.MinReady <= 0 {
		cfg.MinReady = def.MinReady
	}
	if cfg.FallbackRateHz <= 0 {
		cfg.FallbackRateHz = def.FallbackRateHz
	}
	return &Buffer{
		cfg:     cfg,
		samples: make([]Sample, 0, cfg.MaxSamples),
	}
}

// Append pushes a new sample, evicting the oldest when the buffer is full.
// Append grows the buffer by at most one, so a single eviction per call is
// sufficient to hold the size bound.
func (b *Buffer) Append(value, timestamp float64) error {
	if timestamp < 0 || math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return fmt.Errorf("%w: %f", ErrInvalidTimestamp, timestamp)
	}
	b.samples = append(b.samples, Sample{Value: value, Timestamp: timestamp})
	if len(b.samples) > b.cfg.MaxSamples {
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:b.cfg.MaxSamples]
	}
	return nil
}

// Len returns the current number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// IsReady reports whether the buffer holds enough history for estimation.
func (b *Buffer) IsReady() bool {
	return len(b.samples) >= b.cfg.MinReady
}

// EffectiveSamplingRate returns the measured samples-per-second over the
// buffered timestamp span. When the span is zero or fewer than two samples
// exist, the configured fallback rate is returned to keep downstream filter
// design stable for very short histories.
func (b *Buffer) EffectiveSamplingRate() float64 {
	n := len(b.samples)
	if n < 2 {
		return b.cfg.FallbackRateHz
	}
	span := b.samples[n-1].Timestamp - b.samples[0].Timestamp
	if span <= 0 {
		return b.cfg.FallbackRateHz
	}
	return float64(n) / span
}

// Values returns an ordered copy of the sample values.
func (b *Buffer) Values() []float64 {
	out := make([]float64, len(b.samples))
	for i, s := range b.samples {
		out[i] = s.Value
	}
	return out
}

// Timestamps returns an ordered copy of the sample timestamps.
func (b *Buffer) Timestamps() []float64 {
	out := make([]float64, len(b.samples))
	for i, s := range b.samples {
		out[i] = s.Timestamp
	}
	return out
}
