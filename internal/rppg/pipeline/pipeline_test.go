package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/rppg/estimator"
	"github.com/banshee-data/pulse.report/internal/rppg/synth"
)

// fakeClock advances a fixed interval per reading, simulating a steady
// frame source without wall-clock flakiness.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0), step: step}
}

func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func newTestPipeline(t *testing.T, step time.Duration) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Clock = newFakeClock(step).Now
	return New(cfg)
}

func TestTickPendingUntilBufferReady(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 33*time.Millisecond)
	sim := synth.NewPPGSim(30, 72, 0.1)

	for i := 0; i < 59; i++ {
		report, err := p.Tick(map[int]float64{0: sim.Next()})
		require.NoError(t, err)
		require.Contains(t, report.Subjects, 0)
		assert.Equal(t, estimator.StatusPending, report.Subjects[0].Estimate.Status, "tick %d", i)
	}
}

func TestTickMeasuresSyntheticPulse(t *testing.T) {
	t.Parallel()
	// ~30 fps clock driving a 72 BPM synthetic pulse for 10 seconds.
	p := newTestPipeline(t, 33333333*time.Nanosecond)
	sim := synth.NewPPGSim(30, 72, 0.1)

	var last Report
	for i := 0; i < 300; i++ {
		var err error
		last, err = p.Tick(map[int]float64{0: sim.Next()})
		require.NoError(t, err)
	}

	require.Contains(t, last.Subjects, 0)
	status := last.Subjects[0]
	require.Equal(t, estimator.StatusMeasured, status.Estimate.Status)
	assert.InDelta(t, 72, status.Estimate.BPM, 2)
	assert.Equal(t, 300, status.BufferFill)
	assert.InDelta(t, 30, status.RateHz, 1)
}

func TestEmptyTickDestroysRegistry(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 33*time.Millisecond)

	// Accumulate some history for two subjects.
	for i := 0; i < 80; i++ {
		_, err := p.Tick(map[int]float64{0: 128, 1: 130})
		require.NoError(t, err)
	}
	require.Equal(t, 2, p.registry.Len())

	// Zero subjects detected: the whole registry goes away.
	report, err := p.Tick(map[int]float64{})
	require.NoError(t, err)
	assert.True(t, report.NoSubject)
	assert.Empty(t, report.Subjects)
	assert.Equal(t, 0, p.registry.Len())

	// The next non-empty tick starts from fresh buffers, not continuation.
	report, err = p.Tick(map[int]float64{0: 128})
	require.NoError(t, err)
	assert.Equal(t, estimator.StatusPending, report.Subjects[0].Estimate.Status)
	assert.Equal(t, 1, report.Subjects[0].BufferFill)
}

func TestMissingSampleCarriesPreviousStatus(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 33333333*time.Nanosecond)
	sim := synth.NewPPGSim(30, 72, 0.1)

	for i := 0; i < 300; i++ {
		_, err := p.Tick(map[int]float64{0: sim.Next(), 1: 130})
		require.NoError(t, err)
	}
	before := p.LatestReport().Subjects[0]
	require.Equal(t, estimator.StatusMeasured, before.Estimate.Status)

	// Subject 0 yields no usable sample this tick; subject 1 still reports.
	report, err := p.Tick(map[int]float64{1: 130})
	require.NoError(t, err)
	assert.Equal(t, before, report.Subjects[0])
	assert.Equal(t, 2, len(report.Subjects))
}

func TestNaNSampleLeavesBufferUntouched(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 33*time.Millisecond)

	_, err := p.Tick(map[int]float64{0: 128})
	require.NoError(t, err)
	require.Equal(t, 1, p.registry.Get(0).Len())

	_, err = p.Tick(map[int]float64{0: math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, 1, p.registry.Get(0).Len())
}

func TestNegativeIndexFailsFast(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 33*time.Millisecond)

	_, err := p.Tick(map[int]float64{-1: 128})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResetIsIdempotent(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 33*time.Millisecond)

	for i := 0; i < 10; i++ {
		_, err := p.Tick(map[int]float64{0: 128})
		require.NoError(t, err)
	}

	p.Reset()
	epochAfterFirst := p.Epoch()
	stateAfterFirst := p.LatestReport()
	require.Equal(t, 0, p.registry.Len())

	p.Reset()
	assert.Equal(t, 0, p.registry.Len())
	assert.Empty(t, p.LatestReport().Subjects)
	assert.Equal(t, stateAfterFirst.Subjects, p.LatestReport().Subjects)
	// Epoch is re-stamped on every reset.
	assert.True(t, p.Epoch().After(epochAfterFirst))
}

func TestResetRestampsEpoch(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, time.Second)
	first := p.Epoch()
	p.Reset()
	assert.True(t, p.Epoch().After(first))
}

// recordingSink captures everything the pipeline reports.
type recordingSink struct {
	calls []sinkCall
}

type sinkCall struct {
	subject int
	est     estimator.Estimate
	fill    int
}

func (s *recordingSink) RecordEstimate(subject int, est estimator.Estimate, rateHz float64, fill int, at time.Time) error {
	s.calls = append(s.calls, sinkCall{subject: subject, est: est, fill: fill})
	return nil
}

func TestSinkReceivesEstimates(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Clock = newFakeClock(33 * time.Millisecond).Now
	cfg.Sink = sink
	p := New(cfg)

	for i := 0; i < 5; i++ {
		_, err := p.Tick(map[int]float64{0: 128, 1: 130})
		require.NoError(t, err)
	}

	// Two subjects per tick, five ticks.
	require.Len(t, sink.calls, 10)
	assert.Equal(t, 0, sink.calls[0].subject)
	assert.Equal(t, 1, sink.calls[1].subject)
	assert.Equal(t, estimator.StatusPending, sink.calls[0].est.Status)
}

func TestSpectrumCapture(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Clock = newFakeClock(33333333 * time.Nanosecond).Now
	cfg.CaptureSpectra = true
	p := New(cfg)
	sim := synth.NewPPGSim(30, 72, 0.1)

	for i := 0; i < 120; i++ {
		_, err := p.Tick(map[int]float64{0: sim.Next()})
		require.NoError(t, err)
	}

	spectra := p.Spectra()
	require.Contains(t, spectra, 0)
	assert.NotEmpty(t, spectra[0].Freqs)
	assert.Len(t, spectra[0].Magnitudes, len(spectra[0].Freqs))
}

func TestRegistryIndicesSorted(t *testing.T) {
	t.Parallel()
	r := NewRegistry(DefaultConfig().Buffer)
	r.Ensure(2)
	r.Ensure(0)
	r.Ensure(1)
	assert.Equal(t, []int{0, 1, 2}, r.Indices())
}
