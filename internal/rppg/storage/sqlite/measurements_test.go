package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/rppg/estimator"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestInsertAndListMeasurements(t *testing.T) {
	d := openTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := InsertMeasurement(d.DB, &Measurement{
			SessionID:    "s1",
			SubjectIndex: 0,
			Status:       "measured",
			BPM:          70 + i,
			RateHz:       30,
			BufferFill:   300,
			TSUnixNanos:  base.Add(time.Duration(i) * time.Second).UnixNano(),
		})
		require.NoError(t, err)
	}
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID:    "s2",
		SubjectIndex: 1,
		Status:       "no_signal",
		TSUnixNanos:  base.UnixNano(),
	}))

	got, err := ListMeasurements(d.DB, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	// newest first
	assert.Equal(t, 74, got[0].BPM)
	assert.Equal(t, 70, got[4].BPM)

	limited, err := ListMeasurements(d.DB, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := ListMeasurements(d.DB, "nope", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListSessionsOrder(t *testing.T) {
	d := openTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID: "older", Status: "measured", BPM: 70,
		TSUnixNanos: base.UnixNano(),
	}))
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID: "newer", Status: "measured", BPM: 72,
		TSUnixNanos: base.Add(time.Minute).UnixNano(),
	}))

	ids, err := ListSessions(d.DB)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, ids)
}

func TestSummarise(t *testing.T) {
	d := openTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bpms := []int{68, 72, 76}
	for i, bpm := range bpms {
		require.NoError(t, InsertMeasurement(d.DB, &Measurement{
			SessionID: "s1", SubjectIndex: 0, Status: "measured", BPM: bpm,
			TSUnixNanos: base.Add(time.Duration(i) * time.Second).UnixNano(),
		}))
	}
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID: "s1", SubjectIndex: 0, Status: "no_signal",
		TSUnixNanos: base.Add(3 * time.Second).UnixNano(),
	}))

	s, err := Summarise(d.DB, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, s.TotalCount)
	assert.Equal(t, 3, s.MeasuredCount)
	assert.Equal(t, 68, s.MinBPM)
	assert.Equal(t, 76, s.MaxBPM)
	assert.InDelta(t, 72.0, s.AvgBPM, 1e-9)
	assert.Equal(t, base.UnixNano(), s.FirstUnixNano)
	assert.Equal(t, base.Add(3*time.Second).UnixNano(), s.LastUnixNano)

	// the no_signal row must not drag the BPM stats down
	assert.NotEqual(t, 0, s.MinBPM)
}

func TestPruneMeasurements(t *testing.T) {
	d := openTestDB(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID: "s1", Status: "measured", BPM: 70,
		TSUnixNanos: now.Add(-2 * time.Hour).UnixNano(),
	}))
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID: "s1", Status: "measured", BPM: 71,
		TSUnixNanos: now.Add(-10 * time.Minute).UnixNano(),
	}))

	removed, err := PruneMeasurements(d.DB, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := ListMeasurements(d.DB, "s1", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, 71, left[0].BPM)
}

func TestMeasurementSinkThrottleAndSkip(t *testing.T) {
	d := openTestDB(t)

	sink := NewMeasurementSink(d.DB, "s1", time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// pending is never persisted
	require.NoError(t, sink.RecordEstimate(0, estimator.Pending, 30, 10, base))

	require.NoError(t, sink.RecordEstimate(0, estimator.Measured(72), 30, 300, base))
	// within the interval: dropped
	require.NoError(t, sink.RecordEstimate(0, estimator.Measured(73), 30, 300, base.Add(200*time.Millisecond)))
	// past the interval: written
	require.NoError(t, sink.RecordEstimate(0, estimator.Measured(74), 30, 300, base.Add(1500*time.Millisecond)))
	// a different subject has its own clock
	require.NoError(t, sink.RecordEstimate(1, estimator.NoSignal, 30, 300, base.Add(200*time.Millisecond)))

	got, err := ListMeasurements(d.DB, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var bpms []int
	for _, m := range got {
		if m.Status == "measured" {
			bpms = append(bpms, m.BPM)
		}
	}
	assert.ElementsMatch(t, []int{72, 74}, bpms)
}
