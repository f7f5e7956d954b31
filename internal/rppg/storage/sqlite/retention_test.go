package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRetentionPrunesOnStart(t *testing.T) {
	d := openTestDB(t)

	now := time.Now()
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID:   "old",
		Status:      "measured",
		BPM:         70,
		TSUnixNanos: now.Add(-2 * time.Hour).UnixNano(),
	}))
	require.NoError(t, InsertMeasurement(d.DB, &Measurement{
		SessionID:   "fresh",
		Status:      "measured",
		BPM:         72,
		TSUnixNanos: now.UnixNano(),
	}))

	// A cancelled context still gets the startup sweep before the loop
	// observes cancellation and returns.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	RunRetention(ctx, d.DB, time.Hour, time.Minute)

	old, err := ListMeasurements(d.DB, "old", 0)
	require.NoError(t, err)
	assert.Empty(t, old)

	fresh, err := ListMeasurements(d.DB, "fresh", 0)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}
