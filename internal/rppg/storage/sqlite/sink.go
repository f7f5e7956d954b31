package sqlite

import (
	"database/sql"
	"time"

	"github.com/banshee-data/pulse.report/internal/rppg/estimator"
)

// MeasurementSink adapts the pipeline's EstimateSink interface onto the
// measurements table. Writes are throttled per subject: at most one row per
// Interval, so a ~30 Hz tick rate does not produce thirty near-identical
// rows per second. Pending estimates are never persisted; they carry no
// information beyond the buffer fill.
type MeasurementSink struct {
	db        *sql.DB
	sessionID string
	interval  time.Duration
	lastWrite map[int]time.Time
}

// NewMeasurementSink creates a sink writing under the given session ID.
// An interval of 0 disables throttling.
func NewMeasurementSink(db *sql.DB, sessionID string, interval time.Duration) *MeasurementSink {
	return &MeasurementSink{
		db:        db,
		sessionID: sessionID,
		interval:  interval,
		lastWrite: make(map[int]time.Time),
	}
}

// RecordEstimate implements pipeline.EstimateSink.
func (s *MeasurementSink) RecordEstimate(subject int, est estimator.Estimate, rateHz float64, bufferFill int, at time.Time) error {
	if est.Status == estimator.StatusPending {
		return nil
	}
	if s.interval > 0 {
		if last, ok := s.lastWrite[subject]; ok && at.Sub(last) < s.interval {
			return nil
		}
	}
	s.lastWrite[subject] = at
	return InsertMeasurement(s.db, &Measurement{
		SessionID:    s.sessionID,
		SubjectIndex: subject,
		Status:       string(est.Status),
		BPM:          est.BPM,
		RateHz:       rateHz,
		BufferFill:   bufferFill,
		TSUnixNanos:  at.UnixNano(),
	})
}
