package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// Measurement is one persisted estimate for one subject at one instant.
type Measurement struct {
	SessionID    string  `json:"session_id"`
	SubjectIndex int     `json:"subject_index"`
	Status       string  `json:"status"`
	BPM          int     `json:"bpm"`
	RateHz       float64 `json:"rate_hz"`
	BufferFill   int     `json:"buffer_fill"`
	TSUnixNanos  int64   `json:"ts_unix_nanos"`
}

// SessionSummary aggregates the measured readings of one session.
type SessionSummary struct {
	SessionID     string  `json:"session_id"`
	MeasuredCount int     `json:"measured_count"`
	TotalCount    int     `json:"total_count"`
	MinBPM        int     `json:"min_bpm"`
	MaxBPM        int     `json:"max_bpm"`
	AvgBPM        float64 `json:"avg_bpm"`
	FirstUnixNano int64   `json:"first_unix_nano"`
	LastUnixNano  int64   `json:"last_unix_nano"`
}

// InsertMeasurement writes a single measurement row.
func InsertMeasurement(db *sql.DB, m *Measurement) error {
	_, err := db.Exec(
		`INSERT INTO measurements (
			session_id, subject_index, status, bpm, rate_hz, buffer_fill, ts_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.SubjectIndex, m.Status, m.BPM, m.RateHz, m.BufferFill, m.TSUnixNanos,
	)
	if err != nil {
		return fmt.Errorf("failed to insert measurement: %w", err)
	}
	return nil
}

// ListMeasurements returns up to limit measurements for a session, newest
// first. A limit <= 0 defaults to 500.
func ListMeasurements(db *sql.DB, sessionID string, limit int) ([]Measurement, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(
		`SELECT session_id, subject_index, status, bpm, rate_hz, buffer_fill, ts_unix_nanos
		 FROM measurements WHERE session_id = ? ORDER BY ts_unix_nanos DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.SessionID, &m.SubjectIndex, &m.Status, &m.BPM, &m.RateHz, &m.BufferFill, &m.TSUnixNanos); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListSessions returns the known session IDs, most recent first.
func ListSessions(db *sql.DB) ([]string, error) {
	rows, err := db.Query(
		`SELECT session_id FROM measurements GROUP BY session_id ORDER BY MAX(ts_unix_nanos) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Summarise computes the aggregate view of one session. Only rows with
// status "measured" contribute to the BPM statistics.
func Summarise(db *sql.DB, sessionID string) (*SessionSummary, error) {
	s := &SessionSummary{SessionID: sessionID}
	err := db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = 'measured' THEN 1 ELSE 0 END), 0),
		        COALESCE(MIN(CASE WHEN status = 'measured' THEN bpm END), 0),
		        COALESCE(MAX(CASE WHEN status = 'measured' THEN bpm END), 0),
		        COALESCE(AVG(CASE WHEN status = 'measured' THEN bpm END), 0),
		        COALESCE(MIN(ts_unix_nanos), 0),
		        COALESCE(MAX(ts_unix_nanos), 0)
		 FROM measurements WHERE session_id = ?`,
		sessionID,
	).Scan(&s.TotalCount, &s.MeasuredCount, &s.MinBPM, &s.MaxBPM, &s.AvgBPM, &s.FirstUnixNano, &s.LastUnixNano)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise session %s: %w", sessionID, err)
	}
	return s, nil
}

// PruneMeasurements deletes measurements older than the TTL, returning the
// number of rows removed. Keeps long-running deployments from growing the
// database without bound.
func PruneMeasurements(db *sql.DB, ttl time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-ttl).UnixNano()
	res, err := db.Exec(`DELETE FROM measurements WHERE ts_unix_nanos < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune measurements: %w", err)
	}
	return res.RowsAffected()
}
