package sqlite

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// DefaultRetentionSweepInterval is how often RunRetention sweeps when the
// caller does not pick an interval.
const DefaultRetentionSweepInterval = time.Hour

// RunRetention prunes measurements older than ttl, once at startup and then
// on every sweep tick, until the context is cancelled. It blocks; run it in
// its own goroutine.
func RunRetention(ctx context.Context, db *sql.DB, ttl, sweep time.Duration) {
	if sweep <= 0 {
		sweep = DefaultRetentionSweepInterval
	}
	prune := func() {
		n, err := PruneMeasurements(db, ttl, time.Now())
		if err != nil {
			log.Printf("measurement retention prune failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("pruned %d measurement(s) older than %s", n, ttl)
		}
	}
	prune()

	ticker := time.NewTicker(sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
