// Package db owns the SQLite connection, schema, and admin surfaces for the
// pulse server.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the SQLite database at path and ensures the
// baseline schema exists. The inline schema matches migration 0001 so fresh
// databases work without running the migration tooling; rollups beyond the
// baseline arrive via MigrateUp.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS measurements (
			session_id        TEXT NOT NULL,
			subject_index     INTEGER NOT NULL,
			status            TEXT NOT NULL,
			bpm               INTEGER NOT NULL DEFAULT 0,
			rate_hz           DOUBLE NOT NULL DEFAULT 0,
			buffer_fill       INTEGER NOT NULL DEFAULT 0,
			ts_unix_nanos     BIGINT NOT NULL,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_measurements_session
			ON measurements(session_id, ts_unix_nanos);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// AttachAdminRoutes mounts the debug surfaces on the given mux: a live
// tailSQL console over the measurements database and an on-demand backup
// download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://pulse.db", db.DB, &tailsql.DBOptions{
		Label: "Pulse DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		if _, err := backupFile.WriteTo(w); err != nil {
			log.Printf("Failed to send backup file: %v", err)
		}
	}))
}
