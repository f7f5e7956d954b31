// Package sqlite persists per-subject heart-rate estimates.
//
// It is an adapter, not a domain layer: the pipeline knows only the
// EstimateSink interface, and this package maps sink calls onto SQLite rows
// grouped by recording session. Implementations here take a plain *sql.DB so
// callers control connection lifecycle and migrations.
package sqlite
