// Package monitor exposes the HTTP interface of the pulse server: the live
// report API, session history, and the debug chart endpoints.
package monitor

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/httputil"
	"github.com/banshee-data/pulse.report/internal/rppg/pipeline"
	sqlite "github.com/banshee-data/pulse.report/internal/rppg/storage/sqlite"
	"github.com/banshee-data/pulse.report/internal/version"
)

// PipelineController is the slice of the pipeline the web server needs.
// The server owning the pipeline goroutine provides a locked implementation.
type PipelineController interface {
	LatestReport() pipeline.Report
	Spectra() map[int]pipeline.Spectrum
	Reset()
}

// WebServer handles the HTTP interface for monitoring heart-rate estimation.
// It provides endpoints for health checks, the live report, session history,
// and debug charts.
type WebServer struct {
	address    string
	server     *http.Server
	controller PipelineController
	db         *db.DB
	sessionID  string
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address    string
	Controller PipelineController
	DB         *db.DB
	SessionID  string
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:    config.Address,
		controller: config.Controller,
		db:         config.DB,
		sessionID:  config.SessionID,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Handler exposes the configured routes. Used by tests with httptest.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.WriteJSON(w, status, data)
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	httputil.WriteJSONError(w, status, msg)
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/report", ws.handleReport)
	mux.HandleFunc("/api/reset", ws.handleReset)
	mux.HandleFunc("/api/sessions", ws.handleSessions)
	mux.HandleFunc("/api/sessions/summary", ws.handleSessionSummary)
	mux.HandleFunc("/api/sessions/measurements", ws.handleSessionMeasurements)

	// debugging-only chart endpoints (no auth)
	mux.HandleFunc("/debug/charts/", ws.handleDebugDashboard)
	mux.HandleFunc("/debug/charts/bpm", ws.handleSessionChartHTML)
	mux.HandleFunc("/debug/charts/spectrum", ws.handleSpectrumChartHTML)
	mux.HandleFunc("/debug/charts/trend.png", ws.handleTrendPNG)

	if ws.db != nil {
		ws.db.AttachAdminRoutes(mux)
	}

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": ws.sessionID,
		"version": version.Version,
	})
}

// handleReport returns the most recent tick report.
func (ws *WebServer) handleReport(w http.ResponseWriter, r *http.Request) {
	if ws.controller == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	ws.writeJSON(w, http.StatusOK, ws.controller.LatestReport())
}

// handleReset clears all subject state and restarts the session clock.
func (ws *WebServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if ws.controller == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	ws.controller.Reset()
	ws.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	ids, err := sqlite.ListSessions(ws.db.DB)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to list sessions: "+err.Error())
		return
	}
	ws.writeJSON(w, http.StatusOK, map[string]interface{}{
		"current":  ws.sessionID,
		"sessions": ids,
	})
}

// sessionFromQuery resolves the session ID from the query string, falling
// back to the live session.
func (ws *WebServer) sessionFromQuery(r *http.Request) string {
	if id := r.URL.Query().Get("session_id"); id != "" {
		return id
	}
	return ws.sessionID
}

func (ws *WebServer) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	summary, err := sqlite.Summarise(ws.db.DB, ws.sessionFromQuery(r))
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to summarise session: "+err.Error())
		return
	}
	ws.writeJSON(w, http.StatusOK, summary)
}

func (ws *WebServer) handleSessionMeasurements(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	rows, err := sqlite.ListMeasurements(ws.db.DB, ws.sessionFromQuery(r), limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "failed to list measurements: "+err.Error())
		return
	}
	ws.writeJSON(w, http.StatusOK, rows)
}
