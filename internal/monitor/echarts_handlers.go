package monitor

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	sqlite "github.com/banshee-data/pulse.report/internal/rppg/storage/sqlite"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleDebugDashboard renders a simple dashboard with iframes to the debug charts.
func (ws *WebServer) handleDebugDashboard(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = ws.sessionID
	}
	safeSessionID := html.EscapeString(sessionID)
	qs := ""
	if sessionID != "" {
		qs = "?session_id=" + url.QueryEscape(sessionID)
	}
	safeQs := html.EscapeString(qs)

	doc := fmt.Sprintf(dashboardHTML, safeSessionID, safeQs)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head><title>Pulse Debug Charts</title>
<style>
body { background: #111; color: #ddd; font-family: sans-serif; margin: 0; padding: 1em; }
iframe { border: 1px solid #333; background: #fff; width: 48%%; height: 560px; }
</style>
</head>
<body>
<h2>Pulse Debug Charts (session %s)</h2>
<iframe src="/debug/charts/bpm%s"></iframe>
<iframe src="/debug/charts/spectrum"></iframe>
</body>
</html>`

// handleSessionChartHTML renders a BPM timeline (HTML) of one session using
// go-echarts. This is a debugging-only endpoint (no auth) to sanity-check
// stored measurements without the full UI.
// Query params:
//   - session_id (optional; defaults to the live session)
//   - limit (optional; default 500) to reduce payload size
func (ws *WebServer) handleSessionChartHTML(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	sessionID := ws.sessionFromQuery(r)

	limit := 500
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 10000 {
			limit = v
		}
	}

	rows, err := sqlite.ListMeasurements(ws.db.DB, sessionID, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list measurements: %v", err))
		return
	}
	if len(rows) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no measurements for session")
		return
	}

	// rows arrive newest first; the chart wants chronological order
	sort.Slice(rows, func(i, j int) bool { return rows[i].TSUnixNanos < rows[j].TSUnixNanos })

	// one line series per subject, measured readings only
	bySubject := make(map[int][]opts.LineData)
	var axis []string
	seen := make(map[int64]bool)
	for _, m := range rows {
		if m.Status != "measured" {
			continue
		}
		ts := time.Unix(0, m.TSUnixNanos).Format("15:04:05")
		if !seen[m.TSUnixNanos] {
			axis = append(axis, ts)
			seen[m.TSUnixNanos] = true
		}
		bySubject[m.SubjectIndex] = append(bySubject[m.SubjectIndex], opts.LineData{Value: []interface{}{ts, m.BPM}})
	}
	if len(bySubject) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no measured readings for session")
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pulse BPM Timeline", Theme: "dark", Width: "900px", Height: "500px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Heart Rate Over Time", Subtitle: fmt.Sprintf("session=%s rows=%d", sessionID, len(rows))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "BPM", Min: 50, Max: 110}),
	)
	line.SetXAxis(axis)

	var subjects []int
	for idx := range bySubject {
		subjects = append(subjects, idx)
	}
	sort.Ints(subjects)
	for _, idx := range subjects {
		line.AddSeries(fmt.Sprintf("subject %d", idx), bySubject[idx],
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleSpectrumChartHTML renders the live magnitude spectra (HTML) of all
// tracked subjects. Only useful when the pipeline runs with spectrum
// capture enabled.
func (ws *WebServer) handleSpectrumChartHTML(w http.ResponseWriter, r *http.Request) {
	if ws.controller == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	spectra := ws.controller.Spectra()
	if len(spectra) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no spectra available; enable spectrum capture")
		return
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pulse Spectrum", Theme: "dark", Width: "900px", Height: "500px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Magnitude Spectrum", Subtitle: fmt.Sprintf("subjects=%d", len(spectra))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "Frequency (Hz)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Magnitude"}),
	)

	var subjects []int
	for idx := range spectra {
		subjects = append(subjects, idx)
	}
	sort.Ints(subjects)

	// all subjects share the buffer geometry, so axis from the first
	first := spectra[subjects[0]]
	axis := make([]string, len(first.Freqs))
	for i, f := range first.Freqs {
		axis[i] = fmt.Sprintf("%.2f", f)
	}
	line.SetXAxis(axis)

	for _, idx := range subjects {
		sp := spectra[idx]
		data := make([]opts.LineData, len(sp.Magnitudes))
		for i, m := range sp.Magnitudes {
			data[i] = opts.LineData{Value: m}
		}
		line.AddSeries(fmt.Sprintf("subject %d", idx), data)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
