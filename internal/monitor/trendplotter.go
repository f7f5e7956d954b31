package monitor

import (
	"fmt"
	"image/color"
	"net/http"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/pulse.report/internal/db"
	sqlite "github.com/banshee-data/pulse.report/internal/rppg/storage/sqlite"
)

// trendPalette gives each subject a stable line colour.
var trendPalette = []color.RGBA{
	{R: 230, G: 80, B: 80, A: 255},
	{R: 80, G: 160, B: 230, A: 255},
	{R: 90, G: 200, B: 120, A: 255},
	{R: 230, G: 180, B: 60, A: 255},
	{R: 180, G: 100, B: 220, A: 255},
}

// BuildTrendPlot renders the measured BPM readings of one session as a
// time-series plot, one line per subject. Returns an error when the session
// has no measured readings.
func BuildTrendPlot(d *db.DB, sessionID string, limit int) (*plot.Plot, error) {
	rows, err := sqlite.ListMeasurements(d.DB, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}

	// group measured readings per subject in chronological order
	sort.Slice(rows, func(i, j int) bool { return rows[i].TSUnixNanos < rows[j].TSUnixNanos })
	bySubject := make(map[int]plotter.XYs)
	var t0 int64
	for _, m := range rows {
		if m.Status != "measured" {
			continue
		}
		if t0 == 0 {
			t0 = m.TSUnixNanos
		}
		secs := float64(m.TSUnixNanos-t0) / float64(time.Second)
		bySubject[m.SubjectIndex] = append(bySubject[m.SubjectIndex], plotter.XY{X: secs, Y: float64(m.BPM)})
	}
	if len(bySubject) == 0 {
		return nil, fmt.Errorf("no measured readings for session %s", sessionID)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Heart Rate Trend (%s)", sessionID)
	p.X.Label.Text = "Seconds"
	p.Y.Label.Text = "BPM"
	p.Y.Min = 50
	p.Y.Max = 110
	p.Add(plotter.NewGrid())

	var subjects []int
	for idx := range bySubject {
		subjects = append(subjects, idx)
	}
	sort.Ints(subjects)

	for i, idx := range subjects {
		line, points, err := plotter.NewLinePoints(bySubject[idx])
		if err != nil {
			return nil, fmt.Errorf("failed to build line for subject %d: %w", idx, err)
		}
		c := trendPalette[i%len(trendPalette)]
		line.Color = c
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("subject %d", idx), line)
	}
	p.Legend.Top = true

	return p, nil
}

// handleTrendPNG serves the session trend plot as a PNG for embedding in
// reports or the debug dashboard.
func (ws *WebServer) handleTrendPNG(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	p, err := BuildTrendPlot(ws.db, ws.sessionFromQuery(r), 0)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		// client likely went away; nothing sensible to send
		return
	}
}
