// Command session-report renders a stored session as a standalone HTML
// chart and an optional PNG trend plot, straight from the SQLite database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/monitor"
	sqlite "github.com/banshee-data/pulse.report/internal/rppg/storage/sqlite"
)

func main() {
	dbFile := flag.String("db", "pulse.db", "SQLite database path")
	sessionID := flag.String("session", "", "session ID (defaults to the most recent session)")
	htmlOut := flag.String("html", "session-report.html", "HTML output path (empty to skip)")
	pngOut := flag.String("png", "", "PNG trend plot output path (empty to skip)")
	limit := flag.Int("limit", 0, "maximum measurements to include (0 = library default)")
	flag.Parse()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	session := *sessionID
	if session == "" {
		ids, err := sqlite.ListSessions(database.DB)
		if err != nil || len(ids) == 0 {
			log.Fatalf("no sessions found in %s", *dbFile)
		}
		session = ids[0]
		log.Printf("using most recent session %s", session)
	}

	summary, err := sqlite.Summarise(database.DB, session)
	if err != nil {
		log.Fatalf("failed to summarise session: %v", err)
	}
	log.Printf("session %s: %d/%d measured, bpm min=%d avg=%.1f max=%d",
		session, summary.MeasuredCount, summary.TotalCount, summary.MinBPM, summary.AvgBPM, summary.MaxBPM)

	if *htmlOut != "" {
		if err := writeHTMLReport(database, session, *limit, *htmlOut); err != nil {
			log.Fatalf("failed to write HTML report: %v", err)
		}
		log.Printf("✓ Wrote %s", *htmlOut)
	}

	if *pngOut != "" {
		p, err := monitor.BuildTrendPlot(database, session, *limit)
		if err != nil {
			log.Fatalf("failed to build trend plot: %v", err)
		}
		if err := p.Save(8*vg.Inch, 4*vg.Inch, *pngOut); err != nil {
			log.Fatalf("failed to save trend plot: %v", err)
		}
		log.Printf("✓ Wrote %s", *pngOut)
	}
}

func writeHTMLReport(database *db.DB, session string, limit int, path string) error {
	rows, err := sqlite.ListMeasurements(database.DB, session, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no measurements for session %s", session)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].TSUnixNanos < rows[j].TSUnixNanos })

	bySubject := make(map[int][]opts.LineData)
	var axis []string
	for _, m := range rows {
		if m.Status != "measured" {
			continue
		}
		ts := time.Unix(0, m.TSUnixNanos).Format("15:04:05")
		axis = append(axis, ts)
		bySubject[m.SubjectIndex] = append(bySubject[m.SubjectIndex], opts.LineData{Value: []interface{}{ts, m.BPM}})
	}
	if len(bySubject) == 0 {
		return fmt.Errorf("no measured readings for session %s", session)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pulse Session Report", Theme: "dark", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Heart Rate Over Time", Subtitle: fmt.Sprintf("session=%s", session)}),
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

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}
