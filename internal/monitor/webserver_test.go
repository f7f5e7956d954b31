package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/rppg/estimator"
	"github.com/banshee-data/pulse.report/internal/rppg/pipeline"
	sqlite "github.com/banshee-data/pulse.report/internal/rppg/storage/sqlite"
)

// fakeController implements PipelineController with canned data.
type fakeController struct {
	report  pipeline.Report
	spectra map[int]pipeline.Spectrum
	resets  int
}

func (f *fakeController) LatestReport() pipeline.Report      { return f.report }
func (f *fakeController) Spectra() map[int]pipeline.Spectrum { return f.spectra }
func (f *fakeController) Reset()                             { f.resets++ }

func newTestServer(t *testing.T, ctrl PipelineController) (*WebServer, *db.DB) {
	t.Helper()
	d, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	ws := NewWebServer(WebServerConfig{
		Address:    "127.0.0.1:0",
		Controller: ctrl,
		DB:         d,
		SessionID:  "test-session",
	})
	return ws, d
}

func TestHandleHealth(t *testing.T) {
	ws, _ := newTestServer(t, &fakeController{})

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-session", body["session"])
}

func TestHandleReport(t *testing.T) {
	ctrl := &fakeController{
		report: pipeline.Report{
			Subjects: map[int]pipeline.SubjectStatus{
				0: {Estimate: estimator.Measured(72), RateHz: 30, BufferFill: 300},
				1: {Estimate: estimator.Pending, BufferFill: 40},
			},
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	ws, _ := newTestServer(t, ctrl)

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var report pipeline.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Subjects, 2)
	assert.Equal(t, estimator.StatusMeasured, report.Subjects[0].Estimate.Status)
	assert.Equal(t, 72, report.Subjects[0].Estimate.BPM)
	assert.Equal(t, estimator.StatusPending, report.Subjects[1].Estimate.Status)
}

func TestHandleResetRequiresPost(t *testing.T) {
	ctrl := &fakeController{}
	ws, _ := newTestServer(t, ctrl)

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reset", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, ctrl.resets)

	rec = httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ctrl.resets)
}

func TestHandleSessionsAndSummary(t *testing.T) {
	ws, d := newTestServer(t, &fakeController{})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, bpm := range []int{70, 74} {
		require.NoError(t, sqlite.InsertMeasurement(d.DB, &sqlite.Measurement{
			SessionID: "test-session", SubjectIndex: 0, Status: "measured", BPM: bpm,
			RateHz: 30, BufferFill: 300,
			TSUnixNanos: base.Add(time.Duration(i) * time.Second).UnixNano(),
		}))
	}

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-session")

	rec = httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var summary sqlite.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.MeasuredCount)
	assert.Equal(t, 70, summary.MinBPM)
	assert.Equal(t, 74, summary.MaxBPM)

	rec = httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/measurements?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []sqlite.Measurement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 74, rows[0].BPM)
}

func TestSessionChartHTML(t *testing.T) {
	ws, d := newTestServer(t, &fakeController{})

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/charts/bpm", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, sqlite.InsertMeasurement(d.DB, &sqlite.Measurement{
		SessionID: "test-session", SubjectIndex: 0, Status: "measured", BPM: 72,
		TSUnixNanos: base.UnixNano(),
	}))

	rec = httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/charts/bpm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Heart Rate Over Time")
}

func TestSpectrumChartHTML(t *testing.T) {
	ctrl := &fakeController{
		spectra: map[int]pipeline.Spectrum{
			0: {Freqs: []float64{0, 0.5, 1.0, 1.5}, Magnitudes: []float64{0.1, 0.3, 5.2, 0.4}},
		},
	}
	ws, _ := newTestServer(t, ctrl)

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/charts/spectrum", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Magnitude Spectrum")

	// empty spectra are a 404, not a panic
	ctrl.spectra = nil
	rec = httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/charts/spectrum", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrendPNG(t *testing.T) {
	ws, d := newTestServer(t, &fakeController{})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, bpm := range []int{70, 72, 75} {
		require.NoError(t, sqlite.InsertMeasurement(d.DB, &sqlite.Measurement{
			SessionID: "test-session", SubjectIndex: 0, Status: "measured", BPM: bpm,
			TSUnixNanos: base.Add(time.Duration(i) * time.Second).UnixNano(),
		}))
	}

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/charts/trend.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	// PNG magic bytes
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
}

func TestDebugDashboard(t *testing.T) {
	ws, _ := newTestServer(t, &fakeController{})

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/charts/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-session")
}
