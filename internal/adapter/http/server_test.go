package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/climate-explorer/internal/adapter/http"
	"github.com/couchcryptid/climate-explorer/internal/domain"
	"github.com/couchcryptid/climate-explorer/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type staticDataset struct {
	ds *domain.Dataset
}

func (s staticDataset) Dataset() *domain.Dataset { return s.ds }

func day(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

func testDataset(t *testing.T) *domain.Dataset {
	t.Helper()
	src := domain.Sources{
		Observations: []domain.Observation{
			{Country: "Norway", Date: day(1950, 1), Temperature: -6, Uncertainty: 0.5, HasUncertainty: true},
			{Country: "Norway", Date: day(1963, 1), Temperature: 1, Uncertainty: 0.4, HasUncertainty: true},
			{Country: "Norway", Date: day(2013, 1), Temperature: 2.5, Uncertainty: 0.2, HasUncertainty: true},
			{Country: "Kenya", Date: day(1950, 1), Temperature: 24, Uncertainty: 0.9, HasUncertainty: true},
			{Country: "Kenya", Date: day(1963, 1), Temperature: 24.5},
			{Country: "Kenya", Date: day(2013, 1), Temperature: 25, Uncertainty: 0.3, HasUncertainty: true},
		},
		Continents: []domain.ContinentEntry{
			{Country: "Norway", Continent: "Europe"},
			{Country: "Kenya", Continent: "Africa"},
		},
		Countries: []domain.CountryMetadata{
			{Country: "Norway", Code: "NOR", Lon: 8.47, Lat: 60.47},
			{Country: "Kenya", Code: "KEN", Lon: 37.9, Lat: 0.02},
		},
	}
	ds, err := domain.Build(src, domain.DefaultReferenceYears)
	require.NoError(t, err)
	return ds
}

type fixture struct {
	srv     *httpadapter.Server
	metrics *observability.Metrics
}

func newFixture(ds *domain.Dataset, readyErr error) fixture {
	metrics := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer(
		httpadapter.Options{Addr: ":0", DefaultYear: 1950},
		staticDataset{ds: ds},
		&mockReadiness{err: readyErr},
		metrics,
		slog.Default(),
	)
	return fixture{srv: srv, metrics: metrics}
}

func newTestServer(readyErr error) *httpadapter.Server {
	return newFixture(nil, readyErr).srv
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestYearEndpoint(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/years/1950")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Year   int    `json:"year"`
		Label  string `json:"label"`
		Notice string `json:"notice"`
		Points []struct {
			Country     string  `json:"country"`
			Continent   string  `json:"continent"`
			Temperature float64 `json:"temperature"`
		} `json:"points"`
		SVG string `json:"svg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1950, body.Year)
	assert.Equal(t, "1950", body.Label)
	assert.Empty(t, body.Notice)
	require.Len(t, body.Points, 2)
	assert.Equal(t, "Kenya", body.Points[0].Country)
	assert.Equal(t, "Africa", body.Points[0].Continent)
	assert.Equal(t, "Norway", body.Points[1].Country)
	assert.True(t, strings.HasPrefix(body.SVG, "<svg"))

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.YearRequests.WithLabelValues("ok")), 0)
}

func TestYearEndpoint_OutOfRange(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/years/2050")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2050", body["label"])
	assert.Contains(t, body["notice"], "outside the observed range 1950-2013")
	assert.Empty(t, body["points"])
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.YearRequests.WithLabelValues("out_of_range")), 0)
}

func TestYearEndpoint_GapYear(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/years/1980")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no observations recorded for 1980")
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.YearRequests.WithLabelValues("empty")), 0)
}

func TestYearEndpoint_InvalidYear(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/years/nineteen")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "year must be an integer")
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.YearRequests.WithLabelValues("invalid")), 0)
}

func TestYearEndpoint_NotLoaded(t *testing.T) {
	rec := get(newTestServer(nil), "/api/years/1950")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChartEndpoint(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/years/2013/chart.svg")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))
}

func TestDeltasEndpoint(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/deltas")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		BaseYear int `json:"base_year"`
		LateYear int `json:"late_year"`
		Deltas   []struct {
			Country string  `json:"country"`
			Change  float64 `json:"change"`
		} `json:"deltas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1963, body.BaseYear)
	assert.Equal(t, 2013, body.LateYear)
	require.Len(t, body.Deltas, 2)
	assert.Equal(t, "Kenya", body.Deltas[0].Country)
	assert.InDelta(t, 0.5, body.Deltas[0].Change, 1e-9)
	assert.Equal(t, "Norway", body.Deltas[1].Country)
	assert.InDelta(t, 1.5, body.Deltas[1].Change, 1e-9)
}

func TestDeltasCSVEndpoint(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/deltas.csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Kenya")
	assert.Contains(t, lines[2], "Norway")
}

func TestReportEndpoint(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/api/report")

	require.Equal(t, http.StatusOK, rec.Code)

	var body domain.JoinReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 6, body.Observations)
	assert.Equal(t, 6, body.Enriched)
	assert.True(t, body.Clean())
}

func TestPage(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Global Temperatures</title>")
	assert.Contains(t, body, `id="year-label">1950<`)
	assert.Contains(t, body, `min="1950" max="2013" step="1" value="1950"`)
	assert.Contains(t, body, "<svg")
}

func TestPage_YearQuery(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/?year=2013")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="year-label">2013<`)
}

func TestPage_InvalidYearQuery(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/?year=abc")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	f := newFixture(testDataset(t), nil)
	rec := get(f.srv, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
