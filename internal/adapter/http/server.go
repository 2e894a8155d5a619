package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/climate-explorer/internal/adapter/csvfile"
	"github.com/couchcryptid/climate-explorer/internal/domain"
	"github.com/couchcryptid/climate-explorer/internal/observability"
	"github.com/couchcryptid/climate-explorer/internal/presenter"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// DatasetProvider returns the built dataset, or nil while it is still loading.
type DatasetProvider interface {
	Dataset() *domain.Dataset
}

// Options configures the routes served by NewServer.
type Options struct {
	Addr        string
	DefaultYear int
}

// Server exposes the explorer page, its JSON and SVG endpoints, and the
// health, readiness, and metrics routes.
type Server struct {
	httpServer  *http.Server
	data        DatasetProvider
	defaultYear int
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewServer creates an HTTP server with the explorer routes plus /healthz,
// /readyz, and /metrics.
func NewServer(opts Options, data DatasetProvider, ready ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		data:        data,
		defaultYear: opts.DefaultYear,
		metrics:     metrics,
		logger:      logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/years/{year}", s.handleYear)
	mux.HandleFunc("GET /api/years/{year}/chart.svg", s.handleChart)
	mux.HandleFunc("GET /api/deltas", s.handleDeltas)
	mux.HandleFunc("GET /api/deltas.csv", s.handleDeltasCSV)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// yearResponse is the payload of /api/years/{year}.
type yearResponse struct {
	Year   int               `json:"year"`
	Label  string            `json:"label"`
	Notice string            `json:"notice,omitempty"`
	Points []presenter.Point `json:"points"`
	SVG    string            `json:"svg"`
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	v, svg, ok := s.present(w, r.PathValue("year"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, yearResponse{
		Year:   v.Year,
		Label:  v.Label,
		Notice: v.Notice,
		Points: v.Points,
		SVG:    string(svg),
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	_, svg, ok := s.present(w, r.PathValue("year"))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(svg) //nolint:errcheck // client went away
}

// present parses the year, builds its view and renders it. On failure it has
// already written the error response.
func (s *Server) present(w http.ResponseWriter, raw string) (presenter.View, []byte, bool) {
	ds := s.dataset(w)
	if ds == nil {
		return presenter.View{}, nil, false
	}

	year, err := strconv.Atoi(raw)
	if err != nil {
		s.metrics.YearRequests.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "year must be an integer: "+strconv.Quote(raw))
		return presenter.View{}, nil, false
	}

	start := time.Now()
	v := presenter.Present(year, ds)
	svg, err := presenter.RenderSVG(v)
	if err != nil {
		s.logger.Error("render chart failed", "year", year, "error", err)
		writeError(w, http.StatusInternalServerError, "render chart failed")
		return presenter.View{}, nil, false
	}
	s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	s.metrics.YearRequests.WithLabelValues(outcome(year, ds, v)).Inc()
	return v, svg, true
}

func outcome(year int, ds *domain.Dataset, v presenter.View) string {
	var rangeErr *presenter.YearRangeError
	switch err := presenter.CheckYear(year, ds); {
	case errors.As(err, &rangeErr):
		return "out_of_range"
	case v.Empty():
		return "empty"
	default:
		return "ok"
	}
}

func (s *Server) handleDeltas(w http.ResponseWriter, _ *http.Request) {
	ds := s.dataset(w)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"base_year": ds.Years.Base,
		"late_year": ds.Years.Late,
		"built_at":  ds.BuiltAt,
		"deltas":    ds.Deltas,
	})
}

func (s *Server) handleDeltasCSV(w http.ResponseWriter, _ *http.Request) {
	ds := s.dataset(w)
	if ds == nil {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvfile.DeltasFile+`"`)
	if err := csvfile.WriteDeltas(w, ds.Deltas); err != nil {
		s.logger.Error("write deltas csv failed", "error", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	ds := s.dataset(w)
	if ds == nil {
		return
	}
	writeJSON(w, http.StatusOK, ds.Report)
}

// dataset returns the built dataset or writes 503 when it is not ready yet.
func (s *Server) dataset(w http.ResponseWriter) *domain.Dataset {
	ds := s.data.Dataset()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "dataset is still loading")
	}
	return ds
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
