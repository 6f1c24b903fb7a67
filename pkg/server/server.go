package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lirany1/cikit/pkg/analytics"
	"github.com/lirany1/cikit/pkg/logger"
	"github.com/lirany1/cikit/pkg/models"
	"github.com/lirany1/cikit/pkg/report"
	"github.com/lirany1/cikit/pkg/storage"
	"github.com/lirany1/cikit/pkg/summarybar"
)

const (
	defaultRunsLimit = 20
	slowestSuites    = 5
)

// Config holds server configuration
type Config struct {
	Host       string
	Port       int
	ReportsDir string
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SummaryResponse is the body of GET /api/summary
type SummaryResponse struct {
	Summary      models.Summary          `json:"summary"`
	Distribution summarybar.Distribution `json:"distribution"`
	Failed       int                     `json:"failedSuites"`
	Suites       int                     `json:"suites"`
}

// Server serves a generated report with a small JSON API
type Server struct {
	config   *Config
	router   *mux.Router
	db       *storage.Database
	engine   *analytics.Engine
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewServer creates a new report server. db may be nil when history is
// disabled.
func NewServer(cfg *Config, db *storage.Database) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		config:   cfg,
		router:   mux.NewRouter(),
		db:       db,
		engine:   analytics.NewEngine(db),
		registry: reg,
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cikit",
				Name:      "http_requests_total",
				Help:      "Tracks the number of HTTP requests.",
			}, []string{"code", "method"},
		),
		latency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cikit",
				Name:      "http_request_duration_seconds",
				Help:      "Tracks the latencies for HTTP requests.",
			}, []string{"code", "method"},
		),
	}
	reg.MustRegister(newReportCollector(cfg.ReportsDir))
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server running at http://%s", s.config.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(s.metricsMiddleware)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)

	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.ReportsDir)))
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(s.requests,
		promhttp.InstrumentHandlerDuration(s.latency, next))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	full, err := readReport(s.config.ReportsDir)
	if err != nil {
		logger.Warnf("Failed to read report data: %v", err)
		writeError(w, http.StatusNotFound, "no report data")
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Summary:      full.Summary,
		Distribution: summarybar.Allocate(full.Summary, summarybar.DefaultSlots),
		Failed:       len(full.Failed),
		Suites:       len(full.AllSuites),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	insights, err := s.engine.Insights(r.Context(), limit, slowestSuites)
	if err != nil {
		logger.Errorf("Failed to load runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load runs")
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func readReport(dir string) (models.FullReport, error) {
	f, err := os.Open(filepath.Join(dir, report.DataFile))
	if err != nil {
		return models.FullReport{}, err
	}
	defer f.Close()
	return report.ReadJSON(f)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debugf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
