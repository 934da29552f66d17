// Package metrics exposes Prometheus metrics of analysis runs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// Metrics holds the Prometheus collectors of the analyzer.
type Metrics struct {
	RunsTotal       prometheus.Counter
	DiscardedEvents prometheus.Counter
	ProductStatus   *prometheus.CounterVec // labels: status
	UnresolvedTotal prometheus.Counter
	RunDuration     prometheus.Histogram
	LastRun         *prometheus.GaugeVec // labels: account
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderband_runs_total",
			Help: "Total analysis runs completed",
		}),
		DiscardedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderband_discarded_events_total",
			Help: "Malformed order lines dropped during normalization",
		}),
		ProductStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderband_product_status_total",
			Help: "Analyzed products by outcome status",
		}, []string{"status"}),
		UnresolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderband_unresolved_prices_total",
			Help: "Products left without a unit price",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orderband_run_duration_seconds",
			Help:    "Wall time of one analysis run",
			Buckets: prometheus.DefBuckets,
		}),
		LastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orderband_last_run_timestamp_seconds",
			Help: "Unix time of the last finished run per account",
		}, []string{"account"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.DiscardedEvents,
		m.ProductStatus,
		m.UnresolvedTotal,
		m.RunDuration,
		m.LastRun,
	)

	return m
}

// ObserveRun records a finished report.
func (m *Metrics) ObserveRun(report *domain.AccountReport, elapsed time.Duration) {
	m.RunsTotal.Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	m.DiscardedEvents.Add(float64(report.Discarded))
	m.UnresolvedTotal.Add(float64(len(report.Unresolved)))
	for _, p := range report.Products {
		m.ProductStatus.WithLabelValues(string(p.Status)).Inc()
	}
	m.LastRun.WithLabelValues(report.AccountID).SetToCurrentTime()
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr   string
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates a metrics server for the collectors gathered by g.
func NewServer(addr string, g prometheus.Gatherer, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
