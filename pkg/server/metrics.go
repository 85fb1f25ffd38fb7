package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks server runtime statistics as Prometheus collectors.
// Each Server carries its own registry so tests can run servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	DisconnectsTotal  prometheus.Counter

	ActiveSessions  prometheus.Gauge
	AuthSuccessful  prometheus.Counter
	AuthFailed      prometheus.Counter
	CommandsHandled *prometheus.CounterVec // by verb
}

// NewMetrics creates the collector set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gobbs_connections_active",
			Help: "Current open client connections.",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gobbs_connections_total",
			Help: "Lifetime TCP connections accepted.",
		}),
		DisconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gobbs_disconnects_total",
			Help: "Total client disconnects (clean and unclean).",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gobbs_sessions_active",
			Help: "Currently authenticated sessions.",
		}),
		AuthSuccessful: factory.NewCounter(prometheus.CounterOpts{
			Name: "gobbs_auth_success_total",
			Help: "Successful LOGIN attempts.",
		}),
		AuthFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gobbs_auth_failed_total",
			Help: "Failed LOGIN attempts.",
		}),
		CommandsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gobbs_commands_total",
			Help: "Commands processed, by verb.",
		}, []string{"verb"}),
	}
}

// StartMetricsHTTP starts an HTTP server exposing /metrics and /healthz.
// It runs in the background and shuts down when the server context is
// cancelled. An empty bind address disables the endpoint.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}
