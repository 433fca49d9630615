package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Query metrics
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_queries_total",
			Help: "Total blocked-state queries evaluated",
		},
		[]string{"result", "reason"},
	)

	// Tracking metrics
	FocusChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitewarden_focus_changes_total",
			Help: "Total focus-change events processed",
		},
	)

	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitewarden_ticks_total",
			Help: "Total reconciliation ticks processed",
		},
	)

	SecondsCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_seconds_credited_total",
			Help: "Active seconds credited to domain usage",
		},
		[]string{"trigger"},
	)

	SecondsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitewarden_seconds_dropped_total",
			Help: "Elapsed seconds beyond the flush cap, discarded as suspension time",
		},
	)

	WindowResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitewarden_window_resets_total",
			Help: "Per-domain usage window resets applied",
		},
	)

	LockedInExpirations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitewarden_locked_in_expirations_total",
			Help: "Locked-in sessions deactivated on expiry",
		},
	)

	// Storage metrics
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_store_errors_total",
			Help: "Storage operation failures, by operation",
		},
		[]string{"op"},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitewarden_flush_duration_seconds",
			Help:    "Duration of read-flush-write cycles",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		QueriesTotal,
		FocusChangesTotal,
		TicksTotal,
		SecondsCredited,
		SecondsDropped,
		WindowResets,
		LockedInExpirations,
		StoreErrors,
		FlushDuration,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
