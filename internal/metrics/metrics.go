package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Admission metrics
	AdmissionChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestquota_admission_checks_total",
			Help: "Guest admission checks by result",
		},
		[]string{"result"},
	)

	MessagesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guestquota_messages_recorded_total",
			Help: "Guest messages recorded against the quota",
		},
	)

	UsageCleared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guestquota_usage_cleared_total",
			Help: "Guest usage records cleared",
		},
	)

	// Storage metrics. Failures never reach callers, so this is the only
	// place they show up besides the logs.
	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestquota_storage_errors_total",
			Help: "Storage failures absorbed by the quota tracker",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		AdmissionChecks,
		MessagesRecorded,
		UsageCleared,
		StorageErrors,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
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

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
