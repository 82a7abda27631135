package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"xlatorbot/pkg/bus"
	"xlatorbot/pkg/config"
	"xlatorbot/pkg/diag"
)

const shutdownTimeout = 5 * time.Second

// Response is the body of /healthz, /readyz and /status.
type Response struct {
	Status string `json:"status"`
	diag.Snapshot
}

// Server exposes liveness, readiness, the diagnostic snapshot and Prometheus metrics.
type Server struct {
	addr    string
	stats   *diag.Stats
	metrics http.Handler
	log     *slog.Logger
}

// New builds a server bound to cfg.Host:cfg.Port. metrics may be nil, in which
// case /metrics is not served.
func New(cfg config.StatusConfig, stats *diag.Stats, metrics *diag.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	var metricsHandler http.Handler
	if metrics != nil {
		metricsHandler = metrics.Handler()
	}

	return &Server{
		addr:    Address(cfg),
		stats:   stats,
		metrics: metricsHandler,
		log:     log.With("component", "status"),
	}
}

// Address renders the listen address for cfg, applying defaults.
func Address(cfg config.StatusConfig) string {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = config.DefaultStatusHost
	}

	port := cfg.Port
	if port <= 0 {
		port = config.DefaultStatusPort
	}

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Run serves until ctx is canceled. A bind failure is returned as an error.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("start status server: %w", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", listener.Addr().String())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve status: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.stats.State() != bus.StateConnected {
		s.respond(w, http.StatusServiceUnavailable, "not_ready")
		return
	}

	s.respond(w, http.StatusOK, "ready")
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "not_ready"
	if s.stats.State() == bus.StateConnected {
		status = "ready"
	}

	s.respond(w, http.StatusOK, status)
}

func (s *Server) respond(w http.ResponseWriter, statusCode int, status string) {
	payload := Response{Status: status, Snapshot: s.stats.Snapshot()}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}
