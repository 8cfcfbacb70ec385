// Package statusapi is the minimal, unauthenticated HTTP surface an
// operator polls to see whether the executor daemon is alive and what
// it's been doing, the same gorilla/mux route-registration shape the
// pack's health checkers use.
package statusapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/stellarnova/limitorder/internal/executor"
)

// StatusProvider is the read surface the API needs from the executor
// daemon. Executor.Snapshot and Executor.Running satisfy it directly.
type StatusProvider interface {
	Snapshot() *executor.StatusSnapshot
	Running() bool
}

// Server serves /health and /executor/status.
type Server struct {
	provider   StatusProvider
	enabled    bool
	httpServer *http.Server
}

// New builds a Server bound to addr. enabled reflects whether the
// executor sweep loop is configured to run at all (ENABLE_EXECUTOR);
// the status API itself always runs regardless.
func New(addr string, provider StatusProvider, enabled bool) *Server {
	s := &Server{provider: provider, enabled: enabled}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/executor/status", s.handleExecutorStatus).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the underlying HTTP handler, for tests that want to
// drive requests without binding a real port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts serving and blocks until the listener fails or
// Shutdown is called, in which case it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", s.httpServer.Addr).Msg("status API listening")
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"service": "limitorder-executor",
		"executor": map[string]interface{}{
			"enabled": s.enabled,
			"running": s.provider.Running(),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecutorStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.provider.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}

	resp := map[string]interface{}{
		"running":           snap.Running,
		"operator_address":  snap.OperatorAddress,
		"check_interval_ms": snap.CheckIntervalMs,
		"cooldown_ms":       snap.CooldownMs,
		"attempted_count":   snap.AttemptedCount,
		"contract_address":  snap.ContractAddress,
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("status API: encode response")
	}
}
