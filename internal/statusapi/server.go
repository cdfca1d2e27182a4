// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package statusapi exposes a minimal read-only HTTP surface: Prometheus
// metrics, a liveness probe, and a human-readable status snapshot. It
// never touches the data path.
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/scalpel/internal/bridge"
	"grimm.is/scalpel/internal/logging"
	"grimm.is/scalpel/internal/telemetry"
)

// Server is the bridge's status HTTP server: /metrics, /healthz,
// /status.
type Server struct {
	httpServer *http.Server
	log        *logging.Logger
	tel        *telemetry.Telemetry
	startedAt  time.Time
	runID      string
}

// New builds a Server bound to addr. registry is the Prometheus
// registry /metrics serves; tel is the live telemetry snapshot /healthz
// and /status read. runID identifies this process boot in /status, so
// an operator comparing logs across a restart can tell them apart.
func New(addr string, registry *prometheus.Registry, tel *telemetry.Telemetry, log *logging.Logger, runID string) *Server {
	s := &Server{log: log, tel: tel, startedAt: time.Now(), runID: runID}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	s.httpServer = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start launches the HTTP server in the background. It returns
// immediately; server errors are logged, not returned, since they
// surface after Start has already returned success.
func (s *Server) Start() {
	go func() {
		s.log.Info("status api listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status api server error", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler, for tests that want to
// exercise routes without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type healthResponse struct {
	Healthy bool   `json:"healthy"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	healthy := true
	for _, dir := range []telemetry.Direction{telemetry.DirectionA, telemetry.DirectionB} {
		hb := s.tel.Heartbeat(dir)
		if hb.IsZero() {
			continue // engine hasn't processed its first batch yet
		}
		if now.Sub(hb) > bridge.StallThreshold {
			healthy = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(healthResponse{Healthy: healthy, Uptime: now.Sub(s.startedAt).String()})
}

type statusResponse struct {
	RunID             string `json:"run_id"`
	Uptime            string `json:"uptime"`
	PacketsForwarded  uint64 `json:"packets_forwarded"`
	BytesForwarded    uint64 `json:"bytes_forwarded"`
	PacketsDropped    uint64 `json:"packets_dropped"`
	Probing           bool   `json:"probing"`
	InternalLimitMbps string `json:"internal_limit_mbps"`
	ISPLimitMbps      string `json:"isp_limit_mbps"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		RunID:             s.runID,
		Uptime:            time.Since(s.startedAt).String(),
		PacketsForwarded:  s.tel.PacketsForwarded(),
		BytesForwarded:    s.tel.BytesForwarded(),
		PacketsDropped:    s.tel.PacketsDropped(),
		Probing:           s.tel.IsProbing(),
		InternalLimitMbps: formatMbps(s.tel.InternalLimitMbps()),
		ISPLimitMbps:      formatMbps(s.tel.ISPLimitMbps()),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func formatMbps(v float64) string {
	if v == 0 {
		return "unmeasured"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
