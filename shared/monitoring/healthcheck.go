package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
)

// SnapshotFunc returns the latest value to expose on /assessment, or nil
type SnapshotFunc func() any

type HealthServer struct {
	monitor  *Monitor
	port     string
	snapshot SnapshotFunc
	server   *http.Server
}

func NewHealthServer(monitor *Monitor, port string, snapshot SnapshotFunc) *HealthServer {
	if port == "" {
		port = "8080"
	}
	return &HealthServer{
		monitor:  monitor,
		port:     port,
		snapshot: snapshot,
	}
}

// Handler builds the router; exposed for tests
func (h *HealthServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", h.healthHandler)
	r.Get("/status", h.statusHandler)
	r.Get("/assessment", h.assessmentHandler)
	return r
}

// Start serves on localhost in the background
func (h *HealthServer) Start() {
	h.server = &http.Server{
		Addr:              "127.0.0.1:" + h.port,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Health check server starting on port %s", h.port)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Health server error: %v", err)
		}
	}()
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", h.monitor.GetStatusSummary())
}

func (h *HealthServer) assessmentHandler(w http.ResponseWriter, r *http.Request) {
	var v any
	if h.snapshot != nil {
		v = h.snapshot()
	}
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: Failed to encode assessment: %v", err)
	}
}
