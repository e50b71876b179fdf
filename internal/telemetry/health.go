package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attestor-io/core/internal/logging"
)

// ComponentHealth tracks the health of one subsystem (engine, oracle,
// wire, storage).
type ComponentHealth struct {
	Name      string      `json:"name"`
	Healthy   bool        `json:"healthy"`
	LastCheck time.Time   `json:"last_check"`
	LastError string      `json:"last_error,omitempty"`
	Detail    interface{} `json:"detail,omitempty"`
}

// Status is the overall service health document served at /healthz.
type Status struct {
	Status     string                       `json:"status"` // healthy, degraded, unhealthy
	Version    string                       `json:"version"`
	Uptime     string                       `json:"uptime"`
	Components map[string]*ComponentHealth `json:"components"`
	Timestamp  time.Time                    `json:"timestamp"`
}

// HealthServer serves /healthz and /metrics over HTTP (spec §11 AMBIENT
// STACK "net/http health endpoints").
type HealthServer struct {
	logger  *logging.ComponentLogger
	port    int
	version string
	started time.Time
	server  *http.Server

	mu         sync.RWMutex
	components map[string]*ComponentHealth
}

// NewHealthServer creates a new health server.
func NewHealthServer(logger *logging.ComponentLogger, port int, version string) *HealthServer {
	return &HealthServer{
		logger:     logger,
		port:       port,
		version:    version,
		started:    time.Now(),
		components: make(map[string]*ComponentHealth),
	}
}

// RegisterComponent registers a component for health monitoring,
// initially unhealthy until the first UpdateComponentHealth call.
func (h *HealthServer) RegisterComponent(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = &ComponentHealth{Name: name, Healthy: false, LastCheck: time.Now()}
}

// UpdateComponentHealth updates a component's health status.
func (h *HealthServer) UpdateComponentHealth(name string, healthy bool, err error, detail interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.components[name]
	if !ok {
		c = &ComponentHealth{Name: name}
		h.components[name] = c
	}
	c.Healthy = healthy
	c.LastCheck = time.Now()
	c.Detail = detail
	if err != nil {
		c.LastError = err.Error()
	} else {
		c.LastError = ""
	}
}

func (h *HealthServer) snapshot() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	for _, c := range h.components {
		if !c.Healthy {
			status = "degraded"
			break
		}
	}
	components := make(map[string]*ComponentHealth, len(h.components))
	for k, v := range h.components {
		cp := *v
		components[k] = &cp
	}
	return Status{
		Status:     status,
		Version:    h.version,
		Uptime:     time.Since(h.started).String(),
		Components: components,
		Timestamp:  time.Now(),
	}
}

// Start launches the health/metrics HTTP server in a background
// goroutine. It does not block.
func (h *HealthServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := h.snapshot()
		w.Header().Set("Content-Type", "application/json")
		if snap.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	})
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", h.port),
		Handler: mux,
	}
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error().Err(err).Msg("health server stopped unexpectedly")
		}
	}()
	h.logger.Info().Int("port", h.port).Msg("health/metrics server listening")
}

// Stop gracefully shuts down the health server.
func (h *HealthServer) Stop(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}
