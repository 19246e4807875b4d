// Package health exposes a small JSON status endpoint for process monitoring.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"threatscout/internal/logging"
)

// Status is the mutable slice of process state the endpoint reports.
type Status struct {
	mutex       sync.RWMutex
	startTime   time.Time
	version     string
	newsSources int
	vulnSources int
	lastDigest  time.Time
}

// NewStatus creates a status tracker.
func NewStatus(version string, newsSources, vulnSources int) *Status {
	return &Status{
		startTime:   time.Now(),
		version:     version,
		newsSources: newsSources,
		vulnSources: vulnSources,
	}
}

// RecordDigest notes a completed digest run.
func (s *Status) RecordDigest(at time.Time) {
	s.mutex.Lock()
	s.lastDigest = at
	s.mutex.Unlock()
}

type response struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	NewsSources int    `json:"newsSources"`
	VulnSources int    `json:"vulnSources"`
	LastDigest  string `json:"lastDigest,omitempty"`
}

func (s *Status) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.mutex.RLock()
	resp := response{
		Status:      "ok",
		Version:     s.version,
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
		NewsSources: s.newsSources,
		VulnSources: s.vulnSources,
	}
	if !s.lastDigest.IsZero() {
		resp.LastDigest = s.lastDigest.UTC().Format(time.RFC3339)
	}
	s.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Errorf("health: failed to write response: %v", err)
	}
}

// Router returns the HTTP router serving the health surface.
func (s *Status) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

// Serve runs the health server until the listener fails. Intended to be run
// in its own goroutine.
func (s *Status) Serve(addr string) {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	logging.Infof("health: serving on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Errorf("health: server error: %v", err)
	}
}
