// health.go - Component health checks for the registry host.

package server

import (
	"encoding/json"
	"net/http"
	"time"
)

type healthChecker struct {
	startTime time.Time
	checks    map[string]func() error
}

func newHealthChecker() *healthChecker {
	return &healthChecker{
		startTime: time.Now(),
		checks:    make(map[string]func() error),
	}
}

// register adds a named component check. Registration happens during server
// construction, before any request is served.
func (h *healthChecker) register(name string, check func() error) {
	h.checks[name] = check
}

type healthResponse struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components"`
}

func (h *healthChecker) handle(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Components: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
