package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker tracks progress of the runs of one process and serves it as
// JSON next to the metrics endpoint.
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	active    map[string]time.Time
	completed int
	failed    int
	errors    []string
}

// HealthStatus is the JSON body of the health endpoint
type HealthStatus struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	ActiveRuns []string  `json:"active_runs"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Uptime     string    `json:"uptime"`
	Errors     []string  `json:"errors,omitempty"`
}

// maxErrors bounds the error history kept for the endpoint
const maxErrors = 20

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		active:    make(map[string]time.Time),
		errors:    make([]string, 0),
	}
}

// RunStarted marks a run as in progress
func (h *HealthChecker) RunStarted(name string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active[name] = time.Now()
}

// RunFinished moves a run from active to completed or failed
func (h *HealthChecker) RunFinished(name string, err error) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.active, name)
	if err != nil {
		h.failed++
		h.errors = append(h.errors, name+": "+err.Error())
		if len(h.errors) > maxErrors {
			h.errors = h.errors[len(h.errors)-maxErrors:]
		}
		return
	}
	h.completed++
}

// Snapshot returns the current status
func (h *HealthChecker) Snapshot() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if h.failed > 0 {
		status = "degraded"
	}

	active := make([]string, 0, len(h.active))
	for name := range h.active {
		active = append(active, name)
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		ActiveRuns: active,
		Completed:  h.completed,
		Failed:     h.failed,
		Uptime:     time.Since(h.startTime).String(),
		Errors:     errs,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
