package service

import (
	"sync"
	"time"
)

const (
	backendUnknown = "unknown"
	backendUp      = "up"
	backendDown    = "down"
)

// healthReport is the /mcp/health body.
type healthReport struct {
	Status    string     `json:"status"`
	Backend   string     `json:"backend"`
	Tools     int        `json:"tools"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// backendHealth holds the outcome of the latest backend probe.
type backendHealth struct {
	mu        sync.RWMutex
	state     string
	checkedAt time.Time
	lastErr   string
}

func newBackendHealth() *backendHealth {
	return &backendHealth{state: backendUnknown}
}

func (h *backendHealth) record(err error, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkedAt = at
	if err != nil {
		h.state = backendDown
		h.lastErr = err.Error()
		return
	}
	h.state = backendUp
	h.lastErr = ""
}

func (h *backendHealth) report(tools int) healthReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	report := healthReport{
		Status:  "ok",
		Backend: h.state,
		Tools:   tools,
		Error:   h.lastErr,
	}
	if h.state == backendDown {
		report.Status = "degraded"
	}
	if !h.checkedAt.IsZero() {
		checkedAt := h.checkedAt
		report.CheckedAt = &checkedAt
	}
	return report
}
