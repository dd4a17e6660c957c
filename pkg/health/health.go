// Package health exposes liveness and readiness probes for the API server.
//
// Probes are re-evaluated on a fixed interval by a single scheduler
// goroutine. A probe flips to unhealthy only after failing consecutively a
// few times, which keeps transient database hiccups from bouncing the pod.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Probe reports nil when the checked component is healthy.
type Probe func(ctx context.Context) error

// failAfter is how many consecutive failures mark a probe unhealthy.
const failAfter = 3

type kind int

const (
	liveness kind = iota
	readiness
)

type probeState struct {
	name    string
	kind    kind
	timeout time.Duration
	probe   Probe

	fails   int
	healthy bool
	lastErr error
}

// Health tracks registered probes and a manual ready flag.
type Health struct {
	mu     sync.RWMutex
	probes []*probeState
	ready  bool
	cancel context.CancelFunc
}

// New returns a Health in the not-ready state. Call SetReady(true) once
// startup finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessProbe registers a probe consulted by the /livez endpoint.
func (h *Health) AddLivenessProbe(name string, timeout time.Duration, p Probe) {
	h.add(name, liveness, timeout, p)
}

// AddReadinessProbe registers a probe consulted by the /readyz endpoint.
func (h *Health) AddReadinessProbe(name string, timeout time.Duration, p Probe) {
	h.add(name, readiness, timeout, p)
}

func (h *Health) add(name string, k kind, timeout time.Duration, p Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, &probeState{
		name:    name,
		kind:    k,
		timeout: timeout,
		probe:   p,
		healthy: true,
	})
}

// Start launches the scheduler goroutine. Probes run once immediately and
// then every interval until Stop is called or ctx is cancelled.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		h.runAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.runAll(ctx)
			}
		}
	}()
}

// Stop cancels the scheduler. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual ready flag. Set false during graceful shutdown
// so the load balancer drains traffic before the listener closes.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// IsReady reports whether the service was marked ready and every readiness
// probe is passing.
func (h *Health) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.ready {
		return false
	}
	for _, p := range h.probes {
		if p.kind == readiness && !p.healthy {
			return false
		}
	}
	return true
}

func (h *Health) runAll(ctx context.Context) {
	h.mu.RLock()
	probes := make([]*probeState, len(h.probes))
	copy(probes, h.probes)
	h.mu.RUnlock()

	for _, p := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.probe(probeCtx)
		cancel()

		h.mu.Lock()
		p.lastErr = err
		if err != nil {
			p.fails++
			if p.fails >= failAfter {
				p.healthy = false
			}
		} else {
			p.fails = 0
			p.healthy = true
		}
		h.mu.Unlock()
	}
}

func (h *Health) failures(k kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range h.probes {
		if p.kind != k || p.healthy {
			continue
		}
		msg := "probe is unhealthy"
		if p.lastErr != nil {
			msg = p.lastErr.Error()
		}
		out[p.name] = msg
	}
	return out
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the /livez probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(liveness))
}

// ReadyEndpoint serves the /readyz probe. The manual ready flag is reported
// as a pseudo-check so drains are visible in the response body.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(readiness)

	h.mu.RLock()
	ready := h.ready
	h.mu.RUnlock()
	if !ready {
		failures["_ready"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
