package handlers

import (
	"net/http"
	"time"

	"github.com/Festuskumi/TCtrl-backend/internal/platform/httpx"
	"github.com/Festuskumi/TCtrl-backend/internal/services"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	health services.HealthService
	clock  func() time.Time
}

// HealthOption customises HealthHandlers construction.
type HealthOption func(*HealthHandlers)

// WithHealthClock injects a custom clock, primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs health probe handlers. A nil health service
// leaves /readyz reporting ready with no component detail.
func NewHealthHandlers(health services.HealthService, opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		health: health,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Healthz answers liveness: the process is up.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.clock().UTC().Format(time.RFC3339),
	})
}

// Readyz answers readiness by probing downstream dependencies.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	status, err := h.health.Check(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("health_check_failed", err.Error(), http.StatusServiceUnavailable))
		return
	}

	components := make(map[string]any, len(status.Components))
	for name, component := range status.Components {
		components[name] = map[string]any{
			"healthy":   component.Healthy,
			"detail":    component.Detail,
			"latencyMs": component.Latency.Milliseconds(),
		}
	}

	payload := map[string]any{
		"status":     "ok",
		"checkedAt":  status.CheckedAt.UTC().Format(time.RFC3339),
		"components": components,
	}
	code := http.StatusOK
	if !status.Healthy {
		payload["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, payload)
}
