// Package health contiene el controller de health checks.
package health

import (
	"net/http"

	"github.com/dropDatabas3/bundlekeeper/internal/http/helpers"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

// Check reporta con un error un componente no listo.
type Check func() error

// Controller maneja /healthz y /readyz.
type Controller struct {
	nodeID string
	checks map[string]Check
}

// NewController crea el controller. checks se evalúan en cada /readyz.
func NewController(nodeID string, checks map[string]Check) *Controller {
	return &Controller{nodeID: nodeID, checks: checks}
}

type response struct {
	Status     string            `json:"status"`
	NodeID     string            `json:"nodeId,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// Healthz maneja GET /healthz (liveness).
func (c *Controller) Healthz(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, response{Status: "ok", NodeID: c.nodeID})
}

// Readyz maneja GET /readyz.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := response{Status: "ready", NodeID: c.nodeID, Components: map[string]string{}}
	for name, check := range c.checks {
		if err := check(); err != nil {
			resp.Status = "unavailable"
			resp.Components[name] = err.Error()
			continue
		}
		resp.Components[name] = "ok"
	}
	if resp.Status != "ready" {
		logger.From(r.Context()).Warn("readiness check failed", logger.Any("components", resp.Components))
		helpers.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
