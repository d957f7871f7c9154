// Package router arma el handler HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/http/controllers/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/http/controllers/health"
	"github.com/dropDatabas3/bundlekeeper/internal/http/errors"
	mw "github.com/dropDatabas3/bundlekeeper/internal/http/middlewares"
	"github.com/dropDatabas3/bundlekeeper/internal/replication"
)

// Deps son las dependencias del router.
type Deps struct {
	NodeID string
	Bundle bundle.Service
	// Validator atiende /v1/bundle/validate y /v1/bundle/validations. nil = 503.
	Validator bundle.Validator
	// Replication recibe llamadas replicadas de otras réplicas (transporte http).
	// nil = ruta no montada.
	Replication http.Handler
	// Gatherer para /metrics. nil = registry por defecto.
	Gatherer    prometheus.Gatherer
	ReadyChecks map[string]health.Check
	APIKey      string
	Logger      *zap.Logger
}

// New devuelve el handler con todas las rutas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(d.Logger),
		mw.WithRecover(),
		mw.WithMetrics(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	hc := health.NewController(d.NodeID, d.ReadyChecks)
	r.Get("/healthz", hc.Healthz)
	r.Get("/readyz", hc.Readyz)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// El transporte autentica cada llamada con su propio token.
	if d.Replication != nil {
		r.Handle(replication.HTTPPath, d.Replication)
	}

	if d.Bundle != nil {
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAPIKey(d.APIKey))
			bundle.NewController(d.Bundle, d.Validator).Register(r)
		})
	}
	return r
}
