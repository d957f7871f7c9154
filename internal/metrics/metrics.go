package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del ciclo de bundles y de la replicación de estado. Viven en un paquete
// propio para que lifecycle, replication y http las usen sin ciclos de import.

var (
	BundleChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bundle_checks_total",
		Help: "Chequeos de nueva versión de bundle por resultado (no_update, update, invalid, error)",
	}, []string{"result"})

	BundleCheckDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bundle_check_duration_ms",
		Help:    "Duración de un chequeo completo (carga, diff y validación) en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})

	BundleReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bundle_reloads_total",
		Help: "Intentos de aplicar un bundle por tipo (reload, restart) y resultado",
	}, []string{"kind", "result"})

	ReplicationBroadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replication_broadcast_total",
		Help: "Llamadas replicadas salientes por resultado (sent, dropped, skipped, error)",
	}, []string{"result"})

	ReplicationRemoteCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replication_remote_calls_total",
		Help: "Llamadas replicadas entrantes por resultado (applied, ignored, unknown, failed)",
	}, []string{"result"})

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})
)

// Register registra las métricas en reg (o el registerer por defecto si es nil).
// Registrar dos veces no es un error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		BundleChecks,
		BundleCheckDuration,
		BundleReloads,
		ReplicationBroadcasts,
		ReplicationRemoteCalls,
		HTTPRequests,
		HTTPRequestDuration,
		HTTPInflight,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
