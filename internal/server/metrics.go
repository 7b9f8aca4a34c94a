// metrics.go - Prometheus metrics for the registry host.

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests    *prometheus.CounterVec
	rotations   prometheus.Counter
	actions     prometheus.Counter
	rateLimited prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registryd_http_requests_total",
			Help: "HTTP requests served, by method and matched route pattern.",
		}, []string{"method", "route"}),
		rotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "registryd_root_rotations_total",
			Help: "Accepted root transitions, including initialization.",
		}),
		actions: factory.NewCounter(prometheus.CounterOpts{
			Name: "registryd_actions_total",
			Help: "Action submissions accepted.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "registryd_rate_limited_total",
			Help: "Requests rejected by the per-caller rate limiter.",
		}),
	}
}
