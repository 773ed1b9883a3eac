// internal/dispatcher/metrics.go
package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sunny_payments_total",
		Help: "Payments processed, by method and final dispatch status.",
	}, []string{"method", "status"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sunny_provider_call_duration_seconds",
		Help:    "Provider call latency by rail.",
		Buckets: prometheus.DefBuckets,
	}, []string{"rail"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sunny_provider_callbacks_total",
		Help: "Inbound provider callbacks, by provider and verification outcome.",
	}, []string{"provider", "outcome"})

	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sunny_settlements_total",
		Help: "Instant settlements executed, by channel and status.",
	}, []string{"channel", "status"})
)
