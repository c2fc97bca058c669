package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrderServiceFallbackTotal counts cart loads served without the order service, by source.
	OrderServiceFallbackTotal *prometheus.CounterVec
	// CartSubmitTotal counts submit batches by result.
	CartSubmitTotal *prometheus.CounterVec
	// CartOrdersSubmittedTotal counts individual order submissions by result.
	CartOrdersSubmittedTotal *prometheus.CounterVec
	// CartMutationTotal counts cart mutations by operation and result.
	CartMutationTotal *prometheus.CounterVec
	// CartSubmitDuration records submit batch latency in milliseconds.
	CartSubmitDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers cart Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrderServiceFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_service_fallback_total",
			Help:      "Cart loads served from a fallback because the order service was unreachable.",
		}, []string{"source"})
		CartSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_submit_total",
			Help:      "Count of cart submit batches by result.",
		}, []string{"result"})
		CartOrdersSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_orders_submitted_total",
			Help:      "Count of individual order submissions by result.",
		}, []string{"result"})
		CartMutationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutation_total",
			Help:      "Count of cart mutations by operation and result.",
		}, []string{"op", "result"})
		CartSubmitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_submit_duration_ms",
			Help:      "Latency of cart submit batches in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})

		register(reg, &OrderServiceFallbackTotal)
		register(reg, &CartSubmitTotal)
		register(reg, &CartOrdersSubmittedTotal)
		register(reg, &CartMutationTotal)
		register(reg, &CartSubmitDuration)
	})
}

// RecordFallback increments the fallback counter when metrics are registered.
func RecordFallback(source string) {
	if OrderServiceFallbackTotal != nil {
		OrderServiceFallbackTotal.WithLabelValues(source).Inc()
	}
}

// RecordMutation increments the mutation counter when metrics are registered.
func RecordMutation(op string, err error) {
	if CartMutationTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	CartMutationTotal.WithLabelValues(op, result).Inc()
}

// RecordSubmit records one submit batch.
func RecordSubmit(result string, confirmed, failed int, millis float64) {
	if CartSubmitTotal != nil {
		CartSubmitTotal.WithLabelValues(result).Inc()
	}
	if CartOrdersSubmittedTotal != nil {
		CartOrdersSubmittedTotal.WithLabelValues("confirmed").Add(float64(confirmed))
		CartOrdersSubmittedTotal.WithLabelValues("failed").Add(float64(failed))
	}
	if CartSubmitDuration != nil {
		CartSubmitDuration.Observe(millis)
	}
}
