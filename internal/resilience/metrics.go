package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker collectors, labelled by the dependency the breaker guards
// (the store API in practice).
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pos",
		Subsystem: "upstream",
		Name:      "breaker_state",
		Help:      "Breaker position per upstream: 0 closed, 1 open, 2 half-open.",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "upstream",
		Name:      "breaker_transitions_total",
		Help:      "Breaker state changes per upstream.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: "upstream",
		Name:      "breaker_opened_total",
		Help:      "Times the breaker tripped open; each one fails billing lookups fast.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
