package resolver

import "github.com/prometheus/client_golang/prometheus"

var (
	resolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dnsresolve_resolve_duration_seconds",
			Help:    "Wall-clock time of one top-level Resolve call",
			Buckets: prometheus.DefBuckets,
		},
	)
	resolveOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dnsresolve_resolve_outcomes_total", Help: "Resolve outcomes by kind"},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(resolveDuration, resolveOutcomes)
}

func recordOutcome(err error) {
	if err == nil {
		resolveOutcomes.WithLabelValues("success").Inc()
		return
	}
	if rerr, ok := err.(*ResolveError); ok {
		resolveOutcomes.WithLabelValues(string(rerr.Kind)).Inc()
		return
	}
	resolveOutcomes.WithLabelValues("transport_error").Inc()
}
