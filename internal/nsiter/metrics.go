package nsiter

import "github.com/prometheus/client_golang/prometheus"

var (
	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dnsresolve_nsiter_failures_total", Help: "Per-server failures recorded by the iterator, by kind"},
		[]string{"kind"},
	)
	suppressionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dnsresolve_nsiter_suppressions_total", Help: "Servers suppressed after crossing MaxFailuresPerServer"},
	)
)

func init() {
	prometheus.MustRegister(failuresTotal, suppressionsTotal)
}
