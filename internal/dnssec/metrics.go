package dnssec

import "github.com/prometheus/client_golang/prometheus"

var validationOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "dnsresolve_dnssec_validation_outcomes_total", Help: "ValidateChain outcomes by trust state"},
	[]string{"state"},
)

func init() {
	prometheus.MustRegister(validationOutcomes)
}
