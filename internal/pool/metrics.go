package pool

import "github.com/prometheus/client_golang/prometheus"

var poolOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "dnsresolve_pool_ops_total", Help: "sync.Pool gets/puts by pool name and operation"},
	[]string{"pool", "op"},
)

func init() {
	prometheus.MustRegister(poolOps)
}
