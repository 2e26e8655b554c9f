package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits   = prometheus.NewCounter(prometheus.CounterOpts{Name: "dnsresolve_cache_hits_total", Help: "Cache lookups that returned a usable entry"})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "dnsresolve_cache_misses_total", Help: "Cache lookups that found nothing usable"})
	cacheEvicts = prometheus.NewCounter(prometheus.CounterOpts{Name: "dnsresolve_cache_evictions_total", Help: "Entries evicted to make room for a new one"})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheEvicts)
}
