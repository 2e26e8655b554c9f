package rrl

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// QPSLimiter enforces a flat per-client queries-per-second ceiling,
// independent of the response-shape-aware Limiter above: it exists to
// protect the resolver itself (worker pool, dispatcher fan-out) from a
// single noisy client, whereas Limiter protects downstream victims
// from being used as a reflection amplifier.
type QPSLimiter struct {
	mu              sync.RWMutex
	limitersByIP    map[string]*rate.Limiter
	queriesPerSec   rate.Limit
	burstSize       int
	cleanupInterval time.Duration
	lastCleanup     time.Time
	exemptNets      []*net.IPNet
}

// QPSConfig configures a QPSLimiter.
type QPSConfig struct {
	QueriesPerSecond float64
	BurstSize        int
	CleanupInterval  time.Duration
}

// DefaultQPSConfig returns sensible per-client defaults.
func DefaultQPSConfig() QPSConfig {
	return QPSConfig{
		QueriesPerSecond: 100,
		BurstSize:        200,
		CleanupInterval:  5 * time.Minute,
	}
}

// NewQPSLimiter constructs a QPSLimiter from cfg.
func NewQPSLimiter(cfg QPSConfig) *QPSLimiter {
	return &QPSLimiter{
		limitersByIP:    make(map[string]*rate.Limiter),
		queriesPerSec:   rate.Limit(cfg.QueriesPerSecond),
		burstSize:       cfg.BurstSize,
		cleanupInterval: cfg.CleanupInterval,
		lastCleanup:     time.Now(),
	}
}

// Allow reports whether a query from ip is within budget.
func (l *QPSLimiter) Allow(ip net.IP) bool {
	if l.isExempt(ip) {
		return true
	}

	ipStr := ip.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) > l.cleanupInterval {
		l.limitersByIP = make(map[string]*rate.Limiter)
		l.lastCleanup = time.Now()
	}

	limiter, ok := l.limitersByIP[ipStr]
	if !ok {
		limiter = rate.NewLimiter(l.queriesPerSec, l.burstSize)
		l.limitersByIP[ipStr] = limiter
	}
	return limiter.Allow()
}

// AddExempt exempts a CIDR or single IP from QPS limiting.
func (l *QPSLimiter) AddExempt(cidr string) error {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		ip := net.ParseIP(cidr)
		if ip == nil {
			return err
		}
		if ip.To4() != nil {
			ipnet = &net.IPNet{IP: ip, Mask: net.CIDRMask(32, 32)}
		} else {
			ipnet = &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exemptNets = append(l.exemptNets, ipnet)
	return nil
}

func (l *QPSLimiter) isExempt(ip net.IP) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, exempt := range l.exemptNets {
		if exempt.Contains(ip) {
			return true
		}
	}
	return false
}

// QPSStats reports tracked-client counters.
type QPSStats struct {
	TrackedClients int
	ExemptNets     int
}

// Stats returns current counters.
func (l *QPSLimiter) Stats() QPSStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return QPSStats{TrackedClients: len(l.limitersByIP), ExemptNets: len(l.exemptNets)}
}
