package rrl

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQPSLimiterAllowsWithinBurst(t *testing.T) {
	l := NewQPSLimiter(QPSConfig{QueriesPerSecond: 10, BurstSize: 5, CleanupInterval: time.Minute})
	ip := net.ParseIP("192.0.2.1")

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow(ip), "query %d should be within burst", i)
	}
	require.False(t, l.Allow(ip), "query beyond burst should be limited")
}

func TestQPSLimiterExemptNetBypassesLimit(t *testing.T) {
	l := NewQPSLimiter(QPSConfig{QueriesPerSecond: 1, BurstSize: 1, CleanupInterval: time.Minute})
	require.NoError(t, l.AddExempt("192.0.2.0/24"))

	ip := net.ParseIP("192.0.2.5")
	for i := 0; i < 20; i++ {
		require.True(t, l.Allow(ip))
	}
}

func TestQPSLimiterTracksDistinctClients(t *testing.T) {
	l := NewQPSLimiter(QPSConfig{QueriesPerSecond: 10, BurstSize: 1, CleanupInterval: time.Minute})
	require.True(t, l.Allow(net.ParseIP("192.0.2.1")))
	require.True(t, l.Allow(net.ParseIP("192.0.2.2")))
	require.Equal(t, 2, l.Stats().TrackedClients)
}
