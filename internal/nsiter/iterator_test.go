package nsiter

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

func srv(name string, ip net.IP) Server {
	return Server{Name: wire.MustParseName(name), Addr: ip, Resolved: ip != nil}
}

func TestSelectNextBatchesResolvedServers(t *testing.T) {
	it := New([]Server{
		srv("ns1.example.com.", net.ParseIP("192.0.2.1")),
		srv("ns2.example.com.", net.ParseIP("192.0.2.2")),
		srv("ns3.example.com.", net.ParseIP("192.0.2.3")),
	}, false)

	sel := it.SelectNext()
	require.Nil(t, sel.Unresolved)
	require.Len(t, sel.Batch, 3)
	require.Equal(t, 3, it.index)
}

func TestSelectNextStopsAtUnresolved(t *testing.T) {
	// Bypass New's shuffle so the batch boundary is deterministic: an
	// unresolved candidate must never be silently skipped past resolved ones.
	it2 := &Iterator{
		servers: []Server{
			srv("ns1.example.com.", net.ParseIP("192.0.2.1")),
			srv("ns2.example.com.", nil),
			srv("ns3.example.com.", net.ParseIP("192.0.2.3")),
		},
		failures:     make(map[string]*failureState),
		serverNameOf: func(s Server) string { return s.Name.Canonical().String() },
	}

	sel := it2.SelectNext()
	require.Len(t, sel.Batch, 1)
	require.Nil(t, sel.Unresolved)
	require.Equal(t, 1, it2.index)

	sel2 := it2.SelectNext()
	require.NotNil(t, sel2.Unresolved)
	require.Equal(t, 1, it2.index) // did not advance past the unresolved candidate
}

func TestServerSuppressedAfterThreeFailures(t *testing.T) {
	it := &Iterator{
		servers: []Server{
			srv("ns1.example.com.", net.ParseIP("192.0.2.1")),
			srv("ns2.example.com.", net.ParseIP("192.0.2.2")),
		},
		failures:     make(map[string]*failureState),
		serverNameOf: func(s Server) string { return s.Name.Canonical().String() },
	}

	ns1 := it.servers[0]
	for i := 0; i < MaxFailuresPerServer; i++ {
		it.RecordTimeout(ns1)
	}

	require.True(t, it.suppressed(ns1))
	sel := it.SelectNext()
	require.Len(t, sel.Batch, 1)
	require.True(t, sel.Batch[0].Name.EqualFold(wire.MustParseName("ns2.example.com.")))
}

func TestHasMoreRespectsRetryBudget(t *testing.T) {
	it := &Iterator{
		servers:      []Server{srv("ns1.example.com.", net.ParseIP("192.0.2.1"))},
		failures:     make(map[string]*failureState),
		serverNameOf: func(s Server) string { return s.Name.Canonical().String() },
	}
	require.True(t, it.HasMore())

	ns1 := it.servers[0]
	for i := 0; i < MaxRetriesPerAuthority; i++ {
		it.RecordTimeout(ns1)
	}
	require.False(t, it.HasMore())
	require.Equal(t, MaxRetriesPerAuthority, it.Retries())
}

func TestRewindAndMoveNext(t *testing.T) {
	it := &Iterator{
		servers: []Server{
			srv("ns1.example.com.", net.ParseIP("192.0.2.1")),
			srv("ns2.example.com.", net.ParseIP("192.0.2.2")),
		},
		failures:     make(map[string]*failureState),
		serverNameOf: func(s Server) string { return s.Name.Canonical().String() },
	}
	it.SelectNext()
	require.Equal(t, 2, it.index)

	it.RewindToCurrent()
	require.Equal(t, 1, it.index)

	it.MoveNext()
	require.Equal(t, 2, it.index)
}

func TestPreferIPv6StableSort(t *testing.T) {
	v4a := srv("ns-v4a.example.com.", net.ParseIP("192.0.2.1"))
	v4b := srv("ns-v4b.example.com.", net.ParseIP("192.0.2.2"))
	v6 := srv("ns-v6.example.com.", net.ParseIP("2001:db8::1"))
	unresolved := srv("ns-unresolved.example.com.", nil)

	it := New([]Server{v4a, v4b, v6, unresolved}, true)
	// IPv6 endpoints must sort ahead of resolved IPv4 endpoints.
	v6Idx, v4aIdx := -1, -1
	for i, s := range it.servers {
		if s.Name.EqualFold(v6.Name) {
			v6Idx = i
		}
		if s.Name.EqualFold(v4a.Name) {
			v4aIdx = i
		}
	}
	require.Less(t, v6Idx, v4aIdx)
}

func TestNewTruncatesToMaxNSPerReferral(t *testing.T) {
	servers := make([]Server, MaxNSPerReferral+5)
	for i := range servers {
		servers[i] = srv("ns.example.com.", net.ParseIP("192.0.2.1"))
	}
	it := New(servers, false)
	require.Len(t, it.servers, MaxNSPerReferral)
}
