package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnsresolve/internal/nsiter"
	"github.com/dnsscience/dnsresolve/internal/transport"
	"github.com/dnsscience/dnsresolve/internal/wire"
)

// fakeDispatcher simulates a two-level delegation: the root hint
// refers to a "com" nameserver, which answers authoritatively for
// anything under example.com.
type fakeDispatcher struct {
	rootAddr, comAddr net.IP
}

func (f *fakeDispatcher) Query(ctx context.Context, target transport.Target, query *wire.Message, opts transport.Options) (*wire.Message, error) {
	q := query.Question[0]
	resp := &wire.Message{
		Header:   wire.Header{ID: query.Header.ID, QR: true, Rcode: 0},
		Question: query.Question,
	}

	switch {
	case target.Addr.Equal(f.rootAddr):
		ns := wire.MustParseName("ns1.com.")
		resp.Authority = []wire.RR{{
			Header: wire.RRHeader{Name: wire.MustParseName("com."), Type: wire.TypeNS, TTL: 3600},
			Rdata:  wire.NS{Ns: ns},
		}}
		resp.Additional = []wire.RR{{
			Header: wire.RRHeader{Name: ns, Type: wire.TypeA, TTL: 3600},
			Rdata:  wire.A{IP: f.comAddr},
		}}
		return resp, nil
	case target.Addr.Equal(f.comAddr):
		resp.Answer = []wire.RR{{
			Header: wire.RRHeader{Name: q.Name, Type: wire.TypeA, Class: wire.ClassINET, TTL: 300},
			Rdata:  wire.A{IP: net.IPv4(192, 0, 2, 10).To4()},
		}}
		return resp, nil
	}
	return nil, transport.ErrRetryable
}

func TestResolveFollowsReferralToAnswer(t *testing.T) {
	root := net.IPv4(198, 41, 0, 4).To4()
	comNS := net.IPv4(192, 5, 6, 30).To4()

	r := New(&fakeDispatcher{rootAddr: root, comAddr: comNS}, []nsiter.Server{
		{Name: wire.MustParseName("a.root-servers.net."), Addr: root, Resolved: true},
	})
	r.QueryTimeout = time.Second

	resp, err := r.Resolve(context.Background(), wire.Question{
		Name: wire.MustParseName("example.com."), Type: wire.TypeA, Class: wire.ClassINET,
	}, Options{})

	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
	a, ok := resp.Answer[0].Rdata.(wire.A)
	require.True(t, ok)
	require.True(t, a.IP.Equal(net.IPv4(192, 0, 2, 10)))
}

func TestSubstituteDNAME(t *testing.T) {
	qname := wire.MustParseName("www.old.example.com.")
	owner := wire.MustParseName("old.example.com.")
	target := wire.MustParseName("new.example.com.")

	got, err := SubstituteDNAME(qname, owner, target)
	require.NoError(t, err)
	require.Equal(t, "www.new.example.com.", got.String())

	_, err = SubstituteDNAME(wire.MustParseName("other.com."), owner, target)
	require.Error(t, err)
}

func TestChaseTargetFollowsCNAME(t *testing.T) {
	qname := wire.MustParseName("www.example.com.")
	target := wire.MustParseName("app.example.com.")
	answer := []wire.RR{{
		Header: wire.RRHeader{Name: qname, Type: wire.TypeCNAME},
		Rdata:  wire.CNAME{Target: target},
	}}

	got, ok := chaseTarget(answer, qname)
	require.True(t, ok)
	require.True(t, got.EqualFold(target))
}

func TestReferralCutIgnoresAnswerBearingResponses(t *testing.T) {
	resp := &wire.Message{
		Answer: []wire.RR{{Header: wire.RRHeader{Type: wire.TypeA}}},
	}
	_, ok := referralCut(resp, wire.Name{})
	require.False(t, ok)
}
