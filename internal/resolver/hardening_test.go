package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

func TestApply0x20Encoding(t *testing.T) {
	name := wire.MustParseName("www.example.com.")
	for i := 0; i < 10; i++ {
		encoded := Apply0x20Encoding(name)
		require.Len(t, encoded.Labels, len(name.Labels))
		require.True(t, name.EqualFold(encoded), "0x20 encoded name must remain DNS-equal to the original")
	}
}

func TestValidate0x20Response(t *testing.T) {
	q := wire.Name{Labels: []string{"WwW", "ExAmPlE", "cOm"}}
	require.True(t, Validate0x20Response(q, q))

	flipped := wire.Name{Labels: []string{"www", "example", "com"}}
	require.False(t, Validate0x20Response(q, flipped))
}

func TestScrubResponse(t *testing.T) {
	zone := wire.MustParseName("example.com.")
	msg := &wire.Message{
		Authority: []wire.RR{
			{Header: wire.RRHeader{Name: zone, Type: wire.TypeNS}, Rdata: wire.NS{Ns: wire.MustParseName("ns1.example.com.")}},
			{Header: wire.RRHeader{Name: wire.MustParseName("attacker.com."), Type: wire.TypeNS}, Rdata: wire.NS{Ns: wire.MustParseName("ns1.attacker.com.")}},
		},
		Additional: []wire.RR{
			{Header: wire.RRHeader{Name: wire.MustParseName("ns1.example.com."), Type: wire.TypeA}, Rdata: wire.A{IP: []byte{192, 0, 2, 1}}},
			{Header: wire.RRHeader{Name: wire.MustParseName("ns1.attacker.com."), Type: wire.TypeA}, Rdata: wire.A{IP: []byte{192, 0, 2, 53}}},
		},
	}

	ScrubResponse(msg, zone)

	require.Len(t, msg.Authority, 1)
	require.True(t, msg.Authority[0].Header.Name.EqualFold(zone))
	require.Len(t, msg.Additional, 1)
	require.True(t, msg.Additional[0].Header.Name.EqualFold(wire.MustParseName("ns1.example.com.")))
}

func TestApplyQNAMEMinimization(t *testing.T) {
	tests := []struct {
		fullName    string
		currentZone string
		expected    string
	}{
		{"www.example.com.", "com.", "example.com."},
		{"www.example.com.", "example.com.", "www.example.com."},
		{"a.b.c.example.com.", "com.", "example.com."},
		{"a.b.c.example.com.", "example.com.", "c.example.com."},
		{"example.com.", "com.", "example.com."},
		{"example.com.", ".", "com."},
	}

	for _, tt := range tests {
		got := ApplyQNAMEMinimization(wire.MustParseName(tt.fullName), wire.MustParseName(tt.currentZone))
		require.Equal(t, tt.expected, got.String(), "QNAME minimization failed for %s at zone %s", tt.fullName, tt.currentZone)
	}
}

func TestIsInBailiwick(t *testing.T) {
	zone := wire.MustParseName("example.com.")
	require.True(t, IsInBailiwick(wire.MustParseName("www.example.com."), zone))
	require.True(t, IsInBailiwick(zone, zone))
	require.True(t, IsInBailiwick(wire.MustParseName("a.b.c.example.com."), zone))
	require.False(t, IsInBailiwick(zone, wire.MustParseName("www.example.com.")))
	require.False(t, IsInBailiwick(wire.MustParseName("attacker.com."), zone))
}

func TestHardenGlue(t *testing.T) {
	zone := wire.MustParseName("example.com.")
	nsNames := []wire.Name{wire.MustParseName("ns1.example.com.")}

	glue := []wire.RR{
		{Header: wire.RRHeader{Name: wire.MustParseName("ns1.example.com."), Type: wire.TypeA}, Rdata: wire.A{IP: []byte{192, 0, 2, 1}}},
		{Header: wire.RRHeader{Name: wire.MustParseName("attacker.example.com."), Type: wire.TypeA}, Rdata: wire.A{IP: []byte{192, 0, 2, 53}}},
	}

	hardened := HardenGlue(glue, zone, nsNames)
	require.Len(t, hardened, 1)
	require.True(t, hardened[0].Header.Name.EqualFold(wire.MustParseName("ns1.example.com.")))
}
