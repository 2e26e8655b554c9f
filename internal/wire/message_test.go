package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleMessage() *Message {
	return &Message{
		Header: Header{
			ID: 0x1234, QR: true, RD: true, RA: true, Rcode: 0,
		},
		Question: []Question{
			{Name: MustParseName("www.example.com."), Type: TypeA, Class: ClassINET},
		},
		Answer: []RR{
			{
				Header: RRHeader{Name: MustParseName("www.example.com."), Type: TypeCNAME, Class: ClassINET, TTL: 300},
				Rdata:  CNAME{Target: MustParseName("app.example.com.")},
			},
			{
				Header: RRHeader{Name: MustParseName("app.example.com."), Type: TypeA, Class: ClassINET, TTL: 60},
				Rdata:  A{IP: net.ParseIP("198.51.100.7")},
			},
		},
		Authority: []RR{
			{
				Header: RRHeader{Name: MustParseName("example.com."), Type: TypeNS, Class: ClassINET, TTL: 3600},
				Rdata:  NS{Ns: MustParseName("ns1.example.com.")},
			},
		},
		Additional: []RR{
			{
				Header: RRHeader{Name: MustParseName("ns1.example.com."), Type: TypeA, Class: ClassINET, TTL: 3600},
				Rdata:  A{IP: net.ParseIP("192.0.2.1")},
			},
		},
		Opt: &OPT{UDPSize: 4096, DO: true},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := sampleMessage()
	wireBytes, err := Encode(m)
	require.NoError(t, err)

	decoded, err := Decode(wireBytes)
	require.NoError(t, err)

	require.Equal(t, m.Header.ID, decoded.Header.ID)
	require.True(t, decoded.Header.QR)
	require.True(t, decoded.Header.RD)
	require.Len(t, decoded.Question, 1)
	require.Equal(t, "www.example.com.", decoded.Question[0].Name.String())
	require.Equal(t, TypeA, decoded.Question[0].Type)

	require.Len(t, decoded.Answer, 2)
	require.Equal(t, "app.example.com.", decoded.Answer[0].Rdata.(CNAME).Target.String())
	require.Equal(t, "198.51.100.7", decoded.Answer[1].Rdata.(A).IP.String())

	require.Len(t, decoded.Authority, 1)
	require.Equal(t, "ns1.example.com.", decoded.Authority[0].Rdata.(NS).Ns.String())

	require.Len(t, decoded.Additional, 1)
	require.NotNil(t, decoded.Opt)
	require.Equal(t, uint16(4096), decoded.Opt.UDPSize)
	require.True(t, decoded.Opt.DO)

	reencoded, err := Encode(decoded)
	require.NoError(t, err)
	require.Equal(t, wireBytes, reencoded)
}

func TestEncodeUsesCompression(t *testing.T) {
	m := &Message{
		Header:   Header{ID: 1, QR: true},
		Question: []Question{{Name: MustParseName("a.example.com."), Type: TypeA, Class: ClassINET}},
		Answer: []RR{
			{Header: RRHeader{Name: MustParseName("a.example.com."), Type: TypeNS, Class: ClassINET, TTL: 1}, Rdata: NS{Ns: MustParseName("ns.example.com.")}},
			{Header: RRHeader{Name: MustParseName("b.example.com."), Type: TypeNS, Class: ClassINET, TTL: 1}, Rdata: NS{Ns: MustParseName("ns.example.com.")}},
		},
	}
	compressed, err := Encode(m)
	require.NoError(t, err)
	canonical, err := EncodeCanonical(m)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(canonical))

	decoded, err := Decode(compressed)
	require.NoError(t, err)
	require.Equal(t, "b.example.com.", decoded.Answer[1].Header.Name.String())
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{0, 1, 2})
	require.Error(t, err)
}

func TestUnknownTypePreservesOpaqueBytes(t *testing.T) {
	rdata := Unknown{Code: 9999, Data: []byte{1, 2, 3, 4}}
	m := &Message{
		Header: Header{ID: 7},
		Answer: []RR{{Header: RRHeader{Name: MustParseName("x.example."), Type: 9999, Class: ClassINET, TTL: 1}, Rdata: rdata}},
	}
	b, err := Encode(m)
	require.NoError(t, err)
	decoded, err := Decode(b)
	require.NoError(t, err)
	got := decoded.Answer[0].Rdata.(Unknown)
	require.Equal(t, rdata.Data, got.Data)
}
