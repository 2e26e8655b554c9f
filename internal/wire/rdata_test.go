package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// packUnpackRdata round-trips a single RR through Encode/Decode to
// exercise a specific rdata type end to end.
func packUnpackRdata(t *testing.T, rr RR) RR {
	t.Helper()
	m := &Message{
		Header: Header{ID: 1},
		Answer: []RR{rr},
	}
	b, err := Encode(m)
	require.NoError(t, err)
	decoded, err := Decode(b)
	require.NoError(t, err)
	require.Len(t, decoded.Answer, 1)
	return decoded.Answer[0]
}

func TestNAPTRRoundTrip(t *testing.T) {
	rr := RR{
		Header: RRHeader{Name: MustParseName("example.com."), Type: TypeNAPTR, Class: ClassINET, TTL: 60},
		Rdata: NAPTR{
			Order: 100, Preference: 10,
			Flags: "U", Service: "SIP+D2U", Regexp: "!^.*$!sip:info@example.com!",
			Replacement: MustParseName("example.com."),
		},
	}
	got := packUnpackRdata(t, rr)
	naptr, ok := got.Rdata.(NAPTR)
	require.True(t, ok)
	require.Equal(t, rr.Rdata.(NAPTR), naptr)

	// Canonical bytes must match what we'd compute directly from the input.
	require.Equal(t, CanonicalRdataBytes(rr), CanonicalRdataBytes(got))
}

func TestSOARoundTrip(t *testing.T) {
	rr := RR{
		Header: RRHeader{Name: MustParseName("example.com."), Type: TypeSOA, Class: ClassINET, TTL: 3600},
		Rdata: SOA{
			Ns: MustParseName("ns1.example.com."), Mbox: MustParseName("hostmaster.example.com."),
			Serial: 2024010100, Refresh: 7200, Retry: 3600, Expire: 1209600, Minttl: 300,
		},
	}
	got := packUnpackRdata(t, rr)
	require.Equal(t, rr.Rdata, got.Rdata)
}

func TestTXTMultiStringRoundTrip(t *testing.T) {
	rr := RR{
		Header: RRHeader{Name: MustParseName("example.com."), Type: TypeTXT, Class: ClassINET, TTL: 60},
		Rdata:  TXT{Strings: []string{"v=spf1 -all", "second chunk"}},
	}
	got := packUnpackRdata(t, rr)
	require.Equal(t, rr.Rdata, got.Rdata)
}

func TestSRVRoundTrip(t *testing.T) {
	rr := RR{
		Header: RRHeader{Name: MustParseName("_sip._tcp.example.com."), Type: TypeSRV, Class: ClassINET, TTL: 60},
		Rdata:  SRV{Priority: 10, Weight: 20, Port: 5060, Target: MustParseName("sip.example.com.")},
	}
	got := packUnpackRdata(t, rr)
	require.Equal(t, rr.Rdata, got.Rdata)
}

func TestDSRoundTrip(t *testing.T) {
	rr := RR{
		Header: RRHeader{Name: MustParseName("example.com."), Type: TypeDS, Class: ClassINET, TTL: 3600},
		Rdata:  DS{KeyTag: 12345, Algorithm: 8, DigestType: 2, Digest: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	got := packUnpackRdata(t, rr)
	require.Equal(t, rr.Rdata, got.Rdata)
}

func TestNSEC3RoundTrip(t *testing.T) {
	rr := RR{
		Header: RRHeader{Name: MustParseName("abc123.example.com."), Type: TypeNSEC3, Class: ClassINET, TTL: 3600},
		Rdata: NSEC3{
			HashAlgorithm: 1, Flags: 1, Iterations: 10,
			Salt:       []byte{0xAA, 0xBB},
			NextHashed: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			Types:      []RRType{TypeA, TypeRRSIG, TypeNSEC3},
		},
	}
	got := packUnpackRdata(t, rr)
	nsec3 := got.Rdata.(NSEC3)
	require.Equal(t, rr.Rdata.(NSEC3).Salt, nsec3.Salt)
	require.Equal(t, rr.Rdata.(NSEC3).NextHashed, nsec3.NextHashed)
	require.ElementsMatch(t, rr.Rdata.(NSEC3).Types, nsec3.Types)
	require.True(t, nsec3.OptOut())
}

func TestRRSIGRoundTrip(t *testing.T) {
	rr := RR{
		Header: RRHeader{Name: MustParseName("example.com."), Type: TypeRRSIG, Class: ClassINET, TTL: 3600},
		Rdata: RRSIG{
			TypeCovered: TypeA, Algorithm: 8, Labels: 2, OriginalTTL: 3600,
			Expiration: 1700000000, Inception: 1699000000, KeyTag: 54321,
			SignerName: MustParseName("example.com."), Signature: []byte{9, 9, 9, 9},
		},
	}
	got := packUnpackRdata(t, rr)
	require.Equal(t, rr.Rdata, got.Rdata)
}

func TestTypeBitmapRoundTrip(t *testing.T) {
	types := []RRType{TypeA, TypeMX, TypeRRSIG, TypeNSEC, TypeDNSKEY, 1234}
	buf := appendTypeBitmap(nil, types)
	got, err := decodeTypeBitmap(buf)
	require.NoError(t, err)
	require.ElementsMatch(t, types, got)
}
