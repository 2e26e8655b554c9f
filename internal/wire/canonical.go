package wire

import (
	"bytes"
	"sort"
)

// CanonicalNameBytes encodes n in canonical wire form: lowercased,
// uncompressed. Used by DS digest computation, which hashes an owner
// name immediately followed by DNSKEY rdata (RFC 4034 §5.1.4).
func CanonicalNameBytes(n Name) []byte {
	enc := newCanonicalNameEncoder()
	return enc.writeName(nil, n)
}

// CanonicalRRBytes packs a single RR in canonical form: lowercase owner
// name, TTL replaced by origTTL, no compression anywhere.
func CanonicalRRBytes(rr RR, origTTL uint32) []byte {
	enc := newCanonicalNameEncoder()
	buf := enc.writeName(nil, rr.Header.Name)
	buf = appendU16(buf, uint16(rr.Header.Type))
	buf = appendU16(buf, uint16(rr.Header.Class))
	buf = appendU32(buf, origTTL)

	lenOff := len(buf)
	buf = append(buf, 0, 0)
	before := len(buf)
	buf = rr.Rdata.pack(enc, buf)
	rdlen := len(buf) - before
	buf[lenOff] = byte(rdlen >> 8)
	buf[lenOff+1] = byte(rdlen)
	return buf
}

// CanonicalRdataBytes packs just the rdata in canonical (lowercased,
// uncompressed) form, used to sort an RRset into canonical order.
func CanonicalRdataBytes(rr RR) []byte {
	enc := newCanonicalNameEncoder()
	return rr.Rdata.pack(enc, nil)
}

// SortRRsetCanonical returns a new slice containing rrs sorted ascending
// by canonical rdata bytes.
// canonical(r) = canonical(shuffle(r)) for any permutation of the input.
func SortRRsetCanonical(rrs []RR) []RR {
	out := append([]RR(nil), rrs...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(CanonicalRdataBytes(out[i]), CanonicalRdataBytes(out[j])) < 0
	})
	return out
}

// CanonicalRRsetBytes concatenates the canonical encoding of every RR in
// rrs (sorted first) using origTTL in place of each RR's own TTL. This is
// the byte string DNSSEC signature verification hashes.
func CanonicalRRsetBytes(rrs []RR, origTTL uint32) []byte {
	sorted := SortRRsetCanonical(rrs)
	var buf []byte
	for _, rr := range sorted {
		buf = append(buf, CanonicalRRBytes(rr, origTTL)...)
	}
	return buf
}
