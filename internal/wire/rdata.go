package wire

import (
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net"
	"sort"
	"strings"
)

// --- address types ---

type A struct{ IP net.IP }

func (r A) pack(_ *nameEncoder, buf []byte) []byte {
	ip := r.IP.To4()
	if ip == nil {
		ip = make(net.IP, 4)
	}
	return append(buf, ip...)
}
func (r A) String() string { return r.IP.String() }

func decodeA(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if rdlen != 4 {
		return nil, malformed("A rdata must be 4 bytes")
	}
	ip := make(net.IP, 4)
	copy(ip, dec.msg[off:off+4])
	return A{IP: ip}, nil
}

type AAAA struct{ IP net.IP }

func (r AAAA) pack(_ *nameEncoder, buf []byte) []byte {
	ip := r.IP.To16()
	if ip == nil {
		ip = make(net.IP, 16)
	}
	return append(buf, ip...)
}
func (r AAAA) String() string { return r.IP.String() }

func decodeAAAA(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if rdlen != 16 {
		return nil, malformed("AAAA rdata must be 16 bytes")
	}
	ip := make(net.IP, 16)
	copy(ip, dec.msg[off:off+16])
	return AAAA{IP: ip}, nil
}

// --- single-name rdata: NS, CNAME, DNAME, PTR ---

type NS struct{ Ns Name }

func (r NS) pack(enc *nameEncoder, buf []byte) []byte { return enc.writeName(buf, r.Ns) }
func (r NS) String() string                           { return r.Ns.String() }

type CNAME struct{ Target Name }

func (r CNAME) pack(enc *nameEncoder, buf []byte) []byte { return enc.writeName(buf, r.Target) }
func (r CNAME) String() string                           { return r.Target.String() }

type DNAME struct{ Target Name }

func (r DNAME) pack(enc *nameEncoder, buf []byte) []byte { return enc.writeName(buf, r.Target) }
func (r DNAME) String() string                           { return r.Target.String() }

type PTR struct{ Ptr Name }

func (r PTR) pack(enc *nameEncoder, buf []byte) []byte { return enc.writeName(buf, r.Ptr) }
func (r PTR) String() string                           { return r.Ptr.String() }

func decodeNS(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	n, _, err := dec.readName(off)
	if err != nil {
		return nil, err
	}
	return NS{Ns: n}, nil
}

func decodeCNAME(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	n, _, err := dec.readName(off)
	if err != nil {
		return nil, err
	}
	return CNAME{Target: n}, nil
}

func decodeDNAME(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	n, _, err := dec.readName(off)
	if err != nil {
		return nil, err
	}
	return DNAME{Target: n}, nil
}

func decodePTR(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	n, _, err := dec.readName(off)
	if err != nil {
		return nil, err
	}
	return PTR{Ptr: n}, nil
}

// --- SOA ---

type SOA struct {
	Ns, Mbox                             Name
	Serial, Refresh, Retry, Expire, Minttl uint32
}

func (r SOA) pack(enc *nameEncoder, buf []byte) []byte {
	buf = enc.writeName(buf, r.Ns)
	buf = enc.writeName(buf, r.Mbox)
	buf = appendU32(buf, r.Serial)
	buf = appendU32(buf, r.Refresh)
	buf = appendU32(buf, r.Retry)
	buf = appendU32(buf, r.Expire)
	buf = appendU32(buf, r.Minttl)
	return buf
}
func (r SOA) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d", r.Ns, r.Mbox, r.Serial, r.Refresh, r.Retry, r.Expire, r.Minttl)
}

func decodeSOA(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	ns, next, err := dec.readName(off)
	if err != nil {
		return nil, err
	}
	mbox, next2, err := dec.readName(next)
	if err != nil {
		return nil, err
	}
	if next2+20 > len(dec.msg) {
		return nil, malformed("SOA rdata truncated")
	}
	b := dec.msg[next2:]
	return SOA{
		Ns: ns, Mbox: mbox,
		Serial: binary.BigEndian.Uint32(b[0:4]), Refresh: binary.BigEndian.Uint32(b[4:8]),
		Retry: binary.BigEndian.Uint32(b[8:12]), Expire: binary.BigEndian.Uint32(b[12:16]),
		Minttl: binary.BigEndian.Uint32(b[16:20]),
	}, nil
}

// --- MX ---

type MX struct {
	Preference uint16
	Mx         Name
}

func (r MX) pack(enc *nameEncoder, buf []byte) []byte {
	buf = appendU16(buf, r.Preference)
	return enc.writeName(buf, r.Mx)
}
func (r MX) String() string { return fmt.Sprintf("%d %s", r.Preference, r.Mx) }

func decodeMX(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if off+2 > len(dec.msg) {
		return nil, malformed("MX rdata truncated")
	}
	pref := binary.BigEndian.Uint16(dec.msg[off : off+2])
	mx, _, err := dec.readName(off + 2)
	if err != nil {
		return nil, err
	}
	return MX{Preference: pref, Mx: mx}, nil
}

// --- TXT ---

type TXT struct{ Strings []string }

func (r TXT) pack(_ *nameEncoder, buf []byte) []byte {
	for _, s := range r.Strings {
		buf = appendCharString(buf, s)
	}
	return buf
}
func (r TXT) String() string { return `"` + strings.Join(r.Strings, `" "`) + `"` }

func decodeTXT(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	end := off + rdlen
	var strs []string
	cur := off
	for cur < end {
		s, next, err := readCharString(dec.msg, cur, end)
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
		cur = next
	}
	return TXT{Strings: strs}, nil
}

// --- HINFO ---

type HINFO struct{ Cpu, Os string }

func (r HINFO) pack(_ *nameEncoder, buf []byte) []byte {
	buf = appendCharString(buf, r.Cpu)
	buf = appendCharString(buf, r.Os)
	return buf
}
func (r HINFO) String() string { return fmt.Sprintf("%q %q", r.Cpu, r.Os) }

func decodeHINFO(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	end := off + rdlen
	cpu, next, err := readCharString(dec.msg, off, end)
	if err != nil {
		return nil, err
	}
	os, _, err := readCharString(dec.msg, next, end)
	if err != nil {
		return nil, err
	}
	return HINFO{Cpu: cpu, Os: os}, nil
}

// --- NAPTR ---

type NAPTR struct {
	Order, Preference          uint16
	Flags, Service, Regexp     string
	Replacement                Name
}

func (r NAPTR) pack(enc *nameEncoder, buf []byte) []byte {
	buf = appendU16(buf, r.Order)
	buf = appendU16(buf, r.Preference)
	buf = appendCharString(buf, r.Flags)
	buf = appendCharString(buf, r.Service)
	buf = appendCharString(buf, r.Regexp)
	return enc.writeName(buf, r.Replacement)
}
func (r NAPTR) String() string {
	return fmt.Sprintf("%d %d %q %q %q %s", r.Order, r.Preference, r.Flags, r.Service, r.Regexp, r.Replacement)
}

func decodeNAPTR(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	end := off + rdlen
	if off+4 > len(dec.msg) {
		return nil, malformed("NAPTR rdata truncated")
	}
	order := binary.BigEndian.Uint16(dec.msg[off : off+2])
	pref := binary.BigEndian.Uint16(dec.msg[off+2 : off+4])
	cur := off + 4
	flags, cur, err := readCharString(dec.msg, cur, end)
	if err != nil {
		return nil, err
	}
	service, cur, err := readCharString(dec.msg, cur, end)
	if err != nil {
		return nil, err
	}
	regexp, cur, err := readCharString(dec.msg, cur, end)
	if err != nil {
		return nil, err
	}
	repl, _, err := dec.readName(cur)
	if err != nil {
		return nil, err
	}
	return NAPTR{Order: order, Preference: pref, Flags: flags, Service: service, Regexp: regexp, Replacement: repl}, nil
}

// --- SRV ---

type SRV struct {
	Priority, Weight, Port uint16
	Target                 Name
}

func (r SRV) pack(enc *nameEncoder, buf []byte) []byte {
	buf = appendU16(buf, r.Priority)
	buf = appendU16(buf, r.Weight)
	buf = appendU16(buf, r.Port)
	return enc.writeName(buf, r.Target)
}
func (r SRV) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Priority, r.Weight, r.Port, r.Target)
}

func decodeSRV(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if off+6 > len(dec.msg) {
		return nil, malformed("SRV rdata truncated")
	}
	prio := binary.BigEndian.Uint16(dec.msg[off : off+2])
	weight := binary.BigEndian.Uint16(dec.msg[off+2 : off+4])
	port := binary.BigEndian.Uint16(dec.msg[off+4 : off+6])
	target, _, err := dec.readName(off + 6)
	if err != nil {
		return nil, err
	}
	return SRV{Priority: prio, Weight: weight, Port: port, Target: target}, nil
}

// --- CAA ---

type CAA struct {
	Flag  uint8
	Tag   string
	Value []byte
}

func (r CAA) pack(_ *nameEncoder, buf []byte) []byte {
	buf = append(buf, r.Flag)
	buf = appendCharString(buf, r.Tag)
	return append(buf, r.Value...)
}
func (r CAA) String() string { return fmt.Sprintf("%d %s %q", r.Flag, r.Tag, r.Value) }

func decodeCAA(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	end := off + rdlen
	if off+1 > len(dec.msg) {
		return nil, malformed("CAA rdata truncated")
	}
	flag := dec.msg[off]
	tag, next, err := readCharString(dec.msg, off+1, end)
	if err != nil {
		return nil, err
	}
	value := append([]byte(nil), dec.msg[next:end]...)
	return CAA{Flag: flag, Tag: tag, Value: value}, nil
}

// --- DS ---

type DS struct {
	KeyTag     uint16
	Algorithm  uint8
	DigestType uint8
	Digest     []byte
}

func (r DS) pack(_ *nameEncoder, buf []byte) []byte {
	buf = appendU16(buf, r.KeyTag)
	buf = append(buf, r.Algorithm, r.DigestType)
	return append(buf, r.Digest...)
}
func (r DS) String() string {
	return fmt.Sprintf("%d %d %d %x", r.KeyTag, r.Algorithm, r.DigestType, r.Digest)
}

func decodeDS(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if off+4 > len(dec.msg) {
		return nil, malformed("DS rdata truncated")
	}
	digest := append([]byte(nil), dec.msg[off+4:off+rdlen]...)
	return DS{
		KeyTag: binary.BigEndian.Uint16(dec.msg[off : off+2]),
		Algorithm: dec.msg[off+2], DigestType: dec.msg[off+3],
		Digest: digest,
	}, nil
}

// --- DNSKEY ---

type DNSKEY struct {
	Flags     uint16
	Protocol  uint8
	Algorithm uint8
	PublicKey []byte
}

func (r DNSKEY) pack(_ *nameEncoder, buf []byte) []byte {
	buf = appendU16(buf, r.Flags)
	buf = append(buf, r.Protocol, r.Algorithm)
	return append(buf, r.PublicKey...)
}
func (r DNSKEY) String() string {
	return fmt.Sprintf("%d %d %d <key of %d bytes>", r.Flags, r.Protocol, r.Algorithm, len(r.PublicKey))
}

// KeyTag computes the RFC 4034 Appendix B key tag for this DNSKEY.
func (r DNSKEY) KeyTag() uint16 {
	rd := r.pack(nil, nil)
	var ac uint32
	for i, b := range rd {
		if i&1 == 0 {
			ac += uint32(b) << 8
		} else {
			ac += uint32(b)
		}
	}
	ac += ac >> 16 & 0xFFFF
	return uint16(ac & 0xFFFF)
}

// IsZoneKey reports whether the zone-key bit is set; IsSEP reports
// whether the secure-entry-point bit is set.
func (r DNSKEY) IsZoneKey() bool { return r.Flags&0x0100 != 0 }
func (r DNSKEY) IsSEP() bool     { return r.Flags&0x0001 != 0 }

func decodeDNSKEY(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if off+4 > len(dec.msg) {
		return nil, malformed("DNSKEY rdata truncated")
	}
	key := append([]byte(nil), dec.msg[off+4:off+rdlen]...)
	return DNSKEY{
		Flags: binary.BigEndian.Uint16(dec.msg[off : off+2]),
		Protocol: dec.msg[off+2], Algorithm: dec.msg[off+3],
		PublicKey: key,
	}, nil
}

// --- RRSIG ---

type RRSIG struct {
	TypeCovered RRType
	Algorithm   uint8
	Labels      uint8
	OriginalTTL uint32
	Expiration  uint32
	Inception   uint32
	KeyTag      uint16
	SignerName  Name
	Signature   []byte
}

func (r RRSIG) pack(enc *nameEncoder, buf []byte) []byte {
	buf = appendU16(buf, uint16(r.TypeCovered))
	buf = append(buf, r.Algorithm, r.Labels)
	buf = appendU32(buf, r.OriginalTTL)
	buf = appendU32(buf, r.Expiration)
	buf = appendU32(buf, r.Inception)
	buf = appendU16(buf, r.KeyTag)
	if enc == nil {
		enc = newNameEncoder(false)
	}
	noCompress := *enc
	noCompress.enabled = false
	buf = noCompress.writeName(buf, r.SignerName)
	return append(buf, r.Signature...)
}
func (r RRSIG) String() string {
	return fmt.Sprintf("%s %d %d %d %d %d %d %s <sig %d bytes>",
		r.TypeCovered, r.Algorithm, r.Labels, r.OriginalTTL, r.Expiration, r.Inception, r.KeyTag, r.SignerName, len(r.Signature))
}

func decodeRRSIG(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if off+18 > len(dec.msg) {
		return nil, malformed("RRSIG rdata truncated")
	}
	b := dec.msg[off:]
	typeCovered := RRType(binary.BigEndian.Uint16(b[0:2]))
	algo := b[2]
	labels := b[3]
	origTTL := binary.BigEndian.Uint32(b[4:8])
	exp := binary.BigEndian.Uint32(b[8:12])
	inc := binary.BigEndian.Uint32(b[12:16])
	tag := binary.BigEndian.Uint16(b[16:18])
	signer, next, err := dec.readName(off + 18)
	if err != nil {
		return nil, err
	}
	end := off + rdlen
	if next > end {
		return nil, malformed("RRSIG signer name overruns rdata")
	}
	sig := append([]byte(nil), dec.msg[next:end]...)
	return RRSIG{
		TypeCovered: typeCovered, Algorithm: algo, Labels: labels,
		OriginalTTL: origTTL, Expiration: exp, Inception: inc, KeyTag: tag,
		SignerName: signer, Signature: sig,
	}, nil
}

// --- NSEC ---

type NSEC struct {
	NextDomain Name
	Types      []RRType
}

func (r NSEC) pack(enc *nameEncoder, buf []byte) []byte {
	if enc == nil {
		enc = newNameEncoder(false)
	}
	noCompress := *enc
	noCompress.enabled = false
	buf = noCompress.writeName(buf, r.NextDomain)
	return appendTypeBitmap(buf, r.Types)
}
func (r NSEC) String() string { return fmt.Sprintf("%s %v", r.NextDomain, r.Types) }

func decodeNSEC(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	next, after, err := dec.readName(off)
	if err != nil {
		return nil, err
	}
	end := off + rdlen
	types, err := decodeTypeBitmap(dec.msg[after:end])
	if err != nil {
		return nil, err
	}
	return NSEC{NextDomain: next, Types: types}, nil
}

// --- NSEC3 ---

type NSEC3 struct {
	HashAlgorithm uint8
	Flags         uint8
	Iterations    uint16
	Salt          []byte
	NextHashed    []byte
	Types         []RRType
}

func (r NSEC3) OptOut() bool { return r.Flags&0x01 != 0 }

func (r NSEC3) pack(_ *nameEncoder, buf []byte) []byte {
	buf = append(buf, r.HashAlgorithm, r.Flags)
	buf = appendU16(buf, r.Iterations)
	buf = append(buf, byte(len(r.Salt)))
	buf = append(buf, r.Salt...)
	buf = append(buf, byte(len(r.NextHashed)))
	buf = append(buf, r.NextHashed...)
	return appendTypeBitmap(buf, r.Types)
}
func (r NSEC3) String() string {
	return fmt.Sprintf("%d %d %d %x %s %v", r.HashAlgorithm, r.Flags, r.Iterations, r.Salt,
		base32HexNoPad.EncodeToString(r.NextHashed), r.Types)
}

var base32HexNoPad = base32.HexEncoding.WithPadding(base32.NoPadding)

func decodeNSEC3(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	end := off + rdlen
	if off+5 > end {
		return nil, malformed("NSEC3 rdata truncated")
	}
	b := dec.msg
	algo := b[off]
	flags := b[off+1]
	iter := binary.BigEndian.Uint16(b[off+2 : off+4])
	saltLen := int(b[off+4])
	cur := off + 5
	if cur+saltLen > end {
		return nil, malformed("NSEC3 salt overruns rdata")
	}
	salt := append([]byte(nil), b[cur:cur+saltLen]...)
	cur += saltLen
	if cur >= end {
		return nil, malformed("NSEC3 missing hash length")
	}
	hashLen := int(b[cur])
	cur++
	if cur+hashLen > end {
		return nil, malformed("NSEC3 hash overruns rdata")
	}
	hashed := append([]byte(nil), b[cur:cur+hashLen]...)
	cur += hashLen
	types, err := decodeTypeBitmap(b[cur:end])
	if err != nil {
		return nil, err
	}
	return NSEC3{HashAlgorithm: algo, Flags: flags, Iterations: iter, Salt: salt, NextHashed: hashed, Types: types}, nil
}

// --- NSEC3PARAM ---

type NSEC3PARAM struct {
	HashAlgorithm uint8
	Flags         uint8
	Iterations    uint16
	Salt          []byte
}

func (r NSEC3PARAM) pack(_ *nameEncoder, buf []byte) []byte {
	buf = append(buf, r.HashAlgorithm, r.Flags)
	buf = appendU16(buf, r.Iterations)
	buf = append(buf, byte(len(r.Salt)))
	return append(buf, r.Salt...)
}
func (r NSEC3PARAM) String() string {
	return fmt.Sprintf("%d %d %d %x", r.HashAlgorithm, r.Flags, r.Iterations, r.Salt)
}

func decodeNSEC3PARAM(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if off+5 > off+rdlen {
		return nil, malformed("NSEC3PARAM rdata truncated")
	}
	b := dec.msg
	saltLen := int(b[off+4])
	if off+5+saltLen > off+rdlen {
		return nil, malformed("NSEC3PARAM salt overruns rdata")
	}
	salt := append([]byte(nil), b[off+5:off+5+saltLen]...)
	return NSEC3PARAM{
		HashAlgorithm: b[off], Flags: b[off+1],
		Iterations: binary.BigEndian.Uint16(b[off+2 : off+4]),
		Salt:       salt,
	}, nil
}

// --- TLSA ---

type TLSA struct {
	Usage, Selector, MatchingType uint8
	Data                          []byte
}

func (r TLSA) pack(_ *nameEncoder, buf []byte) []byte {
	buf = append(buf, r.Usage, r.Selector, r.MatchingType)
	return append(buf, r.Data...)
}
func (r TLSA) String() string {
	return fmt.Sprintf("%d %d %d %x", r.Usage, r.Selector, r.MatchingType, r.Data)
}

func decodeTLSA(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	if off+3 > off+rdlen {
		return nil, malformed("TLSA rdata truncated")
	}
	data := append([]byte(nil), dec.msg[off+3:off+rdlen]...)
	return TLSA{Usage: dec.msg[off], Selector: dec.msg[off+1], MatchingType: dec.msg[off+2], Data: data}, nil
}

// --- SVCB / HTTPS (RFC 9460) ---

type SVCB struct {
	Priority uint16
	Target   Name
	Params   map[uint16][]byte
}

func (r SVCB) pack(_ *nameEncoder, buf []byte) []byte {
	buf = appendU16(buf, r.Priority)
	noCompress := newNameEncoder(false)
	buf = noCompress.writeName(buf, r.Target)
	keys := make([]int, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	for _, k := range keys {
		v := r.Params[uint16(k)]
		buf = appendU16(buf, uint16(k))
		buf = appendU16(buf, uint16(len(v)))
		buf = append(buf, v...)
	}
	return buf
}
func (r SVCB) String() string { return fmt.Sprintf("%d %s <%d params>", r.Priority, r.Target, len(r.Params)) }

func decodeSVCB(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	end := off + rdlen
	if off+2 > end {
		return nil, malformed("SVCB rdata truncated")
	}
	prio := binary.BigEndian.Uint16(dec.msg[off : off+2])
	target, cur, err := dec.readName(off + 2)
	if err != nil {
		return nil, err
	}
	params := map[uint16][]byte{}
	for cur < end {
		if cur+4 > end {
			return nil, malformed("SVCB param header truncated")
		}
		key := binary.BigEndian.Uint16(dec.msg[cur : cur+2])
		l := int(binary.BigEndian.Uint16(dec.msg[cur+2 : cur+4]))
		cur += 4
		if cur+l > end {
			return nil, malformed("SVCB param value overruns rdata")
		}
		params[key] = append([]byte(nil), dec.msg[cur:cur+l]...)
		cur += l
	}
	return SVCB{Priority: prio, Target: target, Params: params}, nil
}

type HTTPS struct{ SVCB }

func (r HTTPS) pack(enc *nameEncoder, buf []byte) []byte { return r.SVCB.pack(enc, buf) }

func decodeHTTPS(dec *nameDecoder, off, rdlen int) (Rdata, error) {
	s, err := decodeSVCB(dec, off, rdlen)
	if err != nil {
		return nil, err
	}
	return HTTPS{SVCB: s.(SVCB)}, nil
}

// --- opaque / unknown types ---

type Unknown struct {
	Code RRType
	Data []byte
}

func (r Unknown) pack(_ *nameEncoder, buf []byte) []byte { return append(buf, r.Data...) }
func (r Unknown) String() string                         { return fmt.Sprintf("\\# %d %x", len(r.Data), r.Data) }

func decodeUnknown(code RRType) rdataDecoder {
	return func(dec *nameDecoder, off, rdlen int) (Rdata, error) {
		return Unknown{Code: code, Data: append([]byte(nil), dec.msg[off:off+rdlen]...)}, nil
	}
}

// --- shared helpers ---

func appendU16(buf []byte, v uint16) []byte { return append(buf, byte(v>>8), byte(v)) }
func appendU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendCharString(buf []byte, s string) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func readCharString(msg []byte, off, end int) (string, int, error) {
	if off >= end {
		return "", 0, malformed("character-string out of range")
	}
	l := int(msg[off])
	if off+1+l > end {
		return "", 0, malformed("character-string overruns rdata")
	}
	return string(msg[off+1 : off+1+l]), off + 1 + l, nil
}

// appendTypeBitmap encodes the RFC 4034 §4.1.2 windowed type bitmap.
func appendTypeBitmap(buf []byte, types []RRType) []byte {
	if len(types) == 0 {
		return buf
	}
	sorted := append([]RRType(nil), types...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	windows := map[byte][]byte{}
	for _, t := range sorted {
		win := byte(t >> 8)
		bit := byte(t & 0xFF)
		byteIdx := bit / 8
		bm := windows[win]
		for len(bm) <= int(byteIdx) {
			bm = append(bm, 0)
		}
		bm[byteIdx] |= 0x80 >> (bit % 8)
		windows[win] = bm
	}
	wins := make([]int, 0, len(windows))
	for w := range windows {
		wins = append(wins, int(w))
	}
	sort.Ints(wins)
	for _, w := range wins {
		bm := windows[byte(w)]
		buf = append(buf, byte(w), byte(len(bm)))
		buf = append(buf, bm...)
	}
	return buf
}

func decodeTypeBitmap(b []byte) ([]RRType, error) {
	var types []RRType
	cur := 0
	for cur < len(b) {
		if cur+2 > len(b) {
			return nil, malformed("type bitmap window truncated")
		}
		win := b[cur]
		l := int(b[cur+1])
		cur += 2
		if cur+l > len(b) {
			return nil, malformed("type bitmap overruns rdata")
		}
		for i := 0; i < l; i++ {
			byteVal := b[cur+i]
			for bit := 0; bit < 8; bit++ {
				if byteVal&(0x80>>bit) != 0 {
					types = append(types, RRType(int(win)<<8|i*8+bit))
				}
			}
		}
		cur += l
	}
	return types, nil
}
