package wire

import "encoding/binary"

// Header is the 12-byte DNS message header (RFC 1035 §4.1.1).
type Header struct {
	ID                 uint16
	QR                 bool
	Opcode             uint8
	AA, TC, RD, RA     bool
	Z                  uint8
	AD, CD             bool
	Rcode              uint8
	QDCount, ANCount   uint16
	NSCount, ARCount   uint16
}

// Question is a single question-section entry.
type Question struct {
	Name  Name
	Type  RRType
	Class Class
}

// EDNSOption is a single EDNS(0) option (RFC 6891 §6.1).
type EDNSOption struct {
	Code uint16
	Data []byte
}

const (
	OptCodeECS    uint16 = 8
	OptCodeCookie uint16 = 10
)

// OPT is the synthesized/absorbed EDNS(0) pseudo-RR; it is
// never present in Message's ordinary RR sections.
type OPT struct {
	UDPSize       uint16
	ExtendedRcode uint8
	Version       uint8
	DO            bool
	Options       []EDNSOption
}

// Message is a fully decoded DNS datagram.
type Message struct {
	Header     Header
	Question   []Question
	Answer     []RR
	Authority  []RR
	Additional []RR
	Opt        *OPT // nil if the message carries no EDNS(0) OPT record
}

var rdataDecoders = map[RRType]rdataDecoder{
	TypeA: decodeA, TypeAAAA: decodeAAAA,
	TypeNS: decodeNS, TypeCNAME: decodeCNAME, TypeDNAME: decodeDNAME, TypePTR: decodePTR,
	TypeSOA: decodeSOA, TypeMX: decodeMX, TypeTXT: decodeTXT, TypeHINFO: decodeHINFO,
	TypeNAPTR: decodeNAPTR, TypeSRV: decodeSRV, TypeCAA: decodeCAA,
	TypeDS: decodeDS, TypeDNSKEY: decodeDNSKEY, TypeRRSIG: decodeRRSIG,
	TypeNSEC: decodeNSEC, TypeNSEC3: decodeNSEC3, TypeNSEC3PARAM: decodeNSEC3PARAM,
	TypeTLSA: decodeTLSA, TypeSVCB: decodeSVCB, TypeHTTPS: decodeHTTPS,
}

// Decode parses a complete wire-format DNS datagram. decode(encode(x)) = x
// for every well-formed x.
func Decode(msg []byte) (*Message, error) {
	if len(msg) < 12 {
		return nil, malformed("message shorter than header")
	}
	h := Header{
		ID: binary.BigEndian.Uint16(msg[0:2]),
	}
	flags := binary.BigEndian.Uint16(msg[2:4])
	h.QR = flags&0x8000 != 0
	h.Opcode = uint8(flags >> 11 & 0x0F)
	h.AA = flags&0x0400 != 0
	h.TC = flags&0x0200 != 0
	h.RD = flags&0x0100 != 0
	h.RA = flags&0x0080 != 0
	h.Z = uint8(flags >> 6 & 0x01)
	h.AD = flags&0x0020 != 0
	h.CD = flags&0x0010 != 0
	h.Rcode = uint8(flags & 0x0F)
	h.QDCount = binary.BigEndian.Uint16(msg[4:6])
	h.ANCount = binary.BigEndian.Uint16(msg[6:8])
	h.NSCount = binary.BigEndian.Uint16(msg[8:10])
	h.ARCount = binary.BigEndian.Uint16(msg[10:12])

	dec := &nameDecoder{msg: msg}
	off := 12

	m := &Message{Header: h}

	m.Question = make([]Question, 0, h.QDCount)
	for i := 0; i < int(h.QDCount); i++ {
		name, next, err := dec.readName(off)
		if err != nil {
			return nil, err
		}
		if next+4 > len(msg) {
			return nil, malformed("question truncated")
		}
		q := Question{
			Name:  name,
			Type:  RRType(binary.BigEndian.Uint16(msg[next : next+2])),
			Class: Class(binary.BigEndian.Uint16(msg[next+2 : next+4])),
		}
		off = next + 4
		m.Question = append(m.Question, q)
	}

	var err error
	m.Answer, off, err = decodeRRSection(dec, off, int(h.ANCount))
	if err != nil {
		return nil, err
	}
	m.Authority, off, err = decodeRRSection(dec, off, int(h.NSCount))
	if err != nil {
		return nil, err
	}
	additional, off, err := decodeRRSectionExtractOPT(dec, off, int(h.ARCount), m)
	if err != nil {
		return nil, err
	}
	m.Additional = additional
	_ = off

	return m, nil
}

func decodeRRSection(dec *nameDecoder, off, count int) ([]RR, int, error) {
	rrs := make([]RR, 0, count)
	for i := 0; i < count; i++ {
		rr, next, err := decodeRR(dec, off)
		if err != nil {
			return nil, 0, err
		}
		rrs = append(rrs, rr)
		off = next
	}
	return rrs, off, nil
}

// decodeRRSectionExtractOPT decodes the additional section, pulling any
// OPT pseudo-RR out into m.Opt rather than m.Additional.
func decodeRRSectionExtractOPT(dec *nameDecoder, off, count int, m *Message) ([]RR, int, error) {
	rrs := make([]RR, 0, count)
	for i := 0; i < count; i++ {
		startOff := off
		name, next, err := dec.readName(off)
		if err != nil {
			return nil, 0, err
		}
		if next+10 > len(dec.msg) {
			return nil, 0, malformed("RR header truncated")
		}
		rrtype := RRType(binary.BigEndian.Uint16(dec.msg[next : next+2]))
		if rrtype == TypeOPT {
			opt, after, err := decodeOPT(dec, name, next)
			if err != nil {
				return nil, 0, err
			}
			m.Opt = opt
			off = after
			continue
		}
		rr, after, err := decodeRRAt(dec, startOff)
		if err != nil {
			return nil, 0, err
		}
		rrs = append(rrs, rr)
		off = after
	}
	return rrs, off, nil
}

func decodeOPT(dec *nameDecoder, name Name, typeOff int) (*OPT, int, error) {
	msg := dec.msg
	if typeOff+10 > len(msg) {
		return nil, 0, malformed("OPT header truncated")
	}
	udpSize := binary.BigEndian.Uint16(msg[typeOff+2 : typeOff+4])
	ttl := binary.BigEndian.Uint32(msg[typeOff+4 : typeOff+8])
	rdlen := int(binary.BigEndian.Uint16(msg[typeOff+8 : typeOff+10]))
	rdOff := typeOff + 10
	if rdOff+rdlen > len(msg) {
		return nil, 0, malformed("OPT rdata truncated")
	}

	opt := &OPT{
		UDPSize:       udpSize,
		ExtendedRcode: uint8(ttl >> 24),
		Version:       uint8(ttl >> 16),
		DO:            ttl&0x8000 != 0,
	}

	cur := rdOff
	end := rdOff + rdlen
	for cur < end {
		if cur+4 > end {
			return nil, 0, malformed("EDNS option header truncated")
		}
		code := binary.BigEndian.Uint16(msg[cur : cur+2])
		l := int(binary.BigEndian.Uint16(msg[cur+2 : cur+4]))
		cur += 4
		if cur+l > end {
			return nil, 0, malformed("EDNS option value overruns rdata")
		}
		opt.Options = append(opt.Options, EDNSOption{Code: code, Data: append([]byte(nil), msg[cur:cur+l]...)})
		cur += l
	}
	return opt, end, nil
}

func decodeRR(dec *nameDecoder, off int) (RR, int, error) {
	return decodeRRAt(dec, off)
}

func decodeRRAt(dec *nameDecoder, off int) (RR, int, error) {
	name, next, err := dec.readName(off)
	if err != nil {
		return RR{}, 0, err
	}
	msg := dec.msg
	if next+10 > len(msg) {
		return RR{}, 0, malformed("RR header truncated")
	}
	rrtype := RRType(binary.BigEndian.Uint16(msg[next : next+2]))
	class := Class(binary.BigEndian.Uint16(msg[next+2 : next+4]))
	ttl := binary.BigEndian.Uint32(msg[next+4 : next+8])
	rdlen := int(binary.BigEndian.Uint16(msg[next+8 : next+10]))
	rdOff := next + 10
	if rdOff+rdlen > len(msg) {
		return RR{}, 0, malformed("rdata overruns message")
	}

	decodeFn, ok := rdataDecoders[rrtype]
	if !ok {
		decodeFn = decodeUnknown(rrtype)
	}
	rdata, err := decodeFn(dec, rdOff, rdlen)
	if err != nil {
		return RR{}, 0, err
	}

	rr := RR{
		Header: RRHeader{Name: name, Type: rrtype, Class: class, TTL: ttl},
		Rdata:  rdata,
	}
	return rr, rdOff + rdlen, nil
}

// Encode serializes m to wire format with name compression enabled.
func Encode(m *Message) ([]byte, error) {
	return encode(m, true)
}

// EncodeCanonical serializes m with compression disabled and every name
// lowercased, the form DNSSEC signature verification operates over.
func EncodeCanonical(m *Message) ([]byte, error) {
	return encode(m, false)
}

func encode(m *Message, compress bool) ([]byte, error) {
	buf := make([]byte, 12)
	flags := uint16(0)
	if m.Header.QR {
		flags |= 0x8000
	}
	flags |= uint16(m.Header.Opcode&0x0F) << 11
	if m.Header.AA {
		flags |= 0x0400
	}
	if m.Header.TC {
		flags |= 0x0200
	}
	if m.Header.RD {
		flags |= 0x0100
	}
	if m.Header.RA {
		flags |= 0x0080
	}
	if m.Header.AD {
		flags |= 0x0020
	}
	if m.Header.CD {
		flags |= 0x0010
	}
	flags |= uint16(m.Header.Rcode & 0x0F)

	binary.BigEndian.PutUint16(buf[0:2], m.Header.ID)
	binary.BigEndian.PutUint16(buf[2:4], flags)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(m.Question)))
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(m.Answer)))
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(m.Authority)))
	arCount := len(m.Additional)
	if m.Opt != nil {
		arCount++
	}
	binary.BigEndian.PutUint16(buf[10:12], uint16(arCount))

	enc := newNameEncoder(compress)
	if !compress {
		enc.canonical = true
	}

	for _, q := range m.Question {
		buf = enc.writeName(buf, q.Name)
		buf = appendU16(buf, uint16(q.Type))
		buf = appendU16(buf, uint16(q.Class))
	}

	var err error
	buf, err = encodeRRSection(enc, buf, m.Answer, compress)
	if err != nil {
		return nil, err
	}
	buf, err = encodeRRSection(enc, buf, m.Authority, compress)
	if err != nil {
		return nil, err
	}
	buf, err = encodeRRSection(enc, buf, m.Additional, compress)
	if err != nil {
		return nil, err
	}
	if m.Opt != nil {
		buf = encodeOPT(enc, buf, m.Opt)
	}

	return buf, nil
}

func encodeRRSection(enc *nameEncoder, buf []byte, rrs []RR, compress bool) ([]byte, error) {
	for _, rr := range rrs {
		buf = enc.writeName(buf, rr.Header.Name)
		buf = appendU16(buf, uint16(rr.Header.Type))
		buf = appendU16(buf, uint16(rr.Header.Class))
		buf = appendU32(buf, rr.Header.TTL)

		lenOff := len(buf)
		buf = append(buf, 0, 0)
		before := len(buf)
		buf = rr.Rdata.pack(enc, buf)
		rdlen := len(buf) - before
		binary.BigEndian.PutUint16(buf[lenOff:lenOff+2], uint16(rdlen))
	}
	return buf, nil
}

func encodeOPT(enc *nameEncoder, buf []byte, opt *OPT) []byte {
	buf = append(buf, 0) // root name
	buf = appendU16(buf, uint16(TypeOPT))
	buf = appendU16(buf, opt.UDPSize)
	ttl := uint32(opt.ExtendedRcode)<<24 | uint32(opt.Version)<<16
	if opt.DO {
		ttl |= 0x8000
	}
	buf = appendU32(buf, ttl)

	lenOff := len(buf)
	buf = append(buf, 0, 0)
	before := len(buf)
	for _, o := range opt.Options {
		buf = appendU16(buf, o.Code)
		buf = appendU16(buf, uint16(len(o.Data)))
		buf = append(buf, o.Data...)
	}
	rdlen := len(buf) - before
	binary.BigEndian.PutUint16(buf[lenOff:lenOff+2], uint16(rdlen))
	return buf
}
