package wire

// RRType is a DNS resource record type code (RFC 1035 §3.2.2 and extensions).
type RRType uint16

const (
	TypeA          RRType = 1
	TypeNS         RRType = 2
	TypeCNAME      RRType = 5
	TypeSOA        RRType = 6
	TypePTR        RRType = 12
	TypeHINFO      RRType = 13
	TypeMX         RRType = 15
	TypeTXT        RRType = 16
	TypeAAAA       RRType = 28
	TypeSRV        RRType = 33
	TypeNAPTR      RRType = 35
	TypeDNAME      RRType = 39
	TypeOPT        RRType = 41
	TypeDS         RRType = 43
	TypeRRSIG      RRType = 46
	TypeNSEC       RRType = 47
	TypeDNSKEY     RRType = 48
	TypeNSEC3      RRType = 50
	TypeNSEC3PARAM RRType = 51
	TypeTLSA       RRType = 52
	TypeSVCB       RRType = 64
	TypeHTTPS      RRType = 65
	TypeCAA        RRType = 257
)

var typeNames = map[RRType]string{
	TypeA: "A", TypeNS: "NS", TypeCNAME: "CNAME", TypeSOA: "SOA",
	TypePTR: "PTR", TypeHINFO: "HINFO", TypeMX: "MX", TypeTXT: "TXT",
	TypeAAAA: "AAAA", TypeSRV: "SRV", TypeNAPTR: "NAPTR", TypeDNAME: "DNAME",
	TypeOPT: "OPT", TypeDS: "DS", TypeRRSIG: "RRSIG", TypeNSEC: "NSEC",
	TypeDNSKEY: "DNSKEY", TypeNSEC3: "NSEC3", TypeNSEC3PARAM: "NSEC3PARAM",
	TypeTLSA: "TLSA", TypeSVCB: "SVCB", TypeHTTPS: "HTTPS", TypeCAA: "CAA",
}

func (t RRType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "TYPE" + itoa(uint32(t))
}

// Class is a DNS class code. IN (1) is the only class this resolver queries.
type Class uint16

const (
	ClassINET Class = 1
	ClassANY  Class = 255
)

func (c Class) String() string {
	if c == ClassINET {
		return "IN"
	}
	return "CLASS" + itoa(uint32(c))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// RRHeader is the fixed portion of every resource record: owner name,
// type, class and TTL.
type RRHeader struct {
	Name  Name
	Type  RRType
	Class Class
	TTL   uint32
}

// RR couples a header with its typed rdata. Unknown types carry an
// Unknown rdata value holding the opaque bytes verbatim: the codec
// always preserves byte-identity for types it doesn't model natively.
type RR struct {
	Header RRHeader
	Rdata  Rdata
}

// Rdata is the capability set every typed rdata value implements.
type Rdata interface {
	// pack appends the wire encoding of the rdata (not including the
	// 2-byte rdlength prefix) to buf using enc for any embedded names.
	pack(enc *nameEncoder, buf []byte) []byte
	// String renders a zone-file-style presentation of the rdata.
	String() string
}

// rdataDecoder constructs a typed Rdata from raw rdata bytes plus access
// to the full message (for name decompression within rdata).
type rdataDecoder func(dec *nameDecoder, rdataOff, rdlength int) (Rdata, error)
