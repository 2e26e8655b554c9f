// Package names implements domain name utilities: normalization (IDN
// to A-labels), validation, case-insensitive equality, subdomain
// testing, and reverse-DNS name derivation/parsing.
package names

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.ValidateLabels(true),
)

// Normalize converts a presentation-form name (which may contain Unicode
// labels) to its ASCII A-label form.
func Normalize(name string) (wire.Name, error) {
	ascii, err := idnaProfile.ToASCII(strings.TrimSuffix(name, "."))
	if err != nil {
		// Pass through names that are already pure ASCII and merely
		// fail IDNA's stricter bidi/label rules (e.g. "_dmarc" service
		// labels); such a name is used as given, without IDNA's
		// case/width mapping.
		if isASCII(name) {
			ascii = strings.TrimSuffix(name, ".")
		} else {
			return wire.Name{}, fmt.Errorf("normalize %q: %w", name, err)
		}
	}
	return wire.ParseName(ascii)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// ValidateReason enumerates why Validate rejected a name.
type ValidateReason string

const (
	ReasonOK               ValidateReason = ""
	ReasonEmptyLabel       ValidateReason = "empty_label"
	ReasonLabelTooLong     ValidateReason = "label_too_long"
	ReasonNameTooLong      ValidateReason = "name_too_long"
	ReasonInvalidCharacter ValidateReason = "invalid_character"
)

// Validate checks a name's label and total lengths and restricts label
// characters to RFC 1035's letters, digits and hyphens, with the widely
// deployed relaxation of also allowing underscores (used by
// SRV/DKIM/ACME-style service labels) when allowUnderscore is true; an
// allowed underscore may appear anywhere in a label. The placement rules
// of the preferred name syntax (leading letter, no trailing hyphen) are
// not checked.
func Validate(n wire.Name, allowUnderscore bool) (bool, ValidateReason) {
	if n.IsRoot() {
		return true, ReasonOK
	}
	total := 1
	for _, l := range n.Labels {
		if len(l) == 0 {
			return false, ReasonEmptyLabel
		}
		if len(l) > 63 {
			return false, ReasonLabelTooLong
		}
		total += len(l) + 1
		for i := 0; i < len(l); i++ {
			c := l[i]
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			case c == '_' && allowUnderscore:
			default:
				return false, ReasonInvalidCharacter
			}
		}
	}
	if total > 255 {
		return false, ReasonNameTooLong
	}
	return true, ReasonOK
}

// EqualsCI is ASCII case-insensitive name equality; reflexive, symmetric,
// transitive, and total over the domain of valid names.
func EqualsCI(a, b wire.Name) bool {
	return a.EqualFold(b)
}

// IsSubdomain reports whether child lies at or below parent in the name
// tree (every label of parent is a suffix of child, child==parent included).
func IsSubdomain(child, parent wire.Name) bool {
	if len(parent.Labels) > len(child.Labels) {
		return false
	}
	return child.Sub(len(parent.Labels)).EqualFold(parent)
}

var (
	ErrNotReversePTR  = errors.New("name is not a reverse-DNS PTR name")
	ErrTooManyOctets  = errors.New("too many octet labels before in-addr.arpa")
	ErrTooManyNibbles = errors.New("too many nibble labels before ip6.arpa")
	ErrInvalidOctet   = errors.New("invalid decimal octet label")
	ErrInvalidNibble  = errors.New("invalid hex nibble label")
)

// ReversePTR derives the PTR owner name for ip: four
// reversed octets under in-addr.arpa for IPv4, 32 reversed nibbles under
// ip6.arpa for IPv6.
func ReversePTR(ip net.IP) (wire.Name, error) {
	if v4 := ip.To4(); v4 != nil && ip.To16() != nil && isV4(ip) {
		labels := []string{
			strconv.Itoa(int(v4[3])), strconv.Itoa(int(v4[2])),
			strconv.Itoa(int(v4[1])), strconv.Itoa(int(v4[0])),
			"in-addr", "arpa",
		}
		return wire.Name{Labels: labels}, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return wire.Name{}, fmt.Errorf("invalid IP address")
	}
	labels := make([]string, 0, 34)
	for i := len(v6) - 1; i >= 0; i-- {
		b := v6[i]
		labels = append(labels, hexDigit(b&0x0F), hexDigit(b>>4))
	}
	labels = append(labels, "ip6", "arpa")
	return wire.Name{Labels: labels}, nil
}

func isV4(ip net.IP) bool { return ip.To4() != nil }

func hexDigit(b byte) string {
	const digits = "0123456789abcdef"
	return string(digits[b&0x0F])
}

// ParseReversePTR is the inverse of ReversePTR: it recovers the IP address
// encoded by a reverse-DNS owner name. It accepts *partial* PTR names:
// missing leading IPv4 octets (fewer than 4 labels
// before in-addr.arpa) are padded with zero, as are missing trailing IPv6
// nibbles (fewer than 32 before ip6.arpa); more labels than the format
// allows is an error.
func ParseReversePTR(n wire.Name) (net.IP, error) {
	labels := n.Labels
	if len(labels) < 2 {
		return nil, ErrNotReversePTR
	}
	suffix := strings.ToLower(labels[len(labels)-2] + "." + labels[len(labels)-1])

	switch suffix {
	case "in-addr.arpa":
		octetLabels := labels[:len(labels)-2]
		if len(octetLabels) > 4 {
			return nil, ErrTooManyOctets
		}
		var octets [4]byte
		// octetLabels are in reverse order (least-significant first);
		// missing leading (most-significant) octets default to zero.
		for i, l := range octetLabels {
			v, err := strconv.Atoi(l)
			if err != nil || v < 0 || v > 255 {
				return nil, ErrInvalidOctet
			}
			octets[3-i] = byte(v)
		}
		return net.IPv4(octets[0], octets[1], octets[2], octets[3]), nil

	case "ip6.arpa":
		nibbleLabels := labels[:len(labels)-2]
		if len(nibbleLabels) > 32 {
			return nil, ErrTooManyNibbles
		}
		var addr [16]byte
		for i, l := range nibbleLabels {
			if len(l) != 1 {
				return nil, ErrInvalidNibble
			}
			v, err := strconv.ParseUint(l, 16, 8)
			if err != nil {
				return nil, ErrInvalidNibble
			}
			// nibbleLabels[i] is nibble index i counting from the
			// least-significant nibble of the address; missing
			// trailing (most-significant) nibbles default to zero.
			byteIdx := 15 - i/2
			if i%2 == 0 {
				addr[byteIdx] |= byte(v)
			} else {
				addr[byteIdx] |= byte(v) << 4
			}
		}
		return net.IP(addr[:]), nil

	default:
		return nil, ErrNotReversePTR
	}
}
