package resolver

import (
	"github.com/dnsscience/dnsresolve/internal/names"
	"github.com/dnsscience/dnsresolve/internal/random"
	"github.com/dnsscience/dnsresolve/internal/wire"
)

// Apply0x20Encoding returns a copy of name with the case of each ASCII
// letter in every label randomized, per the 0x20 encoding technique
// (draft-vixie-dnsext-dns0x20-00) used to add entropy against
// off-path cache poisoning. Operates on wire.Name's label slice
// directly and draws each coin flip from internal/random's CSPRNG.
func Apply0x20Encoding(name wire.Name) wire.Name {
	out := wire.Name{Labels: make([]string, len(name.Labels))}
	for i, label := range name.Labels {
		b := []byte(label)
		for j, c := range b {
			switch {
			case c >= 'a' && c <= 'z':
				if random.Bool() {
					b[j] = c - 32
				}
			case c >= 'A' && c <= 'Z':
				if random.Bool() {
					b[j] = c + 32
				}
			}
		}
		out.Labels[i] = string(b)
	}
	return out
}

// Validate0x20Response reports whether responseName preserves the
// exact letter case of queryName. This must be byte-exact, unlike
// every other name comparison in this codebase: a spoofed response
// that lowercases the 0x20-encoded query defeats the defense.
func Validate0x20Response(queryName, responseName wire.Name) bool {
	if len(queryName.Labels) != len(responseName.Labels) {
		return false
	}
	for i := range queryName.Labels {
		if queryName.Labels[i] != responseName.Labels[i] {
			return false
		}
	}
	return true
}

// IsInBailiwick reports whether name lies within zone's bailiwick
// (name equals zone or is a subdomain of it).
func IsInBailiwick(name, zone wire.Name) bool {
	return names.IsSubdomain(name, zone) || name.EqualFold(zone)
}

// ScrubResponse removes out-of-bailiwick records from a response's
// Authority and Additional sections in place, hardening against cache
// poisoning via unsolicited glue (RFC 7816-adjacent hygiene the
// teacher's ScrubResponse names "bailiwick filtering").
func ScrubResponse(msg *wire.Message, zone wire.Name) {
	if msg == nil {
		return
	}
	msg.Authority = filterInBailiwick(msg.Authority, zone)
	msg.Additional = filterInBailiwick(msg.Additional, zone)
}

func filterInBailiwick(rrs []wire.RR, zone wire.Name) []wire.RR {
	filtered := make([]wire.RR, 0, len(rrs))
	for _, rr := range rrs {
		if IsInBailiwick(rr.Header.Name, zone) {
			filtered = append(filtered, rr)
		}
	}
	return filtered
}

// ApplyQNAMEMinimization returns the minimized probe name for fullName
// given the resolver is currently working at currentZone: one label
// more than currentZone, per RFC 7816. If fullName is already at or
// above currentZone in the hierarchy, it is returned unchanged.
func ApplyQNAMEMinimization(fullName, currentZone wire.Name) wire.Name {
	if !names.IsSubdomain(fullName, currentZone) || fullName.EqualFold(currentZone) {
		return fullName
	}
	fullLabels := len(fullName.Labels)
	zoneLabels := len(currentZone.Labels)
	if fullLabels <= zoneLabels {
		return fullName
	}
	targetLabelCount := zoneLabels + 1
	return fullName.Sub(targetLabelCount)
}

// HardenGlue filters glueRecords to only those owned by a name in
// nsNames and within delegatedZone's bailiwick, rejecting unsolicited
// glue for unrelated names that a malicious or compromised authority
// could otherwise smuggle into the Additional section.
func HardenGlue(glueRecords []wire.RR, delegatedZone wire.Name, nsNames []wire.Name) []wire.RR {
	nsSet := make(map[string]bool, len(nsNames))
	for _, ns := range nsNames {
		nsSet[ns.Canonical().String()] = true
	}

	hardened := make([]wire.RR, 0, len(glueRecords))
	for _, rr := range glueRecords {
		owner := rr.Header.Name.Canonical().String()
		if nsSet[owner] && IsInBailiwick(rr.Header.Name, delegatedZone) {
			hardened = append(hardened, rr)
		}
	}
	return hardened
}
