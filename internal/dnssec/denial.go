package dnssec

import (
	"bytes"
	"encoding/base32"
	"strings"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

var base32HexNoPad = base32.NewEncoding("0123456789ABCDEFGHIJKLMNOPQRSTUV").WithPadding(base32.NoPadding)

// NoDataNSEC reports whether nsec proves NODATA for qtype at owner:
// owner must match the queried name exactly and qtype must be absent
// from its type bitmap.
func NoDataNSEC(owner wire.Name, qtype wire.RRType, nsec wire.RR) bool {
	if !nsec.Header.Name.EqualFold(owner) {
		return false
	}
	n, ok := nsec.Rdata.(wire.NSEC)
	if !ok {
		return false
	}
	for _, t := range n.Types {
		if t == qtype {
			return false
		}
	}
	return true
}

// NoDataNSEC3 reports whether nsec3 proves NODATA for qtype: the
// record's owner (a base32hex hash label) must equal the hash of owner
// under nsec3's own salt/iterations, and qtype must be absent from the
// type bitmap.
func NoDataNSEC3(owner wire.Name, qtype wire.RRType, nsec3 wire.RR) bool {
	n, ok := nsec3.Rdata.(wire.NSEC3)
	if !ok {
		return false
	}
	if !ownerHashMatches(owner, nsec3.Header.Name, n) {
		return false
	}
	for _, t := range n.Types {
		if t == qtype {
			return false
		}
	}
	return true
}

// OptOutInsecureDelegation reports whether nsec3 is an opt-out NSEC3
// covering (not matching) owner and authenticates no DS: an opt-out
// NSEC3 over an insecure delegation authenticates no DS, so the chain
// is Insecure rather than Bogus.
func OptOutInsecureDelegation(owner wire.Name, nsec3 wire.RR) bool {
	n, ok := nsec3.Rdata.(wire.NSEC3)
	if !ok {
		return false
	}
	if !n.OptOut() {
		return false
	}
	for _, t := range n.Types {
		if t == wire.TypeDS {
			return false
		}
	}
	return coversOwner(owner, nsec3.Header.Name, n)
}

// ownerHashMatches recomputes the NSEC3 iterated hash of owner and
// compares it (as a base32hex label) to recordOwner's first label.
func ownerHashMatches(owner wire.Name, recordOwner wire.Name, n wire.NSEC3) bool {
	if len(recordOwner.Labels) == 0 {
		return false
	}
	hash := HashOwnerName(owner, n.Salt, n.Iterations)
	want := strings.ToUpper(recordOwner.Labels[0])
	got := base32HexNoPad.EncodeToString(hash)
	return want == got
}

// coversOwner reports whether owner's NSEC3 hash falls in the interval
// (recordOwner's hash, NextHashed] in hash-space, meaning the NSEC3
// record covers (proves the non-existence of an exact match for) owner.
func coversOwner(owner wire.Name, recordOwner wire.Name, n wire.NSEC3) bool {
	if len(recordOwner.Labels) == 0 {
		return false
	}
	ownerHash, err := base32HexNoPad.DecodeString(strings.ToUpper(recordOwner.Labels[0]))
	if err != nil {
		return false
	}
	targetHash := HashOwnerName(owner, n.Salt, n.Iterations)

	if bytes.Compare(ownerHash, n.NextHashed) < 0 {
		return bytes.Compare(ownerHash, targetHash) < 0 && bytes.Compare(targetHash, n.NextHashed) <= 0
	}
	// Wrapped interval (this record's owner hash is the last name in the zone).
	return bytes.Compare(targetHash, ownerHash) > 0 || bytes.Compare(targetHash, n.NextHashed) <= 0
}
