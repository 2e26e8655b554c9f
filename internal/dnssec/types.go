package dnssec

import "github.com/dnsscience/dnsresolve/internal/wire"

// TrustState is the validator's classification of an answer.
type TrustState int

const (
	Indeterminate TrustState = iota
	Secure
	Insecure
	Bogus
)

func (s TrustState) String() string {
	switch s {
	case Secure:
		return "Secure"
	case Insecure:
		return "Insecure"
	case Bogus:
		return "Bogus"
	default:
		return "Indeterminate"
	}
}

// Reason enumerates why a chain was classified Bogus or Insecure, for
// diagnostics and for the resolver's ResolveError mapping.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonBudgetExhausted    Reason = "budget_exhausted"
	ReasonUnsupportedAlg     Reason = "unsupported_algorithm"
	ReasonSignatureExpired   Reason = "signature_expired"
	ReasonSignatureNotYet    Reason = "signature_not_yet_valid"
	ReasonMissingDS          Reason = "missing_ds"
	ReasonMissingDNSKEY      Reason = "missing_dnskey"
	ReasonKeyTagMismatch     Reason = "key_tag_mismatch"
	ReasonSignatureInvalid   Reason = "signature_invalid"
	ReasonNoCoveringRRSIG    Reason = "no_covering_rrsig"
	ReasonDenialProofInvalid Reason = "denial_proof_invalid"
)

// ValidationOutcome is the validator's result for one answer.
type ValidationOutcome struct {
	State    TrustState
	Reason   Reason
	Verified []wire.RR // the RRsets the validator was able to authenticate
}

// TrustAnchor is an immutable (zone_name -> DS/DNSKEY set) entry.
type TrustAnchor struct {
	Zone   wire.Name
	DS     []wire.DS
	DNSKEY []wire.DNSKEY
}

// AnchorStore is a read-only-after-construction map of zone to trust
// anchor: trust anchors are an immutable mapping, configured once at
// startup and never mutated by the validator.
type AnchorStore struct {
	anchors map[string]TrustAnchor
}

// NewAnchorStore builds a store from zero or more anchors.
func NewAnchorStore(anchors ...TrustAnchor) *AnchorStore {
	s := &AnchorStore{anchors: make(map[string]TrustAnchor, len(anchors))}
	for _, a := range anchors {
		s.anchors[a.Zone.Canonical().String()] = a
	}
	return s
}

// Lookup returns the anchor configured for zone, if any.
func (s *AnchorStore) Lookup(zone wire.Name) (TrustAnchor, bool) {
	a, ok := s.anchors[zone.Canonical().String()]
	return a, ok
}

// ZoneCut carries the material needed to extend the chain of trust one
// level: the zone's own DNSKEY RRset, the RRSIGs covering it (which
// must be verifiable by a key within that same set — the self-signing
// KSK), and — for every cut but the anchor zone itself — the DS set its
// parent delegated with.
type ZoneCut struct {
	Zone         wire.Name
	DNSKEYs      []wire.DNSKEY
	DNSKEYRRSIGs []wire.RRSIG
	DS           []wire.DS
}
