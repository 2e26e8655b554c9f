package dnssec

import (
	"time"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// Validator classifies answers against a configured set of trust
// anchors.
type Validator struct {
	Anchors *AnchorStore
}

// NewValidator constructs a Validator backed by anchors.
func NewValidator(anchors *AnchorStore) *Validator {
	return &Validator{Anchors: anchors}
}

// VerifyRRSIG checks that rrsig authenticates rrset under key, per
// RFC 4035 §5.3: matching key tag/algorithm, a zone key, validity
// window, and a correct cryptographic signature over the canonical RRset
// bytes. The RRSIG's signer name is not compared with the zone apex or
// with the RRset's owner.
func (v *Validator) VerifyRRSIG(rrset []wire.RR, rrsig wire.RRSIG, key wire.DNSKEY, now time.Time) (Reason, error) {
	if rrsig.KeyTag != key.KeyTag() || rrsig.Algorithm != key.Algorithm {
		return ReasonKeyTagMismatch, nil
	}
	if !key.IsZoneKey() {
		return ReasonMissingDNSKEY, nil
	}
	if !serialWithin(rrsig.Inception, rrsig.Expiration, now) {
		if serialBefore(uint32(now.Unix()), rrsig.Inception) {
			return ReasonSignatureNotYet, nil
		}
		return ReasonSignatureExpired, nil
	}
	if !IsSupportedAlgorithm(rrsig.Algorithm) {
		return ReasonUnsupportedAlg, nil
	}

	pub, err := ParsePublicKey(key.Algorithm, key.PublicKey)
	if err != nil {
		return ReasonMissingDNSKEY, nil
	}

	signedData := rrsigSignedData(rrsig)
	signedData = append(signedData, wire.CanonicalRRsetBytes(rrset, rrsig.OriginalTTL)...)

	if err := VerifySignature(rrsig.Algorithm, pub, signedData, rrsig.Signature); err != nil {
		return ReasonSignatureInvalid, nil
	}
	return ReasonNone, nil
}

// rrsigSignedData reconstructs the RRSIG rdata minus the signature
// field, per RFC 4035 §5.3.2 "Reconstructing the Signed Data" — always
// encoded with the uncompressed signer name.
func rrsigSignedData(sig wire.RRSIG) []byte {
	unsigned := sig
	unsigned.Signature = nil
	return wire.CanonicalRdataBytes(wire.RR{Rdata: unsigned})
}

// serialWithin reports whether now falls in [inception, expiration]
// using RFC 1982 serial-number arithmetic, so the 32-bit field rolls
// over correctly past 2106.
func serialWithin(inception, expiration uint32, now time.Time) bool {
	t := uint32(now.Unix())
	return !serialBefore(t, inception) && !serialBefore(expiration, t)
}

func serialBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ValidateChain walks a chain of zone cuts from the trust anchor down
// to the zone holding the answer, verifying at each step that the
// parent's DS authenticates a key in the child's DNSKEY set and that
// the child's DNSKEY RRset is self-signed by that same key. It returns
// the validated DNSKEY set of the final zone cut in chain.
//
// chain[0] is the anchor zone itself (authenticated directly against
// the configured trust anchor, by DS or by trusted DNSKEY). Every
// subsequent cut carries the DS set its parent delegated with, in its
// DS field — that DS, not anything from the prior cut's DNSKEY set, is
// what authenticates this cut's secure-entry-point key.
func (v *Validator) ValidateChain(chain []ZoneCut, now time.Time, budget *Budget) ([]wire.DNSKEY, TrustState, Reason) {
	keys, state, reason := v.validateChain(chain, now, budget)
	validationOutcomes.WithLabelValues(state.String()).Inc()
	return keys, state, reason
}

func (v *Validator) validateChain(chain []ZoneCut, now time.Time, budget *Budget) ([]wire.DNSKEY, TrustState, Reason) {
	if len(chain) == 0 {
		return nil, Indeterminate, ReasonNone
	}

	anchor, ok := v.Anchors.Lookup(chain[0].Zone)
	if !ok {
		return nil, Indeterminate, ReasonMissingDS
	}

	var lastKeys []wire.DNSKEY

	for i, cut := range chain {
		var dsSet []wire.DS
		var trustedKeys []wire.DNSKEY
		if i == 0 {
			dsSet, trustedKeys = anchor.DS, anchor.DNSKEY
		} else {
			dsSet = cut.DS
		}

		sep, reason := findSecureEntryPoint(cut, dsSet, trustedKeys)
		if reason != ReasonNone {
			state := Bogus
			if reason == ReasonMissingDS {
				state = Indeterminate
			}
			return nil, state, reason
		}

		verified := false
		rrsetRR := dnskeysToRR(cut.Zone, cut.DNSKEYs)
		for _, sig := range cut.DNSKEYRRSIGs {
			if sig.KeyTag != sep.KeyTag() {
				continue
			}
			if err := budget.ChargeValidation(); err != nil {
				return nil, Bogus, ReasonBudgetExhausted
			}
			reason, err := v.VerifyRRSIG(rrsetRR, sig, sep, now)
			if err != nil {
				return nil, Bogus, ReasonSignatureInvalid
			}
			if reason == ReasonNone {
				verified = true
				break
			}
			if reason == ReasonUnsupportedAlg {
				return nil, Insecure, ReasonUnsupportedAlg
			}
			if err := budget.ChargeCryptoFailure(); err != nil {
				return nil, Bogus, ReasonBudgetExhausted
			}
		}
		if !verified {
			return nil, Bogus, ReasonNoCoveringRRSIG
		}

		lastKeys = cut.DNSKEYs
	}

	return lastKeys, Secure, ReasonNone
}

// findSecureEntryPoint locates the DNSKEY in cut that either matches a
// DS in dsSet or is byte-identical to a directly trusted key.
func findSecureEntryPoint(cut ZoneCut, dsSet []wire.DS, trustedKeys []wire.DNSKEY) (wire.DNSKEY, Reason) {
	if len(dsSet) > 0 {
		for _, ds := range dsSet {
			for _, key := range cut.DNSKEYs {
				ok, err := MatchesDS(ds, cut.Zone, key)
				if err == nil && ok {
					return key, ReasonNone
				}
			}
		}
		return wire.DNSKEY{}, ReasonMissingDNSKEY
	}
	if len(trustedKeys) > 0 {
		for _, key := range cut.DNSKEYs {
			for _, anchorKey := range trustedKeys {
				if key.KeyTag() == anchorKey.KeyTag() && keysEqual(key, anchorKey) {
					return key, ReasonNone
				}
			}
		}
		return wire.DNSKEY{}, ReasonMissingDNSKEY
	}
	return wire.DNSKEY{}, ReasonMissingDS
}

// ValidateRRset authenticates rrset against rrsigs using keys drawn
// from the zone's validated DNSKEY set. It
// charges budget for every signature attempt, so a response presenting
// many candidate RRSIGs cannot be used to stall the validator.
func (v *Validator) ValidateRRset(rrset []wire.RR, rrsigs []wire.RRSIG, keys []wire.DNSKEY, now time.Time, budget *Budget) ValidationOutcome {
	sawUnsupported := false
	for _, sig := range rrsigs {
		for _, key := range keys {
			if sig.KeyTag != key.KeyTag() || sig.Algorithm != key.Algorithm {
				continue
			}
			if err := budget.ChargeValidation(); err != nil {
				return ValidationOutcome{State: Bogus, Reason: ReasonBudgetExhausted}
			}
			reason, err := v.VerifyRRSIG(rrset, sig, key, now)
			if err != nil {
				return ValidationOutcome{State: Bogus, Reason: ReasonSignatureInvalid}
			}
			if reason == ReasonNone {
				return ValidationOutcome{State: Secure, Verified: rrset}
			}
			if reason == ReasonUnsupportedAlg {
				sawUnsupported = true
				continue
			}
			if err := budget.ChargeCryptoFailure(); err != nil {
				return ValidationOutcome{State: Bogus, Reason: ReasonBudgetExhausted}
			}
			return ValidationOutcome{State: Bogus, Reason: reason}
		}
	}
	if sawUnsupported {
		return ValidationOutcome{State: Insecure, Reason: ReasonUnsupportedAlg}
	}
	return ValidationOutcome{State: Bogus, Reason: ReasonNoCoveringRRSIG}
}

func keysEqual(a, b wire.DNSKEY) bool {
	if a.Flags != b.Flags || a.Protocol != b.Protocol || a.Algorithm != b.Algorithm {
		return false
	}
	if len(a.PublicKey) != len(b.PublicKey) {
		return false
	}
	for i := range a.PublicKey {
		if a.PublicKey[i] != b.PublicKey[i] {
			return false
		}
	}
	return true
}

func dnskeysToRR(owner wire.Name, keys []wire.DNSKEY) []wire.RR {
	out := make([]wire.RR, len(keys))
	for i, k := range keys {
		out[i] = wire.RR{Header: wire.RRHeader{Name: owner, Type: wire.TypeDNSKEY, Class: wire.ClassINET}, Rdata: k}
	}
	return out
}
