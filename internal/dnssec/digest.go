package dnssec

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// DigestType mirrors the DS rdata's digest-type field (RFC 4509/6605).
const (
	DigestSHA1   uint8 = 1
	DigestSHA256 uint8 = 2
	DigestSHA384 uint8 = 4
)

var ErrUnsupportedDigest = errors.New("dnssec: unsupported DS digest type")

// CalculateDigest computes the DS digest for key as owned by ownerName,
// per RFC 4034 §5.1.4: digest(canonical_owner_name || dnskey_rdata).
func CalculateDigest(ownerName wire.Name, key wire.DNSKEY, digestType uint8) ([]byte, error) {
	signed := append(wire.CanonicalNameBytes(ownerName), wire.CanonicalRdataBytes(wire.RR{Rdata: key})...)

	switch digestType {
	case DigestSHA1:
		sum := sha1.Sum(signed)
		return sum[:], nil
	case DigestSHA256:
		sum := sha256.Sum256(signed)
		return sum[:], nil
	case DigestSHA384:
		sum := sha512.Sum384(signed)
		return sum[:], nil
	default:
		return nil, ErrUnsupportedDigest
	}
}

// MatchesDS reports whether ds authenticates key as owned by ownerName.
// A nil error with ok=false for an unsupported digest type means the
// caller should skip this DS, not treat it as a
// cryptographic failure.
func MatchesDS(ds wire.DS, ownerName wire.Name, key wire.DNSKEY) (ok bool, err error) {
	if ds.KeyTag != key.KeyTag() || ds.Algorithm != key.Algorithm {
		return false, nil
	}
	digest, err := CalculateDigest(ownerName, key, ds.DigestType)
	if err != nil {
		if errors.Is(err, ErrUnsupportedDigest) {
			return false, nil
		}
		return false, err
	}
	if len(digest) != len(ds.Digest) {
		return false, nil
	}
	for i := range digest {
		if digest[i] != ds.Digest[i] {
			return false, nil
		}
	}
	return true, nil
}
