// Package dnssec implements the DNSSEC validator:
// DS -> DNSKEY chain of trust, RRSIG verification over canonical RRset
// bytes, NSEC/NSEC3 denial-of-existence proofs, and key-trap CPU budget
// enforcement.
package dnssec

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"errors"
	"math/big"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// Algorithm mirrors the DNSKEY/RRSIG algorithm field (RFC 8624).
type Algorithm = uint8

const (
	RSASHA1         Algorithm = 5
	RSASHA256       Algorithm = 8
	RSASHA512       Algorithm = 10
	ECDSAP256SHA256 Algorithm = 13
	ECDSAP384SHA384 Algorithm = 14
	ED25519         Algorithm = 15
	ED448           Algorithm = 16
)

var (
	ErrUnsupportedAlgorithm = errors.New("dnssec: unsupported algorithm")
	ErrMalformedKey         = errors.New("dnssec: malformed public key")
	ErrSignatureInvalid     = errors.New("dnssec: signature verification failed")
)

// hashForAlgorithm returns the crypto.Hash used to digest the signed
// data before verification. Ed25519 does its own hashing internally and
// reports 0.
func hashForAlgorithm(alg Algorithm) (crypto.Hash, error) {
	switch alg {
	case RSASHA1:
		return crypto.SHA1, nil
	case RSASHA256, ECDSAP256SHA256:
		return crypto.SHA256, nil
	case ECDSAP384SHA384:
		return crypto.SHA384, nil
	case RSASHA512:
		return crypto.SHA512, nil
	case ED25519:
		return 0, nil
	default:
		return 0, ErrUnsupportedAlgorithm
	}
}

// IsSupportedAlgorithm reports whether the validator implements
// signature verification for alg. An unsupported algorithm in a DS or
// DNSKEY makes that chain Insecure, not Bogus: callers must check this
// before treating a chain as untrusted.
//
// RFC 8624 recommends ED448, but the Go standard library carries no
// Ed448 implementation, and none of the third-party dependencies
// wired into this module vendor one either; see DESIGN.md. It is
// therefore accepted as a recognized algorithm code but always
// reports unsupported at verification time.
func IsSupportedAlgorithm(alg Algorithm) bool {
	switch alg {
	case RSASHA1, RSASHA256, RSASHA512, ECDSAP256SHA256, ECDSAP384SHA384, ED25519:
		return true
	default:
		return false
	}
}

// ParsePublicKey decodes a DNSKEY's raw public-key bytes into a
// crypto.PublicKey usable with VerifySignature, per RFC 3110 (RSA) and
// RFC 6605/8080 (ECDSA/Ed25519) key encodings.
func ParsePublicKey(alg Algorithm, keyBytes []byte) (crypto.PublicKey, error) {
	switch alg {
	case RSASHA1, RSASHA256, RSASHA512:
		return parseRSAPublicKey(keyBytes)
	case ECDSAP256SHA256:
		return parseECDSAPublicKey(elliptic.P256(), 64, keyBytes)
	case ECDSAP384SHA384:
		return parseECDSAPublicKey(elliptic.P384(), 96, keyBytes)
	case ED25519:
		if len(keyBytes) != ed25519.PublicKeySize {
			return nil, ErrMalformedKey
		}
		return ed25519.PublicKey(keyBytes), nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

func parseRSAPublicKey(keyBytes []byte) (*rsa.PublicKey, error) {
	if len(keyBytes) < 1+1+64 {
		return nil, ErrMalformedKey
	}
	explen := uint16(keyBytes[0])
	keyoff := 1
	if explen == 0 {
		if len(keyBytes) < 3 {
			return nil, ErrMalformedKey
		}
		explen = uint16(keyBytes[1])<<8 | uint16(keyBytes[2])
		keyoff = 3
	}
	if explen == 0 || explen > 4 || keyoff+int(explen) > len(keyBytes) {
		return nil, ErrMalformedKey
	}
	modoff := keyoff + int(explen)
	modlen := len(keyBytes) - modoff
	if modlen < 64 || modlen > 512 {
		return nil, ErrMalformedKey
	}

	var expo uint64
	for _, b := range keyBytes[keyoff:modoff] {
		expo = expo<<8 | uint64(b)
	}
	if expo == 0 || expo > 1<<31-1 {
		return nil, ErrMalformedKey
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(keyBytes[modoff:]),
		E: int(expo),
	}, nil
}

func parseECDSAPublicKey(curve elliptic.Curve, wantLen int, keyBytes []byte) (*ecdsa.PublicKey, error) {
	if len(keyBytes) != wantLen {
		return nil, ErrMalformedKey
	}
	half := wantLen / 2
	return &ecdsa.PublicKey{
		Curve: curve,
		X: new(big.Int).SetBytes(keyBytes[:half]),
		Y: new(big.Int).SetBytes(keyBytes[half:]),
	}, nil
}

// VerifySignature checks sig over signedData using pub, per alg's
// scheme. signedData is the RRSIG rdata (minus signature) concatenated
// with the canonical RRset bytes, per RFC 4035 §5.3.2.
func VerifySignature(alg Algorithm, pub crypto.PublicKey, signedData, sig []byte) error {
	h, err := hashForAlgorithm(alg)
	if err != nil {
		return err
	}

	switch alg {
	case RSASHA1, RSASHA256, RSASHA512:
		rsaKey, ok := pub.(*rsa.PublicKey)
		if !ok {
			return ErrMalformedKey
		}
		hasher := h.New()
		hasher.Write(signedData)
		if err := rsa.VerifyPKCS1v15(rsaKey, h, hasher.Sum(nil), sig); err != nil {
			return ErrSignatureInvalid
		}
		return nil

	case ECDSAP256SHA256, ECDSAP384SHA384:
		ecKey, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return ErrMalformedKey
		}
		if len(sig)%2 != 0 {
			return ErrMalformedKey
		}
		r := new(big.Int).SetBytes(sig[:len(sig)/2])
		s := new(big.Int).SetBytes(sig[len(sig)/2:])
		hasher := h.New()
		hasher.Write(signedData)
		if !ecdsa.Verify(ecKey, hasher.Sum(nil), r, s) {
			return ErrSignatureInvalid
		}
		return nil

	case ED25519:
		edKey, ok := pub.(ed25519.PublicKey)
		if !ok {
			return ErrMalformedKey
		}
		if !ed25519.Verify(edKey, signedData, sig) {
			return ErrSignatureInvalid
		}
		return nil

	default:
		return ErrUnsupportedAlgorithm
	}
}

// keyTagMatches is a thin wrapper kept near the algorithm code it
// depends on; the bit-level tag computation itself lives on wire.DNSKEY
// since it only needs the rdata, not any crypto package.
func keyTagMatches(key wire.DNSKEY, wantTag uint16) bool {
	return key.KeyTag() == wantTag
}
