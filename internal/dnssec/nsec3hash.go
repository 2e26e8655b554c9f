package dnssec

import (
	"crypto/sha1"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// HashOwnerName computes the iterated SHA-1 hash RFC 5155 §5 uses to
// obscure NSEC3 owner names: IH(salt, x, 0) = H(x || salt);
// IH(salt, x, k) = H(IH(salt, x, k-1) || salt).
func HashOwnerName(name wire.Name, salt []byte, iterations uint16) []byte {
	nameBytes := wire.CanonicalNameBytes(name)
	h := sha1.Sum(append(append([]byte{}, nameBytes...), salt...))
	digest := h[:]
	for i := uint16(0); i < iterations; i++ {
		next := sha1.Sum(append(append([]byte{}, digest...), salt...))
		digest = next[:]
	}
	return digest
}
