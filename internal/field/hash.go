// hash.go - The shared hash-to-field primitive.
//
// Leaf and nullifier derivation both go through HashToField; the two must be
// bit-for-bit identical for determinism, so there is exactly one
// implementation.

package field

import (
	"crypto/sha256"
	"math/big"
	"strings"
)

// Separator joins hash input parts before digesting. The caller must
// guarantee that no single part contains the separator, or two distinct
// logical part sequences can collide on the same joined byte string. The
// joined encoding is kept as-is: re-encoding (length prefixes, per-part
// hashing) would change every derived leaf and nullifier.
const Separator = "|"

// HashToField joins parts with Separator, hashes the joined byte string with
// SHA-256 and reduces the digest, read as a big-endian unsigned integer,
// modulo P.
func HashToField(parts ...string) Element {
	sum := sha256.Sum256([]byte(strings.Join(parts, Separator)))
	return FromBig(new(big.Int).SetBytes(sum[:]))
}
