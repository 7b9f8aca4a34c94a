// rand.go - Uniform sampling of field elements.

package field

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Random draws 32 bytes from src, interprets them as a big-endian unsigned
// integer and reduces modulo P. The draw carries 256 bits of entropy against
// the ~252-bit modulus, so the reduction bias is negligible. A nil src falls
// back to crypto/rand.Reader.
func Random(src io.Reader) (Element, error) {
	if src == nil {
		src = rand.Reader
	}
	var buf [32]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return Element{}, fmt.Errorf("field: drawing randomness: %w", err)
	}
	return FromBig(new(big.Int).SetBytes(buf[:])), nil
}
