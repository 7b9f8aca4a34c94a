// field.go - Field elements over the STARK prime.
//
// Every secret, leaf, root, action hash and nullifier in the protocol is a
// field element in [0, P) where P is the STARK prime
// 0x800000000000011000000000000000000000000000000000000000000000001.
// The canonical encoding is 0x-prefixed lowercase hex with no leading zero
// padding.

package field

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Element is a field element in [0, P). The zero value is the field's zero,
// which the protocol treats as "unset": a zero root is never accepted and a
// zero element is never used as a secret. Element is comparable and may be
// used as a map key.
type Element struct {
	inner fp.Element
}

// Modulus returns the STARK prime P as a fresh big.Int.
func Modulus() *big.Int {
	return fp.Modulus()
}

// FromBig reduces v modulo P and returns the resulting element.
func FromBig(v *big.Int) Element {
	var e Element
	e.inner.SetBigInt(v)
	return e
}

// FromHex parses a 0x-prefixed hex string. Values at or above the modulus
// are rejected rather than silently reduced.
func FromHex(s string) (Element, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Element{}, fmt.Errorf("field: %q is not 0x-prefixed hex", s)
	}
	v, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return Element{}, fmt.Errorf("field: %q is not valid hex", s)
	}
	if v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return Element{}, fmt.Errorf("field: %s is outside [0, P)", s)
	}
	return FromBig(v), nil
}

// MustFromHex is FromHex for fixtures and constants; it panics on error.
func MustFromHex(s string) Element {
	e, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return e
}

// Big returns the element's value as a fresh big.Int.
func (e Element) Big() *big.Int {
	var v big.Int
	e.inner.BigInt(&v)
	return &v
}

// Hex returns the canonical encoding: 0x-prefixed lowercase hex without
// leading zero padding.
func (e Element) Hex() string {
	return "0x" + e.Big().Text(16)
}

// String implements fmt.Stringer using the canonical hex encoding.
func (e Element) String() string {
	return e.Hex()
}

// IsZero reports whether the element is the field's zero.
func (e Element) IsZero() bool {
	return e.inner.IsZero()
}

// Equal reports whether two elements hold the same value.
func (e Element) Equal(other Element) bool {
	return e.inner.Equal(&other.inner)
}

// MarshalText encodes the element as canonical hex.
func (e Element) MarshalText() ([]byte, error) {
	return []byte(e.Hex()), nil
}

// UnmarshalText decodes an element from its canonical hex encoding.
func (e *Element) UnmarshalText(b []byte) error {
	parsed, err := FromHex(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
