// Package field implements the prime-field scalar arithmetic the
// executor treats as an external collaborator (spec section 6): every
// VM stack cell is ultimately one of these elements. The concrete
// field is swappable — production proving backends would supply one
// tied to their pairing curve — but this package is the one shipped
// with the toolchain, and the one the in-repo R1CS reference
// implementation (internal/r1cs) is built against.
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/remyoudompheng/bigfft"
	"modernc.org/mathutil"
)

// Modulus is the BLS12-381 scalar field order: a standard,
// widely-used ZK-friendly prime, chosen over inventing a bespoke one.
var Modulus = mustParse("52435875175126190479447740508185965837690552500527637822603658699938581184513")

// CAPACITY is the number of bits that can be safely range-checked
// below the modulus without wraparound (spec section 4.H).
var CAPACITY = Modulus.BitLen() - 1

// bigMulThreshold is the operand bit length above which Mul reaches
// for bigfft's FFT-based multiplication instead of math/big's default.
const bigMulThreshold = 1 << 12

func mustParse(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("field: invalid modulus literal")
	}
	return n
}

func init() {
	if !mathutil.ProbablyPrime(Modulus, 20) {
		panic("field: configured modulus is not prime")
	}
}

// Element is a value in Z/Modulus, always kept in [0, Modulus).
type Element struct {
	v *big.Int
}

func reduce(v *big.Int) *big.Int {
	v = new(big.Int).Mod(v, Modulus)
	if v.Sign() < 0 {
		v.Add(v, Modulus)
	}
	return v
}

// Zero is the additive identity.
func Zero() Element { return Element{v: big.NewInt(0)} }

// One is the multiplicative identity.
func One() Element { return Element{v: big.NewInt(1)} }

// FromInt64 lifts a signed Go integer into the field, wrapping
// negative values around the modulus (two's-complement-free — the
// field has no native negative representation).
func FromInt64(n int64) Element { return Element{v: reduce(big.NewInt(n))} }

// FromUint64 lifts an unsigned Go integer into the field.
func FromUint64(n uint64) Element { return Element{v: reduce(new(big.Int).SetUint64(n))} }

// FromBigInt copies and reduces an arbitrary big.Int into the field.
func FromBigInt(n *big.Int) Element { return Element{v: reduce(new(big.Int).Set(n))} }

// FromBytes interprets b as a big-endian unsigned integer.
func FromBytes(b []byte) Element { return Element{v: reduce(new(big.Int).SetBytes(b))} }

// Random returns a uniformly-distributed field element; used to
// allocate filler witnesses for inputs the caller did not supply.
func Random() (Element, error) {
	n, err := rand.Int(rand.Reader, Modulus)
	if err != nil {
		return Element{}, fmt.Errorf("field: random: %w", err)
	}
	return Element{v: n}, nil
}

// BigInt returns the canonical [0, Modulus) representative.
func (e Element) BigInt() *big.Int { return new(big.Int).Set(e.v) }

// Bytes returns the big-endian encoding, unpadded.
func (e Element) Bytes() []byte { return e.v.Bytes() }

func (e Element) String() string { return e.v.String() }

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool { return e.v.Sign() == 0 }

// Equal reports value equality.
func (e Element) Equal(o Element) bool { return e.v.Cmp(o.v) == 0 }

// Add returns e + o mod Modulus.
func (e Element) Add(o Element) Element { return Element{v: reduce(new(big.Int).Add(e.v, o.v))} }

// Sub returns e - o mod Modulus.
func (e Element) Sub(o Element) Element { return Element{v: reduce(new(big.Int).Sub(e.v, o.v))} }

// Neg returns -e mod Modulus.
func (e Element) Neg() Element { return Element{v: reduce(new(big.Int).Neg(e.v))} }

// Mul returns e * o mod Modulus, using bigfft's multiplication for
// operands wide enough that the FFT path pays for itself.
func (e Element) Mul(o Element) Element {
	var prod *big.Int
	if e.v.BitLen() > bigMulThreshold && o.v.BitLen() > bigMulThreshold {
		prod = bigfft.Mul(e.v, o.v)
	} else {
		prod = new(big.Int).Mul(e.v, o.v)
	}
	return Element{v: reduce(prod)}
}

// Inverse returns the multiplicative inverse of e, or an error if e is
// zero (callers use this to implement the "has no inverse" assertion
// gadget of spec section 4.H).
func (e Element) Inverse() (Element, error) {
	if e.IsZero() {
		return Element{}, fmt.Errorf("field: no inverse of zero")
	}
	inv := new(big.Int).ModInverse(e.v, Modulus)
	if inv == nil {
		return Element{}, fmt.Errorf("field: no inverse")
	}
	return Element{v: inv}, nil
}

// Bit returns the i-th bit (0 = least significant) of the canonical
// representative, used by range-decomposition gadgets.
func (e Element) Bit(i int) uint { return e.v.Bit(i) }

// BitLen returns the minimal number of bits to represent e.
func (e Element) BitLen() int { return e.v.BitLen() }

// FromBits reconstructs a field element from its low-to-high bit
// decomposition, the inverse of iterating Bit.
func FromBits(bits []Element) Element {
	acc := new(big.Int)
	for i := len(bits) - 1; i >= 0; i-- {
		acc.Lsh(acc, 1)
		if !bits[i].IsZero() {
			acc.SetBit(acc, 0, 1)
		}
	}
	return Element{v: reduce(acc)}
}
