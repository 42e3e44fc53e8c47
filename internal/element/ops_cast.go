package element

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// Cast implements `a as T` (spec section 4.A): integer-to-integer at
// any signedness/bitlength, integer-to-field, field-to-field, and a
// same-type cast is a no-op. Anything else is a type error. folded
// reports whether the result is a compile-time Constant, in which case
// the analyzer skips emitting a Cast instruction.
func Cast(loc zerr.Location, a Element, target types.Type) (Element, bool, error) {
	if types.Equal(a.Type(), target) {
		return a, isFolded(a), nil
	}

	switch to := target.(type) {
	case types.Integer:
		ai, ok := types.IsInteger(a.Type())
		if !ok {
			return nil, false, zerr.Type(loc, "cannot cast %s to %s", a.Type(), target)
		}
		if c, ok := isConstant(a); ok {
			v := wrap(c.Int, to.Bits, to.Signed)
			return IntConstant(v, to.Signed, to.Bits), true, nil
		}
		_ = ai
		return NewValue(to), false, nil

	case types.Field:
		switch a.Type().(type) {
		case types.Integer, types.Field:
		default:
			return nil, false, zerr.Type(loc, "cannot cast %s to field", a.Type())
		}
		if c, ok := isConstant(a); ok {
			return IntConstant(new(big.Int).Set(c.Int), true, 0), true, nil
		}
		return NewValue(types.Field{}), false, nil

	default:
		return nil, false, zerr.Type(loc, "cannot cast to %s", target)
	}
}

func isFolded(e Element) bool {
	_, ok := e.(Constant)
	return ok
}

// wrap reduces v into the 2's-complement range of a Bits-wide integer
// (unsigned [0, 2^Bits) or signed [-2^(Bits-1), 2^(Bits-1))), matching
// the runtime Cast instruction's bit-truncating semantics.
func wrap(v *big.Int, bits int, signed bool) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	r := new(big.Int).Mod(v, mod)
	if r.Sign() < 0 {
		r.Add(r, mod)
	}
	if signed {
		half := new(big.Int).Rsh(mod, 1)
		if r.Cmp(half) >= 0 {
			r.Sub(r, mod)
		}
	}
	return r
}
