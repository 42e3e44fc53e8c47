package element

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// integerOperands resolves the integer-typed operands of a binary
// operator per spec section 4.A: two typed Values/Places must share
// exactly the same signedness and bitlength; two untyped constants
// coerce to the narrowest admissible common type; a constant paired
// with a typed operand is pulled to that operand's type.
func integerOperands(loc zerr.Location, op string, a, b Element) (result types.Integer, ca Constant, aIsConst bool, cb Constant, bIsConst bool, err error) {
	ai, aOK := types.IsInteger(a.Type())
	bi, bOK := types.IsInteger(b.Type())
	if !aOK || !bOK {
		return types.Integer{}, Constant{}, false, Constant{}, false, zerr.Type(loc, "%s requires integer operands, got %s and %s", op, a.Type(), b.Type())
	}

	at, aIsConst := a.(Constant)
	bt, bIsConst := b.(Constant)

	switch {
	case aIsConst && at.Bits == 0 && bIsConst && bt.Bits == 0:
		signed := at.Signed || bt.Signed
		bits := ai.Bits
		if bi.Bits > bits {
			bits = bi.Bits
		}
		return types.Integer{Bits: bits, Signed: signed}, at.Pinned(bits, signed), true, bt.Pinned(bits, signed), true, nil
	case aIsConst && at.Bits == 0:
		if err := checkFit(loc, at.Int, bi); err != nil {
			return types.Integer{}, Constant{}, false, Constant{}, false, err
		}
		return bi, at.Pinned(bi.Bits, bi.Signed), true, bt, bIsConst, nil
	case bIsConst && bt.Bits == 0:
		if err := checkFit(loc, bt.Int, ai); err != nil {
			return types.Integer{}, Constant{}, false, Constant{}, false, err
		}
		return ai, at, aIsConst, bt.Pinned(ai.Bits, ai.Signed), true, nil
	default:
		if ai.Bits != bi.Bits || ai.Signed != bi.Signed {
			return types.Integer{}, Constant{}, false, Constant{}, false, zerr.Type(loc, "%s: mismatched integer types %s and %s", op, ai, bi)
		}
		return ai, at, aIsConst, bt, bIsConst, nil
	}
}

// checkFit rejects an integer literal that cannot possibly fit in
// want once pinned (spec section 7: ConstantError for an out-of-range
// literal).
func checkFit(loc zerr.Location, v *big.Int, want types.Integer) error {
	limit := new(big.Int).Lsh(big.NewInt(1), uint(want.Bits))
	if want.Signed {
		limit.Rsh(limit, 1)
		neg := new(big.Int).Neg(limit)
		if v.Cmp(neg) < 0 || v.Cmp(new(big.Int).Sub(limit, big.NewInt(1))) > 0 {
			return zerr.Constant(loc, "integer literal %s out of range for %s", v, want)
		}
		return nil
	}
	if v.Sign() < 0 || v.Cmp(new(big.Int).Sub(limit, big.NewInt(1))) > 0 {
		return zerr.Constant(loc, "integer literal %s out of range for %s", v, want)
	}
	return nil
}

func requireBool(loc zerr.Location, op string, e Element) error {
	if _, ok := e.Type().(types.Bool); !ok {
		return zerr.Type(loc, "%s requires bool operand, got %s", op, e.Type())
	}
	return nil
}

func isConstant(e Element) (Constant, bool) {
	c, ok := e.(Constant)
	return c, ok
}
