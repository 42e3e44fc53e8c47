package element

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// And implements boolean `&&`.
func And(loc zerr.Location, a, b Element) (Element, bool, error) {
	if err := requireBool(loc, "and", a); err != nil {
		return nil, false, err
	}
	if err := requireBool(loc, "and", b); err != nil {
		return nil, false, err
	}
	ca, aConst := isConstant(a)
	cb, bConst := isConstant(b)
	if aConst && bConst {
		return BoolConstant(ca.Bool && cb.Bool), true, nil
	}
	return NewValue(types.Bool{}), false, nil
}

// Or implements boolean `||`.
func Or(loc zerr.Location, a, b Element) (Element, bool, error) {
	if err := requireBool(loc, "or", a); err != nil {
		return nil, false, err
	}
	if err := requireBool(loc, "or", b); err != nil {
		return nil, false, err
	}
	ca, aConst := isConstant(a)
	cb, bConst := isConstant(b)
	if aConst && bConst {
		return BoolConstant(ca.Bool || cb.Bool), true, nil
	}
	return NewValue(types.Bool{}), false, nil
}

// Xor implements boolean `^^`.
func Xor(loc zerr.Location, a, b Element) (Element, bool, error) {
	if err := requireBool(loc, "xor", a); err != nil {
		return nil, false, err
	}
	if err := requireBool(loc, "xor", b); err != nil {
		return nil, false, err
	}
	ca, aConst := isConstant(a)
	cb, bConst := isConstant(b)
	if aConst && bConst {
		return BoolConstant(ca.Bool != cb.Bool), true, nil
	}
	return NewValue(types.Bool{}), false, nil
}

// Not implements boolean `!`.
func Not(loc zerr.Location, a Element) (Element, bool, error) {
	if err := requireBool(loc, "not", a); err != nil {
		return nil, false, err
	}
	if c, ok := isConstant(a); ok {
		return BoolConstant(!c.Bool), true, nil
	}
	return NewValue(types.Bool{}), false, nil
}

// BitwiseAnd implements `a & b`.
func BitwiseAnd(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "bitand", a, b)
	if err != nil {
		return nil, false, err
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })
	return e, folded, nil
}

// BitwiseOr implements `a | b`.
func BitwiseOr(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "bitor", a, b)
	if err != nil {
		return nil, false, err
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })
	return e, folded, nil
}

// BitwiseXor implements `a ^ b`.
func BitwiseXor(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "bitxor", a, b)
	if err != nil {
		return nil, false, err
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { return new(big.Int).Xor(x, y) })
	return e, folded, nil
}

// BitwiseNot implements unary `~a`.
func BitwiseNot(loc zerr.Location, a Element) (Element, bool, error) {
	ai, ok := types.IsInteger(a.Type())
	if !ok {
		return nil, false, zerr.Type(loc, "bitnot requires an integer operand, got %s", a.Type())
	}
	if c, ok := isConstant(a); ok {
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(ai.Bits)), big.NewInt(1))
		v := new(big.Int).Xor(c.Int, mask)
		v.And(v, mask)
		return IntConstant(v, ai.Signed, ai.Bits), true, nil
	}
	return NewValue(ai), false, nil
}

// shift is shared by ShiftLeft/ShiftRight: the shift amount is always
// an unsigned, untyped-constant-or-typed integer; only the left
// operand's type survives into the result (spec 4.A).
func shift(loc zerr.Location, op string, a, b Element, fold func(v *big.Int, n uint, bits int) *big.Int) (Element, bool, error) {
	ai, ok := types.IsInteger(a.Type())
	if !ok {
		return nil, false, zerr.Type(loc, "%s requires an integer left operand, got %s", op, a.Type())
	}
	bi, ok := types.IsInteger(b.Type())
	if !ok {
		return nil, false, zerr.Type(loc, "%s requires an integer shift amount, got %s", op, b.Type())
	}
	if bi.Signed {
		if c, ok := isConstant(b); !ok || c.Int.Sign() < 0 {
			return nil, false, zerr.Type(loc, "%s requires a non-negative shift amount", op)
		}
	}
	ca, aConst := isConstant(a)
	cb, bConst := isConstant(b)
	if aConst && bConst {
		return IntConstant(fold(ca.Int, uint(cb.Int.Uint64()), ai.Bits), ai.Signed, ai.Bits), true, nil
	}
	return NewValue(ai), false, nil
}

// ShiftLeft implements `a << b`.
func ShiftLeft(loc zerr.Location, a, b Element) (Element, bool, error) {
	return shift(loc, "shl", a, b, func(v *big.Int, n uint, bits int) *big.Int {
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
		r := new(big.Int).Lsh(v, n)
		return r.And(r, mask)
	})
}

// ShiftRight implements `a >> b` (logical, per spec: bit patterns, not
// arithmetic sign-extension, even for signed integer types).
func ShiftRight(loc zerr.Location, a, b Element) (Element, bool, error) {
	return shift(loc, "shr", a, b, func(v *big.Int, n uint, bits int) *big.Int {
		return new(big.Int).Rsh(v, n)
	})
}
