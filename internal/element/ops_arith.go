package element

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// resultElement builds the result of a binary integer op: a folded
// Constant if both operands were constants, otherwise a Value of the
// common integer type (the caller is responsible for emitting the
// instruction when the result is not a compile-time fold).
func resultElement(ty types.Integer, ca Constant, aConst bool, cb Constant, bConst bool, fold func(a, b *big.Int) *big.Int) (Element, bool) {
	if aConst && bConst {
		return IntConstant(fold(ca.Int, cb.Int), ty.Signed, ty.Bits), true
	}
	return NewValue(ty), false
}

// Add implements `a + b`. Returns the result element and whether the
// result was folded at compile time (the analyzer skips emitting Add
// when folded==true).
func Add(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "add", a, b)
	if err != nil {
		return nil, false, err
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })
	return e, folded, nil
}

// Sub implements `a - b`.
func Sub(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "sub", a, b)
	if err != nil {
		return nil, false, err
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })
	return e, folded, nil
}

// Mul implements `a * b`.
func Mul(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "mul", a, b)
	if err != nil {
		return nil, false, err
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })
	return e, folded, nil
}

// euclidean computes the unique (q, r) with n = q*d + r and 0 <= r < |d|
// (spec section 4.A's Euclidean division law), rather than Go's
// truncated division.
func euclidean(n, d *big.Int) (q, r *big.Int) {
	q, r = new(big.Int).QuoRem(n, d, new(big.Int))
	if r.Sign() < 0 {
		if d.Sign() > 0 {
			r.Add(r, d)
			q.Sub(q, big.NewInt(1))
		} else {
			r.Sub(r, d)
			q.Add(q, big.NewInt(1))
		}
	}
	return q, r
}

// Div implements `a / b` (Euclidean quotient).
func Div(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "div", a, b)
	if err != nil {
		return nil, false, err
	}
	if bcst && cb.Int.Sign() == 0 {
		return nil, false, zerr.Runtime(loc, "division by zero")
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { q, _ := euclidean(x, y); return q })
	return e, folded, nil
}

// Rem implements `a % b` (Euclidean remainder).
func Rem(loc zerr.Location, a, b Element) (Element, bool, error) {
	ty, ca, acst, cb, bcst, err := integerOperands(loc, "rem", a, b)
	if err != nil {
		return nil, false, err
	}
	if bcst && cb.Int.Sign() == 0 {
		return nil, false, zerr.Runtime(loc, "division by zero")
	}
	e, folded := resultElement(ty, ca, acst, cb, bcst, func(x, y *big.Int) *big.Int { _, r := euclidean(x, y); return r })
	return e, folded, nil
}

// Neg implements unary `-a`.
func Neg(loc zerr.Location, a Element) (Element, bool, error) {
	ai, ok := types.IsInteger(a.Type())
	if !ok {
		if _, isField := a.Type().(types.Field); isField {
			if c, ok := isConstant(a); ok {
				return IntConstant(new(big.Int).Neg(c.Int), true, 0), true, nil
			}
			return NewValue(types.Field{}), false, nil
		}
		return nil, false, zerr.Type(loc, "neg requires a numeric operand, got %s", a.Type())
	}
	if !ai.Signed {
		return nil, false, zerr.Type(loc, "neg requires a signed integer, got %s", ai)
	}
	if c, ok := isConstant(a); ok {
		return IntConstant(new(big.Int).Neg(c.Int), ai.Signed, ai.Bits), true, nil
	}
	return NewValue(ai), false, nil
}
