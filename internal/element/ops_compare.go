package element

import (
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

type cmpFunc func(cmp int) bool

// compareOp handles `==`/`!=` over bool or integer operands, and
// ordering over integer operands only (callers pass an ordering
// cmpFunc only for Lt/Le/Gt/Ge, which requireInt rejects on bools).
func compareOp(loc zerr.Location, op string, a, b Element, requireInt bool, f cmpFunc) (Element, bool, error) {
	_, aBool := a.Type().(types.Bool)
	_, bBool := b.Type().(types.Bool)
	if aBool && bBool {
		if requireInt {
			return nil, false, zerr.Type(loc, "%s requires integer operands, got bool and bool", op)
		}
		ca, aConst := isConstant(a)
		cb, bConst := isConstant(b)
		if aConst && bConst {
			cmp := 0
			if ca.Bool != cb.Bool {
				if ca.Bool {
					cmp = 1
				} else {
					cmp = -1
				}
			}
			return BoolConstant(f(cmp)), true, nil
		}
		return NewValue(types.Bool{}), false, nil
	}
	_, ca, acst, cb, bcst, err := integerOperands(loc, op, a, b)
	if err != nil {
		return nil, false, err
	}
	if acst && bcst {
		return BoolConstant(f(ca.Int.Cmp(cb.Int))), true, nil
	}
	return NewValue(types.Bool{}), false, nil
}

// Eq implements `a == b`.
func Eq(loc zerr.Location, a, b Element) (Element, bool, error) {
	return compareOp(loc, "eq", a, b, false, func(c int) bool { return c == 0 })
}

// Ne implements `a != b`.
func Ne(loc zerr.Location, a, b Element) (Element, bool, error) {
	return compareOp(loc, "ne", a, b, false, func(c int) bool { return c != 0 })
}

// Lt implements `a < b`.
func Lt(loc zerr.Location, a, b Element) (Element, bool, error) {
	return compareOp(loc, "lt", a, b, true, func(c int) bool { return c < 0 })
}

// Le implements `a <= b`.
func Le(loc zerr.Location, a, b Element) (Element, bool, error) {
	return compareOp(loc, "le", a, b, true, func(c int) bool { return c <= 0 })
}

// Gt implements `a > b`.
func Gt(loc zerr.Location, a, b Element) (Element, bool, error) {
	return compareOp(loc, "gt", a, b, true, func(c int) bool { return c > 0 })
}

// Ge implements `a >= b`.
func Ge(loc zerr.Location, a, b Element) (Element, bool, error) {
	return compareOp(loc, "ge", a, b, true, func(c int) bool { return c >= 0 })
}
