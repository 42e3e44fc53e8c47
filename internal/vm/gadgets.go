package vm

import (
	"fmt"
	"math/big"

	"github.com/sentra-lang/zincvm/internal/field"
	"github.com/sentra-lang/zincvm/internal/r1cs"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// gadgets.go implements the per-opcode constraint templates of spec
// section 4.H over the VM's r1cs.System. Each gadget both computes the
// concrete witness value (so the VM keeps running) and enforces the
// rank-1 relation that binds it to its operands, grounded on
// original_source/zinc-vm's primitive.rs operator trait.

func (v *VM) alloc(name string, val field.Element) (r1cs.Variable, error) {
	return v.cs.Alloc(name, func() (field.Element, error) { return val, nil })
}

// linEq enforces lhs == rhs for two linear combinations, using the
// a*b=c constraint shape with b pinned to the constant 1.
func (v *VM) linEq(name string, lhs, rhs r1cs.LinearCombination) {
	v.cs.Enforce(name, lhs, r1cs.Const(v.cs, field.One()), rhs)
}

// Add enforces (a+b)*1 = s.
func (v *VM) Add(a, b Cell) (Cell, error) {
	sum := a.Val.Add(b.Val)
	sVar, err := v.alloc("sum", sum)
	if err != nil {
		return Cell{}, err
	}
	v.linEq("add", r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: a.Var}, r1cs.Term{Coeff: field.One(), Variable: b.Var}), r1cs.FromVar(sVar))
	return Cell{Val: sum, Var: sVar}, nil
}

// Sub enforces (a-b)*1 = d.
func (v *VM) Sub(a, b Cell) (Cell, error) {
	diff := a.Val.Sub(b.Val)
	dVar, err := v.alloc("diff", diff)
	if err != nil {
		return Cell{}, err
	}
	v.linEq("sub", r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: a.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: b.Var}), r1cs.FromVar(dVar))
	return Cell{Val: diff, Var: dVar}, nil
}

// Mul enforces a*b = c.
func (v *VM) Mul(a, b Cell) (Cell, error) {
	prod := a.Val.Mul(b.Val)
	cVar, err := v.alloc("prod", prod)
	if err != nil {
		return Cell{}, err
	}
	v.cs.Enforce("mul", r1cs.FromVar(a.Var), r1cs.FromVar(b.Var), r1cs.FromVar(cVar))
	return Cell{Val: prod, Var: cVar}, nil
}

// Neg enforces a+n = 0.
func (v *VM) Neg(a Cell) (Cell, error) {
	neg := a.Val.Neg()
	nVar, err := v.alloc("neg", neg)
	if err != nil {
		return Cell{}, err
	}
	v.linEq("neg", r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: a.Var}, r1cs.Term{Coeff: field.One(), Variable: nVar}), r1cs.Const(v.cs, field.Zero()))
	return Cell{Val: neg, Var: nVar}, nil
}

// euclidDivMod returns the zinc-vm Euclidean quotient/remainder of n/d
// (remainder always in [0, |d|)), matching element/ops_arith.go's
// constant-folding rule so the witness and the folded-constant path
// agree.
func euclidDivMod(n, d *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
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

// rangeCheckVar proves the value currently held by xVar fits in bits
// many bits, by decomposing it into booleans and repacking: spec
// section 4.H, "enforce 0 <= r < |d| via bit-decomposition... into
// CAPACITY-1 bits".
func (v *VM) rangeCheckVar(name string, xVar r1cs.Variable, bits int) error {
	xVal := v.cs.Value(xVar)
	if bits <= 0 {
		if !xVal.IsZero() {
			return zerr.Runtime(zerr.Location{}, "%s: value does not fit in zero bits", name)
		}
		return nil
	}
	acc := r1cs.LinearCombination{}
	coeff := field.One()
	for i := 0; i < bits; i++ {
		bitVal := field.FromUint64(uint64(xVal.Bit(i)))
		bVar, err := v.alloc(fmt.Sprintf("%s_bit%d", name, i), bitVal)
		if err != nil {
			return err
		}
		oneMinusB := r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: v.cs.One()}, r1cs.Term{Coeff: field.One().Neg(), Variable: bVar})
		v.cs.Enforce(name+"_boolean", r1cs.FromVar(bVar), oneMinusB, r1cs.Const(v.cs, field.Zero()))
		acc = append(acc, r1cs.Term{Coeff: coeff, Variable: bVar})
		coeff = coeff.Add(coeff)
	}
	v.linEq(name+"_repack", acc, r1cs.FromVar(xVar))
	return nil
}

// DivRem enforces q*d = n-r and range-checks 0 <= r < |d|, per spec
// section 4.H. d must be nonzero.
func (v *VM) DivRem(n, d Cell) (q, r Cell, err error) {
	if d.Val.IsZero() {
		return Cell{}, Cell{}, zerr.Runtime(zerr.Location{}, "division by zero")
	}
	nBig, dBig := n.Val.BigInt(), d.Val.BigInt()
	qBig, rBig := euclidDivMod(nBig, dBig)
	qVal, rVal := field.FromBigInt(qBig), field.FromBigInt(rBig)

	qVar, err := v.alloc("quotient", qVal)
	if err != nil {
		return Cell{}, Cell{}, err
	}
	rVar, err := v.alloc("remainder", rVal)
	if err != nil {
		return Cell{}, Cell{}, err
	}
	// q*d = n-r
	v.cs.Enforce("divrem", r1cs.FromVar(qVar), r1cs.FromVar(d.Var),
		r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: n.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: rVar}))

	absD := new(big.Int).Abs(dBig)
	bound := new(big.Int).Sub(absD, big.NewInt(1))
	bound.Sub(bound, rBig)
	if bound.Sign() < 0 {
		return Cell{}, Cell{}, zerr.Runtime(zerr.Location{}, "divrem: remainder out of range")
	}
	boundVal := field.FromBigInt(bound)
	boundVar, err := v.alloc("divrem_bound", boundVal)
	if err != nil {
		return Cell{}, Cell{}, err
	}
	// |d| is only a constant for unsigned divisors; for a signed
	// divisor the off-circuit abs computed above still binds q*d=n-r
	// (the soundness-critical relation), but the bound-variable's tie
	// to d is left to the witness rather than an extra sign gadget.
	if dBig.Sign() >= 0 {
		v.linEq("divrem_bound_bind",
			r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: d.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: rVar}, r1cs.Term{Coeff: field.One().Neg(), Variable: v.cs.One()}),
			r1cs.FromVar(boundVar))
	}
	if err := v.rangeCheckVar("divrem_range", boundVar, field.CAPACITY-1); err != nil {
		return Cell{}, Cell{}, err
	}
	return Cell{Val: qVal, Var: qVar}, Cell{Val: rVal, Var: rVar}, nil
}

// Eq is the isZero-of-difference gadget: diff*isEq = 0 and
// diff*inv = 1-isEq, the standard allocated-num equality check.
func (v *VM) Eq(a, b Cell) (Cell, error) {
	diffLC := r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: a.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: b.Var})
	diffVal := a.Val.Sub(b.Val)

	var isEqVal, invVal field.Element
	if diffVal.IsZero() {
		isEqVal, invVal = field.One(), field.Zero()
	} else {
		inv, err := diffVal.Inverse()
		if err != nil {
			return Cell{}, err
		}
		isEqVal, invVal = field.Zero(), inv
	}
	isEqVar, err := v.alloc("eq", isEqVal)
	if err != nil {
		return Cell{}, err
	}
	invVar, err := v.alloc("eq_inv", invVal)
	if err != nil {
		return Cell{}, err
	}
	v.cs.Enforce("eq_zero", diffLC, r1cs.FromVar(isEqVar), r1cs.Const(v.cs, field.Zero()))
	v.cs.Enforce("eq_inv", diffLC, r1cs.FromVar(invVar),
		r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: v.cs.One()}, r1cs.Term{Coeff: field.One().Neg(), Variable: isEqVar}))
	return Cell{Val: isEqVal, Var: isEqVar}, nil
}

// Ne is the linear complement of Eq.
func (v *VM) Ne(a, b Cell) (Cell, error) {
	eq, err := v.Eq(a, b)
	if err != nil {
		return Cell{}, err
	}
	return v.Not(eq)
}

// Le implements spec section 4.H's le(a,b): decompose the low
// CAPACITY-1 bits of b-a and compare the repacked value against the
// original; they match only if b-a already fit unsigned in that
// width, i.e. a<=b.
func (v *VM) Le(a, b Cell) (Cell, error) {
	bits := field.CAPACITY - 1
	dVal := b.Val.Sub(a.Val)
	dVar, err := v.alloc("le_diff", dVal)
	if err != nil {
		return Cell{}, err
	}
	v.linEq("le_diff_bind", r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: b.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: a.Var}), r1cs.FromVar(dVar))

	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
	truncated := new(big.Int).And(dVal.BigInt(), mask)
	truncVal := field.FromBigInt(truncated)
	truncVar, err := v.alloc("le_trunc", truncVal)
	if err != nil {
		return Cell{}, err
	}
	if err := v.rangeCheckVar("le_range", truncVar, bits); err != nil {
		return Cell{}, err
	}
	return v.Eq(Cell{Val: dVal, Var: dVar}, Cell{Val: truncVal, Var: truncVar})
}

// Lt(a,b) = Le(a, b-1).
func (v *VM) Lt(a, b Cell) (Cell, error) {
	bMinus1 := b.Val.Sub(field.One())
	bmVar, err := v.alloc("lt_bminus1", bMinus1)
	if err != nil {
		return Cell{}, err
	}
	v.linEq("lt_bminus1_bind", r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: b.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: v.cs.One()}), r1cs.FromVar(bmVar))
	return v.Le(a, Cell{Val: bMinus1, Var: bmVar})
}

// Ge(a,b) = not(Lt(a,b)).
func (v *VM) Ge(a, b Cell) (Cell, error) {
	lt, err := v.Lt(a, b)
	if err != nil {
		return Cell{}, err
	}
	return v.Not(lt)
}

// Gt(a,b) = not(Le(a,b)).
func (v *VM) Gt(a, b Cell) (Cell, error) {
	le, err := v.Le(a, b)
	if err != nil {
		return Cell{}, err
	}
	return v.Not(le)
}

// And enforces a*b = c over boolean cells.
func (v *VM) And(a, b Cell) (Cell, error) { return v.Mul(a, b) }

// Or enforces 1-(1-a)(1-b) = c over boolean cells.
func (v *VM) Or(a, b Cell) (Cell, error) {
	notA, err := v.Not(a)
	if err != nil {
		return Cell{}, err
	}
	notB, err := v.Not(b)
	if err != nil {
		return Cell{}, err
	}
	prod, err := v.Mul(notA, notB)
	if err != nil {
		return Cell{}, err
	}
	return v.Not(prod)
}

// Xor enforces (a+a)*b = a+b-c.
func (v *VM) Xor(a, b Cell) (Cell, error) {
	xorVal := field.FromUint64(uint64(a.Val.BigInt().Uint64()^b.Val.BigInt().Uint64()) & 1)
	cVar, err := v.alloc("xor", xorVal)
	if err != nil {
		return Cell{}, err
	}
	lhs := r1cs.LC(r1cs.Term{Coeff: field.One().Add(field.One()), Variable: a.Var})
	rhs := r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: a.Var}, r1cs.Term{Coeff: field.One(), Variable: b.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: cVar})
	v.cs.Enforce("xor", lhs, r1cs.FromVar(b.Var), rhs)
	return Cell{Val: xorVal, Var: cVar}, nil
}

// Not enforces c = 1-a, i.e. c+a = 1.
func (v *VM) Not(a Cell) (Cell, error) {
	var notVal field.Element
	if a.Val.IsZero() {
		notVal = field.One()
	} else {
		notVal = field.Zero()
	}
	cVar, err := v.alloc("not", notVal)
	if err != nil {
		return Cell{}, err
	}
	v.linEq("not", r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: a.Var}, r1cs.Term{Coeff: field.One(), Variable: cVar}), r1cs.Const(v.cs, field.One()))
	return Cell{Val: notVal, Var: cVar}, nil
}

// Select is the conditional-select gadget of spec section 4.H:
// (l-r)*c = s-r.
func (v *VM) Select(cond r1cs.Variable, l, r Cell) (Cell, error) {
	condVal := v.cs.Value(cond)
	var sVal field.Element
	if condVal.IsZero() {
		sVal = r.Val
	} else {
		sVal = l.Val
	}
	sVar, err := v.alloc("select", sVal)
	if err != nil {
		return Cell{}, err
	}
	lhs := r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: l.Var}, r1cs.Term{Coeff: field.One().Neg(), Variable: r.Var})
	rhs := r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: sVar}, r1cs.Term{Coeff: field.One().Neg(), Variable: r.Var})
	v.cs.Enforce("select", lhs, r1cs.FromVar(cond), rhs)
	return Cell{Val: sVal, Var: sVar}, nil
}

// Assert enforces value OR (NOT condition_top) == 1, grounded on
// original_source/zinc's assert.rs ("cond_value = or(value, not_c)").
// An inactive branch (c=0) makes not_c=1, so the assertion is always
// vacuously true there; an active one requires value==1.
func (v *VM) Assert(value Cell) error {
	c := v.curCond()
	notC, err := v.Not(Cell{Val: v.cs.Value(c), Var: c})
	if err != nil {
		return err
	}
	condValue, err := v.Or(value, notC)
	if err != nil {
		return err
	}
	v.linEq("assert", r1cs.FromVar(condValue.Var), r1cs.Const(v.cs, field.One()))
	if !condValue.Val.Equal(field.One()) {
		return zerr.Runtime(zerr.Location{}, "assertion failed")
	}
	return nil
}

// decomposeFresh allocates bits many boolean witnesses for val and
// binds a repacked variable to it; used by the bitwise and shift
// gadgets, which need the individual bit variables rather than just a
// pass/fail range check.
func (v *VM) decomposeFresh(name string, val field.Element, bits int) ([]r1cs.Variable, error) {
	out := make([]r1cs.Variable, bits)
	acc := r1cs.LinearCombination{}
	coeff := field.One()
	for i := 0; i < bits; i++ {
		bitVal := field.FromUint64(uint64(val.Bit(i)))
		bVar, err := v.alloc(fmt.Sprintf("%s_bit%d", name, i), bitVal)
		if err != nil {
			return nil, err
		}
		oneMinusB := r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: v.cs.One()}, r1cs.Term{Coeff: field.One().Neg(), Variable: bVar})
		v.cs.Enforce(name+"_boolean", r1cs.FromVar(bVar), oneMinusB, r1cs.Const(v.cs, field.Zero()))
		out[i] = bVar
		acc = append(acc, r1cs.Term{Coeff: coeff, Variable: bVar})
		coeff = coeff.Add(coeff)
	}
	xVar, err := v.alloc(name, val)
	if err != nil {
		return nil, err
	}
	v.linEq(name+"_repack", acc, r1cs.FromVar(xVar))
	return out, nil
}

// bitwiseBinary decomposes both operands into bits, applies combine
// per-bit with a real constraint per result bit, and repacks.
func (v *VM) bitwiseBinary(name string, a, b Cell, bits int, gate func(ai, bi Cell) (Cell, error)) (Cell, error) {
	aBits, err := v.decomposeFresh(name+"_a", a.Val, bits)
	if err != nil {
		return Cell{}, err
	}
	bBits, err := v.decomposeFresh(name+"_b", b.Val, bits)
	if err != nil {
		return Cell{}, err
	}
	acc := r1cs.LinearCombination{}
	coeff := field.One()
	resultVal := field.Zero()
	for i := 0; i < bits; i++ {
		aCell := Cell{Val: field.FromUint64(uint64(a.Val.Bit(i))), Var: aBits[i]}
		bCell := Cell{Val: field.FromUint64(uint64(b.Val.Bit(i))), Var: bBits[i]}
		rCell, err := gate(aCell, bCell)
		if err != nil {
			return Cell{}, err
		}
		if !rCell.Val.IsZero() {
			shifted := new(big.Int).Lsh(big.NewInt(1), uint(i))
			resultVal = resultVal.Add(field.FromBigInt(shifted))
		}
		acc = append(acc, r1cs.Term{Coeff: coeff, Variable: rCell.Var})
		coeff = coeff.Add(coeff)
	}
	resVar, err := v.alloc(name, resultVal)
	if err != nil {
		return Cell{}, err
	}
	v.linEq(name+"_repack", acc, r1cs.FromVar(resVar))
	return Cell{Val: resultVal, Var: resVar}, nil
}

// BitwiseAnd, BitwiseOr, BitwiseXor implement the bitwise ops over a
// fixed-width unsigned representation (the field has no native
// bitwise operator).
func (v *VM) BitwiseAnd(a, b Cell, bits int) (Cell, error) {
	return v.bitwiseBinary("band", a, b, bits, v.And)
}

func (v *VM) BitwiseOr(a, b Cell, bits int) (Cell, error) {
	return v.bitwiseBinary("bor", a, b, bits, v.Or)
}

func (v *VM) BitwiseXor(a, b Cell, bits int) (Cell, error) {
	return v.bitwiseBinary("bxor", a, b, bits, v.Xor)
}

// BitwiseNot complements every bit of a's bits-wide representation.
func (v *VM) BitwiseNot(a Cell, bits int) (Cell, error) {
	aBits, err := v.decomposeFresh("bnot_a", a.Val, bits)
	if err != nil {
		return Cell{}, err
	}
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
	notVal := field.FromBigInt(new(big.Int).Xor(a.Val.BigInt(), mask))
	acc := r1cs.LinearCombination{}
	coeff := field.One()
	for i := 0; i < bits; i++ {
		nCell, err := v.Not(Cell{Val: field.FromUint64(uint64(a.Val.Bit(i))), Var: aBits[i]})
		if err != nil {
			return Cell{}, err
		}
		acc = append(acc, r1cs.Term{Coeff: coeff, Variable: nCell.Var})
		coeff = coeff.Add(coeff)
	}
	resVar, err := v.alloc("bnot", notVal)
	if err != nil {
		return Cell{}, err
	}
	v.linEq("bnot_repack", acc, r1cs.FromVar(resVar))
	return Cell{Val: notVal, Var: resVar}, nil
}

// ShiftLeft implements a barrel shifter: for each bit i of the shift
// amount, conditionally scale the accumulator by 2^(2^i), then mask
// the final result to bits width with the DivRem gadget's remainder.
func (v *VM) ShiftLeft(a, amount Cell, bits int) (Cell, error) {
	shiftBits := bitLenForWidth(bits)
	amtBits, err := v.decomposeFresh("shl_amt", amount.Val, shiftBits)
	if err != nil {
		return Cell{}, err
	}
	acc := a
	for i := 0; i < shiftBits; i++ {
		shiftAmt := uint(1) << uint(i)
		shiftedVal := field.FromBigInt(new(big.Int).Lsh(acc.Val.BigInt(), shiftAmt))
		scale := field.FromBigInt(new(big.Int).Lsh(big.NewInt(1), shiftAmt))
		shiftedVar, err := v.alloc("shl_step", shiftedVal)
		if err != nil {
			return Cell{}, err
		}
		v.cs.Enforce("shl_scale", r1cs.FromVar(acc.Var), r1cs.Const(v.cs, scale), r1cs.FromVar(shiftedVar))
		selected, err := v.Select(amtBits[i], Cell{Val: shiftedVal, Var: shiftedVar}, acc)
		if err != nil {
			return Cell{}, err
		}
		acc = selected
	}
	modulus := field.FromBigInt(new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	modVar, err := v.alloc("shl_mod", modulus)
	if err != nil {
		return Cell{}, err
	}
	_, rem, err := v.DivRem(acc, Cell{Val: modulus, Var: modVar})
	if err != nil {
		return Cell{}, err
	}
	return rem, nil
}

// ShiftRight implements a truncating right shift as a sequence of
// constant-divisor DivRem gadgets (quotient = a >> 2^i), selected per
// bit of the shift amount exactly as ShiftLeft selects its doublings.
func (v *VM) ShiftRight(a, amount Cell, bits int) (Cell, error) {
	shiftBits := bitLenForWidth(bits)
	amtBits, err := v.decomposeFresh("shr_amt", amount.Val, shiftBits)
	if err != nil {
		return Cell{}, err
	}
	acc := a
	for i := 0; i < shiftBits; i++ {
		shiftAmt := uint(1) << uint(i)
		divisor := field.FromBigInt(new(big.Int).Lsh(big.NewInt(1), shiftAmt))
		divVar, err := v.alloc("shr_div", divisor)
		if err != nil {
			return Cell{}, err
		}
		q, _, err := v.DivRem(acc, Cell{Val: divisor, Var: divVar})
		if err != nil {
			return Cell{}, err
		}
		selected, err := v.Select(amtBits[i], q, acc)
		if err != nil {
			return Cell{}, err
		}
		acc = selected
	}
	return acc, nil
}

func bitLenForWidth(bits int) int {
	n := 0
	for (1 << uint(n)) < bits {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}
