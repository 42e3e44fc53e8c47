package vm

import (
	"fmt"
	"math/big"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/field"
	"github.com/sentra-lang/zincvm/internal/r1cs"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// Result is the finished execution's flat output cells, in declared
// output order.
type Result struct {
	Outputs []field.Element
}

// Run drives the fetch-decode-execute loop until the bootstrap Exit
// instruction halts it, one r1cs.Namespace per instruction (spec
// section 4.H: "(step, pc)" namespacing), mirroring the teacher's
// EnhancedVM.run dispatch loop.
func (v *VM) Run() (*Result, error) {
	for {
		if v.pc < 0 || v.pc >= len(v.prog.Instructions) {
			return nil, zerr.Runtime(zerr.Location{}, "pc %d out of range", v.pc)
		}
		instr := &v.prog.Instructions[v.pc]
		// no interactive stepping in this executor; OnInstruction's
		// return value is advisory only, so ignore it and continue.
		v.hook.OnInstruction(v, v.pc, instr)
		pop := v.cs.Namespace(fmt.Sprintf("step%d_pc%d_%s", v.step, v.pc, instr.Op))
		result, halt, err := v.step1(instr)
		pop()
		v.step++
		if err != nil {
			v.hook.OnError(v, err, v.pc)
			return nil, err
		}
		if halt {
			return result, nil
		}
	}
}

// step1 executes a single instruction, returning (result, true, nil)
// only when it was the bootstrap Exit.
func (v *VM) step1(instr *bytecode.Instruction) (*Result, bool, error) {
	base := v.curFrame().base

	switch instr.Op {
	case bytecode.OpNoOp:
		v.pc++

	case bytecode.OpLoadPush:
		c, err := v.loadCell(base + instr.Addr)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(c)
		v.pc++

	case bytecode.OpLoadPushArray:
		for i := 0; i < instr.Size; i++ {
			c, err := v.loadCell(base + instr.Addr + i)
			if err != nil {
				return nil, false, err
			}
			v.pushEval(c)
		}
		v.pc++

	case bytecode.OpLoadPushByIndex:
		if err := v.execLoadPushByIndex(instr, base); err != nil {
			return nil, false, err
		}
		v.pc++

	case bytecode.OpPopStore:
		c, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		v.storeCell(base+instr.Addr, c)
		v.pc++

	case bytecode.OpPopStoreArray:
		for i := instr.Size - 1; i >= 0; i-- {
			c, err := v.popEval()
			if err != nil {
				return nil, false, err
			}
			v.storeCell(base+instr.Addr+i, c)
		}
		v.pc++

	case bytecode.OpPopStoreByIndex:
		if err := v.execPopStoreByIndex(instr, base); err != nil {
			return nil, false, err
		}
		v.pc++

	case bytecode.OpCopy:
		c, err := v.loadCell(base + instr.Index)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(c)
		v.pc++

	case bytecode.OpSlice:
		// a constant-offset sub-slice of the top Offset+SliceLen cells:
		// drop the Offset leading cells and keep SliceLen, left to right.
		window := make([]Cell, instr.SliceLen)
		tmp := make([]Cell, instr.Offset+instr.SliceLen)
		for i := len(tmp) - 1; i >= 0; i-- {
			c, err := v.popEval()
			if err != nil {
				return nil, false, err
			}
			tmp[i] = c
		}
		copy(window, tmp[instr.Offset:])
		for _, c := range window {
			v.pushEval(c)
		}
		v.pc++

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpRem:
		// the analyzer emits the right operand before the left one
		// (applyBinary resolves rhsItem first), so the left operand is
		// the one pushed last and therefore popped first here.
		lhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		rhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		var res Cell
		switch instr.Op {
		case bytecode.OpAdd:
			res, err = v.Add(lhs, rhs)
		case bytecode.OpSub:
			res, err = v.Sub(lhs, rhs)
		case bytecode.OpMul:
			res, err = v.Mul(lhs, rhs)
		case bytecode.OpDiv:
			res, _, err = v.DivRem(lhs, rhs)
		case bytecode.OpRem:
			_, res, err = v.DivRem(lhs, rhs)
		}
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpNeg:
		a, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		res, err := v.Neg(a)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpAnd, bytecode.OpOr, bytecode.OpXor:
		rhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		lhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		var res Cell
		switch instr.Op {
		case bytecode.OpAnd:
			res, err = v.And(lhs, rhs)
		case bytecode.OpOr:
			res, err = v.Or(lhs, rhs)
		case bytecode.OpXor:
			res, err = v.Xor(lhs, rhs)
		}
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpNot:
		a, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		res, err := v.Not(a)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpLt, bytecode.OpLe, bytecode.OpEq, bytecode.OpNe, bytecode.OpGe, bytecode.OpGt:
		// same left-popped-first convention as OpAdd/OpSub/... above.
		lhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		rhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		var res Cell
		switch instr.Op {
		case bytecode.OpLt:
			res, err = v.Lt(lhs, rhs)
		case bytecode.OpLe:
			res, err = v.Le(lhs, rhs)
		case bytecode.OpEq:
			res, err = v.Eq(lhs, rhs)
		case bytecode.OpNe:
			res, err = v.Ne(lhs, rhs)
		case bytecode.OpGe:
			res, err = v.Ge(lhs, rhs)
		case bytecode.OpGt:
			res, err = v.Gt(lhs, rhs)
		}
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpBitwiseAnd, bytecode.OpBitwiseOr, bytecode.OpBitwiseXor:
		rhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		lhs, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		bits := instr.Bits
		if bits == 0 {
			bits = field.CAPACITY - 1
		}
		var res Cell
		switch instr.Op {
		case bytecode.OpBitwiseAnd:
			res, err = v.BitwiseAnd(lhs, rhs, bits)
		case bytecode.OpBitwiseOr:
			res, err = v.BitwiseOr(lhs, rhs, bits)
		case bytecode.OpBitwiseXor:
			res, err = v.BitwiseXor(lhs, rhs, bits)
		}
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpBitwiseNot:
		a, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		bits := instr.Bits
		if bits == 0 {
			bits = field.CAPACITY - 1
		}
		res, err := v.BitwiseNot(a, bits)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpShiftLeft, bytecode.OpShiftRight:
		// same left-popped-first convention: the value being shifted is
		// the left operand, the shift count is the right operand.
		a, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		amount, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		bits := instr.Bits
		if bits == 0 {
			bits = field.CAPACITY - 1
		}
		var res Cell
		if instr.Op == bytecode.OpShiftLeft {
			res, err = v.ShiftLeft(a, amount, bits)
		} else {
			res, err = v.ShiftRight(a, amount, bits)
		}
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpCast:
		a, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		res, err := v.Cast(a, instr.Bits, instr.Signed)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpConditionalSelect:
		r, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		l, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		c, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		res, err := v.Select(c.Var, l, r)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(res)
		v.pc++

	case bytecode.OpIf:
		if err := v.execIf(); err != nil {
			return nil, false, err
		}
		v.pc++

	case bytecode.OpElse:
		if err := v.execElse(); err != nil {
			return nil, false, err
		}
		v.pc++

	case bytecode.OpEndIf:
		if err := v.execEndIf(); err != nil {
			return nil, false, err
		}
		v.pc++

	case bytecode.OpLoopBegin:
		fr := v.curFrame()
		fr.blocks = append(fr.blocks, block{kind: blockLoop, startPC: v.pc, iterationsLeft: instr.Count})
		v.pc++

	case bytecode.OpLoopEnd:
		fr := v.curFrame()
		if len(fr.blocks) == 0 {
			return nil, false, zerr.Runtime(zerr.Location{}, "LoopEnd with no open loop")
		}
		blk := &fr.blocks[len(fr.blocks)-1]
		if blk.kind != blockLoop {
			return nil, false, zerr.Runtime(zerr.Location{}, "LoopEnd does not match an open loop")
		}
		blk.iterationsLeft--
		if blk.iterationsLeft > 0 {
			v.pc = blk.startPC + 1
		} else {
			fr.blocks = fr.blocks[:len(fr.blocks)-1]
			v.pc++
		}

	case bytecode.OpCall:
		if err := v.execCall(instr); err != nil {
			return nil, false, err
		}

	case bytecode.OpReturn:
		fr := v.curFrame()
		returnPC := fr.returnPC
		v.hook.OnReturn(v, v.pc)
		v.frames = v.frames[:len(v.frames)-1]
		v.pc = returnPC

	case bytecode.OpExit:
		if instr.Size > len(v.eval) {
			return nil, false, zerr.Runtime(zerr.Location{}, "exit: evaluation stack has fewer than %d cells", instr.Size)
		}
		window := v.eval[len(v.eval)-instr.Size:]
		outs := make([]field.Element, instr.Size)
		for i, c := range window {
			outs[i] = c.Val
		}
		v.eval = v.eval[:len(v.eval)-instr.Size]
		return &Result{Outputs: outs}, true, nil

	case bytecode.OpPushConst:
		cVar, err := v.alloc("const", instr.Const)
		if err != nil {
			return nil, false, err
		}
		v.pushEval(Cell{Val: instr.Const, Var: cVar})
		v.pc++

	case bytecode.OpAssert:
		a, err := v.popEval()
		if err != nil {
			return nil, false, err
		}
		if err := v.Assert(a); err != nil {
			return nil, false, err
		}
		v.pc++

	case bytecode.OpDbg:
		for i := 0; i < instr.Argc; i++ {
			if _, err := v.popEval(); err != nil {
				return nil, false, err
			}
		}
		v.pc++

	case bytecode.OpFile, bytecode.OpFunction, bytecode.OpLine, bytecode.OpColumn:
		// pure debug-location markers; no constraint effect.
		v.pc++

	default:
		return nil, false, zerr.Runtime(zerr.Location{}, "unhandled opcode %s", instr.Op)
	}
	return nil, false, nil
}

// execLoadPushByIndex implements the dynamic-index memory read: the
// index cell sits on top of the evaluation stack (pushed when the
// index subexpression was analyzed, immediately before this
// instruction), below nothing else. Every candidate slot is visited
// and conditionally selected by equality with the witnessed index, an
// equality-multiplexer equivalent to a balanced binary selection tree.
func (v *VM) execLoadPushByIndex(instr *bytecode.Instruction, base int) error {
	idx, err := v.popEval()
	if err != nil {
		return err
	}
	arrayLen := instr.Argc
	if arrayLen == 0 {
		arrayLen = 1
	}
	elemSize := instr.Size
	out := make([]Cell, elemSize)
	for j := 0; j < elemSize; j++ {
		var acc Cell
		for k := 0; k < arrayLen; k++ {
			cell, err := v.loadCell(base + instr.Addr + k*elemSize + j)
			if err != nil {
				return err
			}
			kCell, err := v.alloc("idx_k", field.FromInt64(int64(k)))
			if err != nil {
				return err
			}
			eq, err := v.Eq(idx, Cell{Val: field.FromInt64(int64(k)), Var: kCell})
			if err != nil {
				return err
			}
			if k == 0 {
				acc = cell
			} else {
				acc, err = v.Select(eq.Var, cell, acc)
				if err != nil {
					return err
				}
			}
		}
		out[j] = acc
	}
	for _, c := range out {
		v.pushEval(c)
	}
	return nil
}

// execPopStoreByIndex is execLoadPushByIndex's dual: pop the Size
// cells to store (top of stack), then the index below them, and
// conditionally overwrite only the matching slot of each of the
// ArrayLen candidates.
func (v *VM) execPopStoreByIndex(instr *bytecode.Instruction, base int) error {
	elemSize := instr.Size
	stored := make([]Cell, elemSize)
	for j := elemSize - 1; j >= 0; j-- {
		c, err := v.popEval()
		if err != nil {
			return err
		}
		stored[j] = c
	}
	idx, err := v.popEval()
	if err != nil {
		return err
	}
	arrayLen := instr.Argc
	if arrayLen == 0 {
		arrayLen = 1
	}
	for k := 0; k < arrayLen; k++ {
		kCell, err := v.alloc("idx_k", field.FromInt64(int64(k)))
		if err != nil {
			return err
		}
		eq, err := v.Eq(idx, Cell{Val: field.FromInt64(int64(k)), Var: kCell})
		if err != nil {
			return err
		}
		for j := 0; j < elemSize; j++ {
			addr := base + instr.Addr + k*elemSize + j
			old, err := v.loadCell(addr)
			if err != nil {
				return err
			}
			selected, err := v.Select(eq.Var, stored[j], old)
			if err != nil {
				return err
			}
			v.storeCell(addr, selected)
		}
	}
	return nil
}

func cloneCells(src []Cell) []Cell {
	out := make([]Cell, len(src))
	copy(out, src)
	return out
}

// mergeCells conditionally selects between two (possibly
// different-length) snapshots, padding the shorter with v.zero.
func (v *VM) mergeCells(cond r1cs.Variable, thenS, elseS []Cell) ([]Cell, error) {
	n := len(thenS)
	if len(elseS) > n {
		n = len(elseS)
	}
	out := make([]Cell, n)
	for i := 0; i < n; i++ {
		t, e := v.zero, v.zero
		if i < len(thenS) {
			t = thenS[i]
		}
		if i < len(elseS) {
			e = elseS[i]
		}
		merged, err := v.Select(cond, t, e)
		if err != nil {
			return nil, err
		}
		out[i] = merged
	}
	return out, nil
}

func (v *VM) execIf() error {
	condCell, err := v.popEval()
	if err != nil {
		return err
	}
	outer := v.curCond()
	conj, err := v.And(Cell{Val: v.cs.Value(outer), Var: outer}, condCell)
	if err != nil {
		return err
	}
	v.cond = append(v.cond, conj.Var)

	fr := v.curFrame()
	fr.blocks = append(fr.blocks, block{
		kind:         blockBranch,
		condVar:      condCell.Var,
		dataSnapshot: cloneCells(v.data),
		evalBase:     len(v.eval),
	})
	return nil
}

func (v *VM) execElse() error {
	fr := v.curFrame()
	if len(fr.blocks) == 0 {
		return zerr.Runtime(zerr.Location{}, "Else with no open If")
	}
	blk := &fr.blocks[len(fr.blocks)-1]
	if blk.kind != blockBranch || blk.elseSeen {
		return zerr.Runtime(zerr.Location{}, "Else does not match an open If")
	}
	blk.thenData = cloneCells(v.data)
	blk.thenEval = cloneCells(v.eval[blk.evalBase:])
	blk.elseSeen = true

	v.data = cloneCells(blk.dataSnapshot)
	v.eval = v.eval[:blk.evalBase]

	notLocal, err := v.Not(Cell{Val: v.cs.Value(blk.condVar), Var: blk.condVar})
	if err != nil {
		return err
	}
	outerVar := v.cond[len(v.cond)-2]
	conj, err := v.And(Cell{Val: v.cs.Value(outerVar), Var: outerVar}, notLocal)
	if err != nil {
		return err
	}
	v.cond[len(v.cond)-1] = conj.Var
	return nil
}

func (v *VM) execEndIf() error {
	fr := v.curFrame()
	if len(fr.blocks) == 0 {
		return zerr.Runtime(zerr.Location{}, "EndIf with no open If")
	}
	blk := fr.blocks[len(fr.blocks)-1]
	if blk.kind != blockBranch {
		return zerr.Runtime(zerr.Location{}, "EndIf does not match an open If")
	}
	fr.blocks = fr.blocks[:len(fr.blocks)-1]
	v.cond = v.cond[:len(v.cond)-1]

	var thenData, elseData, thenEval, elseEval []Cell
	if blk.elseSeen {
		thenData, thenEval = blk.thenData, blk.thenEval
		elseData, elseEval = v.data, cloneCells(v.eval[blk.evalBase:])
	} else {
		thenData, thenEval = v.data, cloneCells(v.eval[blk.evalBase:])
		elseData, elseEval = blk.dataSnapshot, nil
	}

	mergedData, err := v.mergeCells(blk.condVar, thenData, elseData)
	if err != nil {
		return err
	}
	mergedEval, err := v.mergeCells(blk.condVar, thenEval, elseEval)
	if err != nil {
		return err
	}
	v.data = mergedData
	v.eval = v.eval[:blk.evalBase]
	for _, c := range mergedEval {
		v.pushEval(c)
	}
	return nil
}

func (v *VM) execCall(instr *bytecode.Instruction) error {
	size := instr.Size
	if size > len(v.eval) {
		return zerr.Runtime(zerr.Location{}, "call: evaluation stack has fewer than %d arguments", size)
	}
	args := make([]Cell, size)
	for i := size - 1; i >= 0; i-- {
		c, err := v.popEval()
		if err != nil {
			return err
		}
		args[i] = c
	}
	newBase := len(v.data)
	v.data = append(v.data, args...)
	v.frames = append(v.frames, frame{base: newBase, returnPC: v.pc + 1, funcIdx: instr.Index})
	v.hook.OnCall(v, instr.Index, v.pc)
	v.pc = instr.Addr
	return nil
}

// Cast enforces the integer/field truncation spec's wrap() rule: for
// a narrowing or re-signing cast, range-check the low Bits bits of the
// operand and rebuild the signed/unsigned representative from them.
func (v *VM) Cast(a Cell, bits int, signed bool) (Cell, error) {
	if bits == 0 {
		return a, nil
	}
	aBig := a.Val.BigInt()
	mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	r := new(big.Int).Mod(aBig, mod)
	if r.Sign() < 0 {
		r.Add(r, mod)
	}
	unsignedVal := field.FromBigInt(r)
	uVar, err := v.alloc("cast_unsigned", unsignedVal)
	if err != nil {
		return Cell{}, err
	}
	if err := v.rangeCheckVar("cast_range", uVar, bits); err != nil {
		return Cell{}, err
	}

	// bind uVar back to the actual cast input: a = uVar + k*2^bits, with
	// k itself range-checked, so uVar is forced to be a's low `bits`
	// bits rather than an unrelated in-range witness (same bound-
	// variable technique DivRem uses to tie its range check back to
	// the operands).
	kBig := new(big.Int).Rsh(aBig, uint(bits))
	kVal := field.FromBigInt(kBig)
	kVar, err := v.alloc("cast_quotient", kVal)
	if err != nil {
		return Cell{}, err
	}
	kBits := field.CAPACITY - bits
	if kBits < 0 {
		kBits = 0
	}
	if err := v.rangeCheckVar("cast_quotient_range", kVar, kBits); err != nil {
		return Cell{}, err
	}
	v.linEq("cast_bind",
		r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: uVar}, r1cs.Term{Coeff: field.FromBigInt(mod), Variable: kVar}),
		r1cs.FromVar(a.Var))

	result := r
	if signed {
		half := new(big.Int).Rsh(mod, 1)
		if r.Cmp(half) >= 0 {
			result = new(big.Int).Sub(r, mod)
		}
	}
	resultVal := field.FromBigInt(result)
	resVar, err := v.alloc("cast_result", resultVal)
	if err != nil {
		return Cell{}, err
	}
	if signed {
		// result = r - mod*sign_bit, where sign_bit is r's top bit; bind
		// it as a linear combination of the already-verified uVar.
		topBitVal := field.Zero()
		if r.Cmp(new(big.Int).Rsh(mod, 1)) >= 0 {
			topBitVal = field.One()
		}
		signVar, err := v.alloc("cast_sign", topBitVal)
		if err != nil {
			return Cell{}, err
		}
		v.linEq("cast_sign_repack",
			r1cs.LC(r1cs.Term{Coeff: field.One(), Variable: uVar}, r1cs.Term{Coeff: field.FromBigInt(mod).Neg(), Variable: signVar}),
			r1cs.FromVar(resVar))
	} else {
		v.linEq("cast_unsigned_bind", r1cs.FromVar(uVar), r1cs.FromVar(resVar))
	}
	return Cell{Val: resultVal, Var: resVar}, nil
}
