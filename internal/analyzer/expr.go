package analyzer

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/field"
	"github.com/sentra-lang/zincvm/internal/scope"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// stackItem is the evaluation stack's tagged-sum entry (spec section
// 4.D / 9: "Keep the tagged-sum shape; never hide it behind dynamic
// dispatch").
type stackItem struct {
	evaluated bool
	operand   ast.Operand
	el        element.Element
}

// exprState is one analyzeExpr invocation's local evaluation stack.
// A fresh one is built per nested sub-expression so a child never
// disturbs its parent's in-flight operands (spec section 5).
type exprState struct {
	stack   []stackItem
	builtin bool // set by a preceding OpCallBuiltIn token
}

func (s *exprState) push(el element.Element) {
	s.stack = append(s.stack, stackItem{evaluated: true, el: el})
}

func (s *exprState) pushOperand(op ast.Operand) {
	s.stack = append(s.stack, stackItem{operand: op})
}

func (s *exprState) pop() stackItem {
	item := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return item
}

// analyzeExpr runs the central algorithm of spec section 4.D over a
// flat operand/operator token stream, returning the single remaining
// Element.
func (a *Analyzer) analyzeExpr(expr ast.Expr) (element.Element, error) {
	st := &exprState{}
	for _, tok := range expr.Tokens {
		switch t := tok.(type) {
		case ast.Operand:
			st.pushOperand(t)
		case ast.Operator:
			if t.Kind == ast.OpCallBuiltIn {
				st.builtin = true
				continue
			}
			if err := a.applyOperator(st, t); err != nil {
				return nil, err
			}
			st.builtin = false
		default:
			return nil, zerr.Type(zerr.Location{}, "unrecognized token in expression")
		}
	}
	if len(st.stack) != 1 {
		return nil, zerr.Type(zerr.Location{}, "expression did not reduce to a single value (height %d)", len(st.stack))
	}
	return a.resolveItem(st.pop())
}

// resolveItem forces a stack item to an Element, resolving its
// operand now if it has not been evaluated yet (spec section 4.D
// step 1: "If the top is NotEvaluated, resolve it now").
func (a *Analyzer) resolveItem(item stackItem) (element.Element, error) {
	if item.evaluated {
		return item.el, nil
	}
	return a.resolveOperand(item.operand)
}

// resolveOperand translates one Operand into an Element according to
// its translation hint, emitting instructions as a side effect.
func (a *Analyzer) resolveOperand(op ast.Operand) (element.Element, error) {
	switch op.Kind {
	case ast.OperandInt:
		c := element.IntConstant(big.NewInt(op.IntLit), false, 0)
		a.emitPushConst(c)
		return c, nil
	case ast.OperandBool:
		c := element.BoolConstant(op.BoolLit)
		a.emitPushConst(c)
		return c, nil
	case ast.OperandString:
		return element.StringConstant(op.StrLit), nil
	case ast.OperandMemberString:
		return element.MemberString{Name: op.Member}, nil
	case ast.OperandMemberInteger:
		return element.MemberInteger{Index: op.MemberIdx}, nil
	case ast.OperandIdent:
		return a.resolveIdent(op)
	case ast.OperandSub:
		return a.analyzeSubExpr(op.Sub)
	default:
		return nil, zerr.Type(op.Loc, "unrecognized operand kind")
	}
}

// resolveIdent resolves an identifier operand against the scope
// table according to its translation hint.
func (a *Analyzer) resolveIdent(op ast.Operand) (element.Element, error) {
	b, ok := a.sc.Resolve(op.Ident)
	if !ok {
		return nil, zerr.Scope(op.Loc, "undeclared name %q", op.Ident)
	}
	switch op.Hint {
	case ast.HintType:
		if b.Kind != scope.KindType {
			return nil, zerr.Scope(op.Loc, "%q does not name a type", op.Ident)
		}
		return b.Type, nil
	case ast.HintPlace, ast.HintPathExpression:
		if b.Kind != scope.KindValue && b.Kind != scope.KindStatic {
			return nil, zerr.Scope(op.Loc, "%q is not a place", op.Ident)
		}
		return b.Place, nil
	default: // HintValue, HintCompoundTypeMember
		switch b.Kind {
		case scope.KindValue, scope.KindStatic:
			a.emitLoadPush(b.Place)
			return element.NewValue(b.Place.SlicedType), nil
		case scope.KindConst:
			a.emitPushConst(b.Const)
			return b.Const, nil
		case scope.KindFunction:
			return b.Func, nil
		case scope.KindModule:
			return element.ModuleElement{Name: op.Ident}, nil
		default:
			return nil, zerr.Scope(op.Loc, "%q cannot be used as a value", op.Ident)
		}
	}
}

// emitPushConst emits the PushConst instruction for a folded literal.
func (a *Analyzer) emitPushConst(c element.Constant) {
	ct, bits, signed := constPayload(c)
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpPushConst, Const: constToField(c), ConstType: ct, Bits: bits, Signed: signed})
}

// emitLoadPush emits LoadPush/LoadPushArray depending on the place's
// resolved size, or a dynamic indexed load when the place's path
// ends with a DynamicIndexSelector.
func (a *Analyzer) emitLoadPush(p element.Place) {
	if p.Dynamic != nil {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpLoadPushByIndex, Addr: p.Address + p.StaticOff, Size: p.Dynamic.ElemSize, Argc: p.Dynamic.ArrayLen})
		return
	}
	size := p.SlicedType.Size()
	if size > 1 {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpLoadPushArray, Addr: p.ResolvedAddress(), Size: size})
		return
	}
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpLoadPush, Addr: p.ResolvedAddress()})
}

// emitPopStore is emitLoadPush's dual, used by let/assign to store
// the evaluation stack's top into a Place.
func (a *Analyzer) emitPopStore(p element.Place) {
	if p.Dynamic != nil {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpPopStoreByIndex, Addr: p.Address + p.StaticOff, Size: p.Dynamic.ElemSize, Argc: p.Dynamic.ArrayLen})
		return
	}
	size := p.SlicedType.Size()
	if size > 1 {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpPopStoreArray, Addr: p.ResolvedAddress(), Size: size})
		return
	}
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpPopStore, Addr: p.ResolvedAddress()})
}

func constPayload(c element.Constant) (bytecode.ConstType, int, bool) {
	switch c.Kind {
	case element.ConstBool:
		return bytecode.ConstTypeBool, 1, false
	case element.ConstInt:
		if c.Signed {
			return bytecode.ConstTypeSignedInt, c.Bits, true
		}
		return bytecode.ConstTypeUnsignedInt, c.Bits, false
	default:
		return bytecode.ConstTypeField, 0, false
	}
}

func constToField(c element.Constant) field.Element {
	if c.Kind == element.ConstInt {
		return field.FromBigInt(c.Int)
	}
	if c.Kind == element.ConstBool && c.Bool {
		return field.FromInt64(1)
	}
	return field.Zero()
}

// applyOperator pops this operator's operands, applies the Element
// algebra, and emits the corresponding instruction (spec section
// 4.D step 2). Binary operators pop operand_2 before operand_1
// (matching the bytecode's canonical stack order).
func (a *Analyzer) applyOperator(st *exprState, op ast.Operator) error {
	switch op.Kind {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpRem,
		ast.OpAnd, ast.OpOr, ast.OpXor,
		ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe,
		ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShl, ast.OpShr:
		return a.applyBinary(st, op)
	case ast.OpNeg, ast.OpNot, ast.OpBitNot:
		return a.applyUnary(st, op)
	case ast.OpCast:
		return a.applyCast(st, op)
	case ast.OpIndex:
		return a.applyIndex(st, op)
	case ast.OpField:
		return a.applyField(st, op)
	case ast.OpTupleIndex:
		return a.applyTupleIndex(st, op)
	case ast.OpAssign:
		return a.applyAssign(st, op)
	case ast.OpCall:
		return a.applyCall(st, op)
	default:
		return zerr.Type(op.Loc, "unsupported operator")
	}
}

func (a *Analyzer) applyBinary(st *exprState, op ast.Operator) error {
	rhsItem := st.pop()
	lhsItem := st.pop()
	rhs, err := a.resolveItem(rhsItem)
	if err != nil {
		return err
	}
	lhs, err := a.resolveItem(lhsItem)
	if err != nil {
		return err
	}

	var result element.Element
	var folded bool
	var opcode bytecode.Op

	switch op.Kind {
	case ast.OpAdd:
		result, folded, err = element.Add(op.Loc, lhs, rhs)
		opcode = bytecode.OpAdd
	case ast.OpSub:
		result, folded, err = element.Sub(op.Loc, lhs, rhs)
		opcode = bytecode.OpSub
	case ast.OpMul:
		result, folded, err = element.Mul(op.Loc, lhs, rhs)
		opcode = bytecode.OpMul
	case ast.OpDiv:
		result, folded, err = element.Div(op.Loc, lhs, rhs)
		opcode = bytecode.OpDiv
	case ast.OpRem:
		result, folded, err = element.Rem(op.Loc, lhs, rhs)
		opcode = bytecode.OpRem
	case ast.OpAnd:
		result, folded, err = element.And(op.Loc, lhs, rhs)
		opcode = bytecode.OpAnd
	case ast.OpOr:
		result, folded, err = element.Or(op.Loc, lhs, rhs)
		opcode = bytecode.OpOr
	case ast.OpXor:
		result, folded, err = element.Xor(op.Loc, lhs, rhs)
		opcode = bytecode.OpXor
	case ast.OpEq:
		result, folded, err = element.Eq(op.Loc, lhs, rhs)
		opcode = bytecode.OpEq
	case ast.OpNe:
		result, folded, err = element.Ne(op.Loc, lhs, rhs)
		opcode = bytecode.OpNe
	case ast.OpLt:
		result, folded, err = element.Lt(op.Loc, lhs, rhs)
		opcode = bytecode.OpLt
	case ast.OpLe:
		result, folded, err = element.Le(op.Loc, lhs, rhs)
		opcode = bytecode.OpLe
	case ast.OpGt:
		result, folded, err = element.Gt(op.Loc, lhs, rhs)
		opcode = bytecode.OpGt
	case ast.OpGe:
		result, folded, err = element.Ge(op.Loc, lhs, rhs)
		opcode = bytecode.OpGe
	case ast.OpBitAnd:
		result, folded, err = element.BitwiseAnd(op.Loc, lhs, rhs)
		opcode = bytecode.OpBitwiseAnd
	case ast.OpBitOr:
		result, folded, err = element.BitwiseOr(op.Loc, lhs, rhs)
		opcode = bytecode.OpBitwiseOr
	case ast.OpBitXor:
		result, folded, err = element.BitwiseXor(op.Loc, lhs, rhs)
		opcode = bytecode.OpBitwiseXor
	case ast.OpShl:
		result, folded, err = element.ShiftLeft(op.Loc, lhs, rhs)
		opcode = bytecode.OpShiftLeft
	case ast.OpShr:
		result, folded, err = element.ShiftRight(op.Loc, lhs, rhs)
		opcode = bytecode.OpShiftRight
	}
	if err != nil {
		return err
	}
	if !folded {
		instr := bytecode.Instruction{Op: opcode}
		switch op.Kind {
		case ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShl, ast.OpShr:
			if it, ok := types.IsInteger(result.Type()); ok {
				instr.Bits = it.Bits
				instr.Signed = it.Signed
			}
		}
		a.emit.Emit(instr)
	}
	st.push(result)
	return nil
}

func (a *Analyzer) applyUnary(st *exprState, op ast.Operator) error {
	item := st.pop()
	operand, err := a.resolveItem(item)
	if err != nil {
		return err
	}

	var result element.Element
	var folded bool
	var opcode bytecode.Op

	switch op.Kind {
	case ast.OpNeg:
		result, folded, err = element.Neg(op.Loc, operand)
		opcode = bytecode.OpNeg
	case ast.OpNot:
		result, folded, err = element.Not(op.Loc, operand)
		opcode = bytecode.OpNot
	case ast.OpBitNot:
		result, folded, err = element.BitwiseNot(op.Loc, operand)
		opcode = bytecode.OpBitwiseNot
	}
	if err != nil {
		return err
	}
	if !folded {
		instr := bytecode.Instruction{Op: opcode}
		if op.Kind == ast.OpBitNot {
			if it, ok := types.IsInteger(result.Type()); ok {
				instr.Bits = it.Bits
				instr.Signed = it.Signed
			}
		}
		a.emit.Emit(instr)
	}
	st.push(result)
	return nil
}

func (a *Analyzer) applyCast(st *exprState, op ast.Operator) error {
	item := st.pop()
	operand, err := a.resolveItem(item)
	if err != nil {
		return err
	}
	if op.TypeName == nil {
		return zerr.Type(op.Loc, "cast operator missing target type")
	}
	target, err := a.resolveTypeExpr(*op.TypeName)
	if err != nil {
		return err
	}
	result, folded, err := element.Cast(op.Loc, operand, target)
	if err != nil {
		return err
	}
	if !folded {
		it, _ := types.IsInteger(target)
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpCast, Signed: it.Signed, Bits: it.Bits})
	}
	st.push(result)
	return nil
}

func (a *Analyzer) applyIndex(st *exprState, op ast.Operator) error {
	idxItem := st.pop()
	baseItem := st.pop()
	idx, err := a.resolveItem(idxItem)
	if err != nil {
		return err
	}
	base, err := a.resolveItem(baseItem)
	if err != nil {
		return err
	}
	result, err := element.Index(op.Loc, base, idx)
	if err != nil {
		return err
	}
	place := result.(element.Place)
	if place.Dynamic != nil {
		// the just-appended selector is the dynamic one: constrain
		// 0 <= idx < N at the executor via the ByIndex instructions'
		// Size-bounded decomposition (spec section 4.H).
	} else if idxItem.evaluated {
		// constant index path already folded the element offset into
		// the place; emit nothing further here — the later load/store
		// addresses the element directly and no Slice is emitted.
	}
	st.push(place)
	return nil
}

func (a *Analyzer) applyField(st *exprState, op ast.Operator) error {
	item := st.pop()
	base, err := a.resolveItem(item)
	if err != nil {
		return err
	}
	result, err := element.Field(op.Loc, base, op.Name)
	if err != nil {
		return err
	}
	st.push(result)
	return nil
}

func (a *Analyzer) applyTupleIndex(st *exprState, op ast.Operator) error {
	item := st.pop()
	base, err := a.resolveItem(item)
	if err != nil {
		return err
	}
	result, err := element.TupleIndex(op.Loc, base, op.Index)
	if err != nil {
		return err
	}
	st.push(result)
	return nil
}

func (a *Analyzer) applyAssign(st *exprState, op ast.Operator) error {
	rhsItem := st.pop()
	lhsItem := st.pop()
	rhs, err := a.resolveItem(rhsItem)
	if err != nil {
		return err
	}
	lhs, err := a.resolveItem(lhsItem)
	if err != nil {
		return err
	}
	place, err := element.Assign(op.Loc, lhs, rhs)
	if err != nil {
		return err
	}
	a.emitPopStore(place)
	st.push(element.NewValue(types.Unit{}))
	return nil
}
