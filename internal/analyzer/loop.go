package analyzer

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/scope"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// analyzeLoop implements spec section 4.D's Loop: `for i in a..b` or
// `a..=b`, with an optional `while` clause. Range bounds must be
// compile-time constants (the iteration count is baked into
// LoopBegin, unrolling the loop in the constraint system); the index
// is given the narrowest integer type holding both bounds.
func (a *Analyzer) analyzeLoop(sub *ast.SubExpr) (element.Element, error) {
	fromEl, err := a.analyzeExpr(sub.RangeFrom)
	if err != nil {
		return nil, err
	}
	fromC, ok := fromEl.(element.Constant)
	if !ok || fromC.Kind != element.ConstInt {
		return nil, zerr.Type(zerr.Location{}, "loop range start must be a compile-time integer constant")
	}
	toEl, err := a.analyzeExpr(sub.RangeTo)
	if err != nil {
		return nil, err
	}
	toC, ok := toEl.(element.Constant)
	if !ok || toC.Kind != element.ConstInt {
		return nil, zerr.Type(zerr.Location{}, "loop range end must be a compile-time integer constant")
	}

	from, to := fromC.Int, toC.Int
	signed := from.Sign() < 0 || to.Sign() < 0
	bits := loopBoundBits(from, to, signed)
	idxType := types.Integer{Bits: bits, Signed: signed}

	diff := new(big.Int).Sub(to, from)
	diff.Abs(diff)
	count := diff.Int64()
	if sub.RangeInclusive {
		count++
	}
	if count < 0 {
		return nil, zerr.Type(zerr.Location{}, "loop has a negative iteration count")
	}

	idxAddr := a.emit.Allocate(idxType.Size())
	idxPlace := element.Place{Name: sub.LoopVar, Address: idxAddr, Mutable: true, BaseType: idxType, SlicedType: idxType}
	a.emitPushConst(element.IntConstant(new(big.Int).Set(from), signed, bits))
	a.emitPopStore(idxPlace)

	hasWhile := sub.While != nil
	var whilePlace element.Place
	if hasWhile {
		whileAddr := a.emit.Allocate(1)
		whilePlace = element.Place{Name: "<while-allowed>", Address: whileAddr, Mutable: true, BaseType: types.Bool{}, SlicedType: types.Bool{}}
		a.emitPushConst(element.BoolConstant(true))
		a.emitPopStore(whilePlace)
	}

	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpLoopBegin, Count: int(count)})

	a.sc.Push()
	a.sc.Declare(scope.Binding{Name: sub.LoopVar, Kind: scope.KindValue, Mutable: true, Place: idxPlace})

	if hasWhile {
		cond, err := a.analyzeExpr(*sub.While)
		if err != nil {
			a.sc.Pop()
			return nil, err
		}
		if _, ok := cond.Type().(types.Bool); !ok {
			a.sc.Pop()
			return nil, zerr.Type(zerr.Location{}, "while clause must be bool, got %s", cond.Type())
		}
		if _, folded := cond.(element.Constant); !folded {
			a.emit.Emit(bytecode.Instruction{Op: bytecode.OpNot})
		}
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpIf})
		a.emitPushConst(element.BoolConstant(false))
		a.emitPopStore(whilePlace)
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpEndIf})

		a.emitLoadPush(whilePlace)
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpIf})
	}

	bodyType, err := a.analyzeBlockBody(sub.Body.Statements)
	if err != nil {
		a.sc.Pop()
		return nil, err
	}
	if !types.Equal(bodyType, types.Unit{}) {
		a.sc.Pop()
		return nil, zerr.Type(zerr.Location{}, "loop body must produce unit, got %s", bodyType)
	}

	if hasWhile {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpEndIf})
	}

	a.emitLoadPush(idxPlace)
	a.emitPushConst(element.IntConstant(big.NewInt(1), signed, bits))
	if to.Cmp(from) < 0 {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpSub})
	} else {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpAdd})
	}
	a.emitPopStore(idxPlace)

	a.sc.Pop()
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpLoopEnd})

	return element.NewValue(types.Unit{}), nil
}

// loopBoundBits infers the narrowest standard integer width holding
// both range bounds.
func loopBoundBits(from, to *big.Int, signed bool) int {
	bl := from.BitLen()
	if to.BitLen() > bl {
		bl = to.BitLen()
	}
	if signed {
		bl++
	}
	for _, n := range []int{8, 16, 32, 64, 128} {
		if bl <= n {
			return n
		}
	}
	return 128
}
