package analyzer

import (
	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// applyCall implements spec section 4.D's Call handling. Two modes,
// distinguished by a preceding CallBuiltIn auxiliary token: user
// calls verify the callee is a Function, check arity/types, evaluate
// arguments left-to-right (so the first argument ends up deepest on
// the evaluation stack, the reverse of binary operators, whose left
// operand ends up on top) and emit Call(addr, total_input_size); built-in
// calls (`dbg!`, `assert!`) emit a dedicated Dbg/Assert instruction
// instead.
func (a *Analyzer) applyCall(st *exprState, op ast.Operator) error {
	argItems := make([]stackItem, op.Argc)
	for i := op.Argc - 1; i >= 0; i-- {
		argItems[i] = st.pop()
	}
	calleeItem := st.pop()

	if st.builtin {
		return a.applyBuiltinCall(st, op, calleeItem, argItems)
	}

	callee, err := a.resolveItem(calleeItem)
	if err != nil {
		return err
	}
	sig, ok := callee.Type().(types.Function)
	if !ok {
		return zerr.Function(op.Loc, "cannot call non-function value")
	}
	if len(argItems) != len(sig.Arguments) {
		return zerr.Function(op.Loc, "function %s expects %d arguments, got %d", sig.Identifier, len(sig.Arguments), len(argItems))
	}

	totalSize := 0
	for i, item := range argItems {
		argEl, err := a.resolveItem(item)
		if err != nil {
			return err
		}
		want := sig.Arguments[i].Type
		if !types.Equal(argEl.Type(), want) {
			return zerr.Function(op.Loc, "argument %d to %s: expected %s, got %s", i, sig.Identifier, want, argEl.Type())
		}
		totalSize += want.Size()
	}

	fn, ok := a.funcs[sig.Identifier]
	if !ok {
		return zerr.Function(op.Loc, "unresolved function %q", sig.Identifier)
	}
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpCall, Addr: fn.idx, Index: fn.idx, Size: totalSize})
	st.push(element.NewValue(sig.Return))
	return nil
}

// applyBuiltinCall implements the `dbg!`/`assert!` intrinsics: the
// parser's CallBuiltIn marker names which one via the callee operand.
func (a *Analyzer) applyBuiltinCall(st *exprState, op ast.Operator, calleeItem stackItem, argItems []stackItem) error {
	name := calleeItem.operand.Ident
	switch name {
	case "assert":
		if len(argItems) != 1 {
			return zerr.Function(op.Loc, "assert! takes exactly one argument, got %d", len(argItems))
		}
		arg, err := a.resolveItem(argItems[0])
		if err != nil {
			return err
		}
		if _, ok := arg.Type().(types.Bool); !ok {
			return zerr.Function(op.Loc, "assert! requires a bool argument, got %s", arg.Type())
		}
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpAssert})
		st.push(element.NewValue(types.Unit{}))
		return nil
	case "dbg":
		if len(argItems) == 0 {
			return zerr.Function(op.Loc, "dbg! requires a format string argument")
		}
		fmtItem := argItems[0]
		format := fmtItem.operand.StrLit
		for _, item := range argItems[1:] {
			if _, err := a.resolveItem(item); err != nil {
				return err
			}
		}
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpDbg, Format: format, Argc: len(argItems) - 1})
		st.push(element.NewValue(types.Unit{}))
		return nil
	default:
		return zerr.Function(op.Loc, "unknown built-in %q", name)
	}
}
