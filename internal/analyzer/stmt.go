package analyzer

import (
	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/scope"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// analyzeStmt implements spec section 4.E.
func (a *Analyzer) analyzeStmt(s ast.Statement) error {
	switch stmt := s.(type) {
	case *ast.LetStmt:
		return a.analyzeLet(stmt)
	case *ast.ConstStmt:
		return a.analyzeConst(stmt)
	case *ast.StaticStmt:
		return a.analyzeStatic(stmt)
	case *ast.TypeStmt, *ast.StructStmt, *ast.EnumStmt:
		// already declared by hoistTypeDecl.
		return nil
	case *ast.FnStmt:
		return a.analyzeFn(stmt)
	case *ast.ModStmt:
		return a.analyzeMod(stmt)
	case *ast.UseStmt:
		return nil // external module resolution is out of scope (spec section 1)
	case *ast.ExprStmt:
		_, err := a.analyzeExpr(stmt.Expr)
		return err
	default:
		return zerr.Scope(zerr.Location{}, "unrecognized statement")
	}
}

// analyzeLet implements `let name[: T] = e;`: analyze e, optionally
// cast to T, allocate size(T) stack cells, emit pop-store, declare
// the variable at the computed address.
func (a *Analyzer) analyzeLet(s *ast.LetStmt) error {
	val, err := a.analyzeExpr(s.Value)
	if err != nil {
		return err
	}
	if s.Type != nil {
		target, err := a.resolveTypeExpr(*s.Type)
		if err != nil {
			return err
		}
		folded, wasFolded, err := element.Cast(s.Loc, val, target)
		if err != nil {
			return err
		}
		if !wasFolded {
			it, _ := types.IsInteger(target)
			a.emit.Emit(bytecode.Instruction{Op: bytecode.OpCast, Signed: it.Signed, Bits: it.Bits})
		}
		val = folded
	}
	addr := a.emit.Allocate(val.Type().Size())
	place := element.Place{Name: s.Name, Address: addr, Mutable: s.Mutable, BaseType: val.Type(), SlicedType: val.Type()}
	a.emitPopStore(place)
	a.sc.Declare(scope.Binding{Name: s.Name, Kind: scope.KindValue, Mutable: s.Mutable, Place: place})
	return nil
}

// analyzeConst implements `const name: T = e;`: e must be a
// Constant; it is folded in place and declared with no data-stack
// footprint.
func (a *Analyzer) analyzeConst(s *ast.ConstStmt) error {
	val, err := a.analyzeExpr(s.Value)
	if err != nil {
		return err
	}
	c, ok := val.(element.Constant)
	if !ok {
		return zerr.Constant(s.Loc, "const %q initializer is not a compile-time constant", s.Name)
	}
	if s.Type != nil {
		target, err := a.resolveTypeExpr(*s.Type)
		if err != nil {
			return err
		}
		folded, _, err := element.Cast(s.Loc, c, target)
		if err != nil {
			return err
		}
		c = folded.(element.Constant)
	}
	a.sc.Declare(scope.Binding{Name: s.Name, Kind: scope.KindConst, Const: c})
	return nil
}

// analyzeStatic implements `static name: T = e;`: like const but
// also allocates stack space and emits initialization.
func (a *Analyzer) analyzeStatic(s *ast.StaticStmt) error {
	val, err := a.analyzeExpr(s.Value)
	if err != nil {
		return err
	}
	if s.Type != nil {
		target, err := a.resolveTypeExpr(*s.Type)
		if err != nil {
			return err
		}
		folded, wasFolded, err := element.Cast(s.Loc, val, target)
		if err != nil {
			return err
		}
		if !wasFolded {
			it, _ := types.IsInteger(target)
			a.emit.Emit(bytecode.Instruction{Op: bytecode.OpCast, Signed: it.Signed, Bits: it.Bits})
		}
		val = folded
	}
	addr := a.emit.Allocate(val.Type().Size())
	place := element.Place{Name: s.Name, Address: addr, Mutable: false, BaseType: val.Type(), SlicedType: val.Type()}
	a.emitPopStore(place)
	a.sc.Declare(scope.Binding{Name: s.Name, Kind: scope.KindStatic, Place: place})
	return nil
}

// analyzeFn implements function-body analysis: record the function
// entry pc, open a child scope populated with argument bindings
// (each allocated at its left-to-right stack offset), analyze the
// body block, compare its computed type to the declared return type,
// and emit Return(return_size).
func (a *Analyzer) analyzeFn(s *ast.FnStmt) error {
	info := a.funcs[s.Name]
	a.emit.FunctionEnter(info.idx)
	a.sc.Push()
	defer a.sc.Pop()

	for _, arg := range info.sig.Arguments {
		addr := a.emit.Allocate(arg.Type.Size())
		place := element.Place{Name: arg.Name, Address: addr, Mutable: false, BaseType: arg.Type, SlicedType: arg.Type}
		a.sc.Declare(scope.Binding{Name: arg.Name, Kind: scope.KindValue, Place: place})
	}

	bodyType, err := a.analyzeBlockBody(s.Body)
	if err != nil {
		return err
	}
	if !types.Equal(bodyType, info.sig.Return) {
		return zerr.Type(s.Loc, "function %q: body type %s does not match declared return type %s", s.Name, bodyType, info.sig.Return)
	}
	a.emit.FunctionExit(info.sig.Return.Size())
	return nil
}

// analyzeMod analyzes a nested module's body in a child scope; types
// and functions it declares are visible only within it (no
// cross-module `use` resolution — that crosses the parser boundary,
// out of scope per spec section 1).
func (a *Analyzer) analyzeMod(s *ast.ModStmt) error {
	a.sc.Push()
	defer a.sc.Pop()
	if err := a.hoistFunctions(s.Body); err != nil {
		return err
	}
	for _, inner := range s.Body {
		if err := a.analyzeStmt(inner); err != nil {
			return err
		}
	}
	return nil
}

// analyzeBlockBody analyzes a statement list followed by an optional
// trailing expression (a block's value), opening its own child scope
// so `let`-bound locals don't leak past the block (spec section 3:
// "Scopes are push/popped in LIFO order with every block").
func (a *Analyzer) analyzeBlockBody(stmts []ast.Statement) (types.Type, error) {
	a.sc.Push()
	defer a.sc.Pop()
	for _, s := range stmts {
		if tail, ok := s.(*ast.ExprStmt); ok && isLastStatement(stmts, s) {
			val, err := a.analyzeExpr(tail.Expr)
			if err != nil {
				return nil, err
			}
			return val.Type(), nil
		}
		if err := a.analyzeStmt(s); err != nil {
			return nil, err
		}
	}
	return types.Unit{}, nil
}

func isLastStatement(stmts []ast.Statement, s ast.Statement) bool {
	return len(stmts) > 0 && stmts[len(stmts)-1] == s
}
