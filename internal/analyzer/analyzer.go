// Package analyzer implements the semantic analyzer / bytecode
// generator of spec sections 4.D/4.E: a single forward pass that
// resolves scopes and types, evaluates constant expressions, and
// emits bytecode, grounded on the teacher's compiler.StmtCompiler/
// compiler.Compiler visitor dispatch (internal/compiler/
// stmt_compiler.go, compiler.go) and its two-pass function hoisting
// (internal/compiler/hoisting_compiler.go), generalized from untyped
// dynamic-value compilation to the typed element.Element algebra and
// from a single flat evaluation stack to the hinted
// NotEvaluated/Evaluated stack of §4.D.
package analyzer

import (
	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/scope"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// Analyzer owns the single emitter and scope table that every nested
// sub-analyzer (block, conditional branch, match arm, loop body)
// shares by reference, per spec section 5: "nested expressions spawn
// fresh sub-analyzers that borrow the parent's scope and emitter by
// reference... parent outlives child".
type Analyzer struct {
	emit  *bytecode.Emitter
	sc    *scope.Table
	funcs map[string]funcInfo
	// nextFuncIdx assigns function indices monotonically starting
	// after the three reserved ones (spec section 3: 0=dbg, 1=assert,
	// 2=main).
	nextFuncIdx int
}

type funcInfo struct {
	idx int
	sig types.Function
}

// New creates an analyzer ready to process a CircuitProgram.
func New() *Analyzer {
	return &Analyzer{
		emit:        bytecode.New(),
		sc:          scope.New(),
		funcs:       map[string]funcInfo{},
		nextFuncIdx: bytecode.FuncMain,
	}
}

// Analyze runs the full two-pass hoist-then-compile algorithm over
// prog and returns the completed bytecode program.
func Analyze(prog *ast.CircuitProgram) (*bytecode.Program, error) {
	a := New()
	if err := a.hoistFunctions(prog.Statements); err != nil {
		return nil, err
	}
	for _, s := range prog.Statements {
		if err := a.analyzeStmt(s); err != nil {
			return nil, err
		}
	}
	main, ok := a.funcs["main"]
	if !ok {
		return nil, zerr.Scope(zerr.Location{}, "program has no main function")
	}
	a.emit.ResolveCallTargets()
	return a.emit.Finalize(main.sig.InputSize(), main.sig.Return.Size()), nil
}

// hoistFunctions declares every top-level type (struct/enum/alias)
// first, then collects every FnStmt's signature and assigns it a
// function index before any body is analyzed, so a function can
// reference a type or call another function declared later in the
// same scope (spec section 4.E: "for `fn` also record the function
// entry pc"). Pre-pass grounded on HoistingCompiler.collectFunctions.
func (a *Analyzer) hoistFunctions(stmts []ast.Statement) error {
	for _, s := range stmts {
		if err := a.hoistTypeDecl(s); err != nil {
			return err
		}
	}
	for _, s := range stmts {
		fn, ok := s.(*ast.FnStmt)
		if !ok {
			continue
		}
		if _, dup := a.funcs[fn.Name]; dup {
			return zerr.Scope(fn.Loc, "duplicate function declaration %q", fn.Name)
		}
		sig := types.Function{Identifier: fn.Name}
		for _, p := range fn.Params {
			t, err := a.resolveTypeExpr(p.Type)
			if err != nil {
				return err
			}
			sig.Arguments = append(sig.Arguments, types.FunctionArg{Name: p.Name, Type: t})
		}
		if fn.Return != nil {
			t, err := a.resolveTypeExpr(*fn.Return)
			if err != nil {
				return err
			}
			sig.Return = t
		} else {
			sig.Return = types.Unit{}
		}

		idx := bytecode.FuncMain
		if fn.Name != "main" {
			a.nextFuncIdx++
			idx = a.nextFuncIdx
		}
		a.funcs[fn.Name] = funcInfo{idx: idx, sig: sig}
		a.sc.Declare(scope.Binding{Name: fn.Name, Kind: scope.KindFunction, Func: element.TypeElement{Ty: sig}})
	}
	return nil
}
