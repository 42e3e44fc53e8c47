package analyzer

import (
	"testing"

	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/field"
	"github.com/sentra-lang/zincvm/internal/vm"
)

// u32 builds the ast.TypeExpr for an unsigned 32-bit integer, the
// shorthand every fixture below needs repeatedly.
func u32() *ast.TypeExpr { return &ast.TypeExpr{Name: "u", Bits: 32} }

func intOperand(v int64) ast.Operand {
	return ast.Operand{Kind: ast.OperandInt, IntLit: v}
}

func identOperand(name string) ast.Operand {
	return ast.Operand{Kind: ast.OperandIdent, Hint: ast.HintValue, Ident: name}
}

func binOp(kind ast.OperatorKind) ast.Operator { return ast.Operator{Kind: kind} }

// mainProgram wraps body as the sole statement list of a `fn main() ->
// u32` declaration, the shape every fixture below needs.
func mainProgram(body []ast.Statement) *ast.CircuitProgram {
	return &ast.CircuitProgram{
		Statements: []ast.Statement{
			&ast.FnStmt{Name: "main", Return: u32(), Body: body},
		},
	}
}

func TestAnalyzeArithmeticTailExpression(t *testing.T) {
	// fn main() -> u32 { let x: u32 = 2; let y: u32 = 3 * 4; x + y }
	body := []ast.Statement{
		&ast.LetStmt{Name: "x", Type: u32(), Value: ast.Expr{Tokens: []ast.Token{intOperand(2)}}},
		&ast.LetStmt{Name: "y", Type: u32(), Value: ast.Expr{Tokens: []ast.Token{
			intOperand(3), intOperand(4), binOp(ast.OpMul),
		}}},
		&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{
			identOperand("x"), identOperand("y"), binOp(ast.OpAdd),
		}}},
	}
	prog, err := Analyze(mainProgram(body))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if prog.MainFunc != bytecode.FuncMain {
		t.Fatalf("MainFunc = %d, want %d", prog.MainFunc, bytecode.FuncMain)
	}
	if prog.MainReturnSize != 1 {
		t.Fatalf("MainReturnSize = %d, want 1", prog.MainReturnSize)
	}

	var ops []bytecode.Op
	for _, instr := range prog.Instructions {
		ops = append(ops, instr.Op)
	}
	wantTail := []bytecode.Op{bytecode.OpAdd, bytecode.OpReturn}
	if len(ops) < len(wantTail) {
		t.Fatalf("program too short: %v", ops)
	}
	got := ops[len(ops)-len(wantTail):]
	for i, op := range wantTail {
		if got[i] != op {
			t.Fatalf("tail op[%d] = %v, want %v (full: %v)", i, got[i], op, ops)
		}
	}
}

func TestAnalyzeConstantFoldsWithNoEmittedOp(t *testing.T) {
	// `const N: u32 = 2 + 3;` folds entirely at analysis time: nothing
	// in main's body should emit an OpAdd for it.
	body := []ast.Statement{
		&ast.ConstStmt{Name: "N", Type: u32(), Value: ast.Expr{Tokens: []ast.Token{
			intOperand(2), intOperand(3), binOp(ast.OpAdd),
		}}},
		&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{identOperand("N")}}},
	}
	prog, err := Analyze(mainProgram(body))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, instr := range prog.Instructions {
		if instr.Op == bytecode.OpAdd {
			t.Fatalf("expected the const initializer to fold, found an emitted OpAdd")
		}
	}
}

func TestAnalyzeUndeclaredIdentifierFails(t *testing.T) {
	body := []ast.Statement{
		&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{identOperand("nope")}}},
	}
	if _, err := Analyze(mainProgram(body)); err == nil {
		t.Fatalf("expected an error for an undeclared identifier")
	}
}

func TestAnalyzeReturnTypeMismatchFails(t *testing.T) {
	// main declares -> u32 but its body is a bool tail expression.
	body := []ast.Statement{
		&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{
			ast.Operand{Kind: ast.OperandBool, BoolLit: true},
		}}},
	}
	if _, err := Analyze(mainProgram(body)); err == nil {
		t.Fatalf("expected a type mismatch error")
	}
}

func TestAnalyzeMissingMainFails(t *testing.T) {
	// helper's own body type-checks cleanly, isolating the failure to
	// the "no main function" check rather than an unrelated mismatch.
	prog := &ast.CircuitProgram{Statements: []ast.Statement{
		&ast.FnStmt{Name: "helper", Return: u32(), Body: []ast.Statement{
			&ast.LetStmt{Name: "n", Type: u32(), Value: ast.Expr{Tokens: []ast.Token{intOperand(1)}}},
			&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{identOperand("n")}}},
		}},
	}}
	if _, err := Analyze(prog); err == nil {
		t.Fatalf("expected an error when no main function is declared")
	}
}

func TestAnalyzeSubtractionExecutesInSourceOrder(t *testing.T) {
	// fn main() -> u32 { let x: u32 = 10; let y: u32 = 3; x - y }
	// a non-commutative op: if the VM consumed the analyzer's emitted
	// operands in the wrong order this would come out as y - x.
	body := []ast.Statement{
		&ast.LetStmt{Name: "x", Type: u32(), Value: ast.Expr{Tokens: []ast.Token{intOperand(10)}}},
		&ast.LetStmt{Name: "y", Type: u32(), Value: ast.Expr{Tokens: []ast.Token{intOperand(3)}}},
		&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{
			identOperand("x"), identOperand("y"), binOp(ast.OpSub),
		}}},
	}
	prog, err := Analyze(mainProgram(body))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	machine, err := vm.New(prog, nil)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	res, err := machine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(7)) {
		t.Fatalf("got %v, want [7]", res.Outputs)
	}
	if ok, sErr := machine.ConstraintSystem().IsSatisfied(); !ok {
		t.Fatalf("constraint system unsatisfied: %v", sErr)
	}
}

func TestAnalyzeFunctionCall(t *testing.T) {
	// fn double(x: u32) -> u32 { x * 2 }
	// fn main() -> u32 { let n: u32 = 21; double(n) }
	double := &ast.FnStmt{
		Name:   "double",
		Params: []ast.ParamDecl{{Name: "x", Type: *u32()}},
		Return: u32(),
		Body: []ast.Statement{
			&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{
				identOperand("x"), intOperand(2), binOp(ast.OpMul),
			}}},
		},
	}
	main := &ast.FnStmt{
		Name:   "main",
		Return: u32(),
		Body: []ast.Statement{
			// bind through a typed let first: an untyped int literal
			// passed straight to a call argument won't coerce to u32
			// the way it does against a typed binary-operator peer.
			&ast.LetStmt{Name: "n", Type: u32(), Value: ast.Expr{Tokens: []ast.Token{intOperand(21)}}},
			&ast.ExprStmt{Expr: ast.Expr{Tokens: []ast.Token{
				ast.Operand{Kind: ast.OperandIdent, Hint: ast.HintValue, Ident: "double"},
				identOperand("n"),
				ast.Operator{Kind: ast.OpCall, Argc: 1},
			}}},
		},
	}
	prog, err := Analyze(&ast.CircuitProgram{Statements: []ast.Statement{double, main}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var sawCall bool
	for _, instr := range prog.Instructions {
		if instr.Op == bytecode.OpCall && instr.Index != bytecode.FuncMain {
			sawCall = true
		}
	}
	if !sawCall {
		t.Fatalf("expected a non-main OpCall for the double() invocation")
	}
}
