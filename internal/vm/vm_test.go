package vm

import (
	"math/big"
	"testing"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/field"
)

func constInstr(v int64) bytecode.Instruction {
	return bytecode.Instruction{Op: bytecode.OpPushConst, Const: field.FromInt64(v), ConstType: bytecode.ConstTypeUnsignedInt, Bits: 32}
}

func mainProgram(mainBody []bytecode.Instruction, mainInputSize, mainReturnSize int) *bytecode.Program {
	instrs := append([]bytecode.Instruction{
		{Op: bytecode.OpCall, Addr: 2, Index: bytecode.FuncMain, Size: mainInputSize},
		{Op: bytecode.OpExit, Size: mainReturnSize},
	}, mainBody...)
	return &bytecode.Program{
		Instructions:   instrs,
		FunctionAddrs:  map[int]int{bytecode.FuncMain: 2},
		MainFunc:       bytecode.FuncMain,
		MainInputSize:  mainInputSize,
		MainReturnSize: mainReturnSize,
	}
}

func runProgram(t *testing.T, prog *bytecode.Program, inputs []*big.Int) *Result {
	t.Helper()
	machine, err := New(prog, inputs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := machine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ok, err := machine.ConstraintSystem().IsSatisfied()
	if !ok {
		t.Fatalf("constraint system unsatisfied: %v", err)
	}
	return res
}

func TestArithmetic(t *testing.T) {
	// 2 + 3*4 == 14
	prog := mainProgram([]bytecode.Instruction{
		constInstr(2),
		constInstr(3),
		constInstr(4),
		{Op: bytecode.OpMul},
		{Op: bytecode.OpAdd},
		{Op: bytecode.OpReturn, Size: 1},
	}, 0, 1)

	res := runProgram(t, prog, nil)
	if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(14)) {
		t.Fatalf("got %v, want [14]", res.Outputs)
	}
}

func TestBranching(t *testing.T) {
	// if c { 7 } else { 9 }
	body := []bytecode.Instruction{
		{Op: bytecode.OpLoadPush, Addr: 0},
		{Op: bytecode.OpIf},
		constInstr(7),
		{Op: bytecode.OpElse},
		constInstr(9),
		{Op: bytecode.OpEndIf},
		{Op: bytecode.OpReturn, Size: 1},
	}
	prog := mainProgram(body, 1, 1)

	cases := []struct {
		in   int64
		want int64
	}{
		{1, 7},
		{0, 9},
	}
	for _, c := range cases {
		res := runProgram(t, prog, []*big.Int{big.NewInt(c.in)})
		if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(c.want)) {
			t.Errorf("input %d: got %v, want [%d]", c.in, res.Outputs, c.want)
		}
	}
}

func TestLoop(t *testing.T) {
	// let mut s = 0; for i in 0..10 { s = s + i; } s == 45
	body := []bytecode.Instruction{
		constInstr(0),
		{Op: bytecode.OpPopStore, Addr: 0}, // sum
		constInstr(0),
		{Op: bytecode.OpPopStore, Addr: 1}, // i
		{Op: bytecode.OpLoopBegin, Count: 10},
		{Op: bytecode.OpLoadPush, Addr: 0},
		{Op: bytecode.OpLoadPush, Addr: 1},
		{Op: bytecode.OpAdd},
		{Op: bytecode.OpPopStore, Addr: 0},
		{Op: bytecode.OpLoadPush, Addr: 1},
		constInstr(1),
		{Op: bytecode.OpAdd},
		{Op: bytecode.OpPopStore, Addr: 1},
		{Op: bytecode.OpLoopEnd},
		{Op: bytecode.OpLoadPush, Addr: 0},
		{Op: bytecode.OpReturn, Size: 1},
	}
	prog := mainProgram(body, 0, 1)

	res := runProgram(t, prog, nil)
	if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(45)) {
		t.Fatalf("got %v, want [45]", res.Outputs)
	}
}

func TestMatch(t *testing.T) {
	// match x { 1 => 10, 2 => 20, _ => 0 }
	body := []bytecode.Instruction{
		{Op: bytecode.OpLoadPush, Addr: 0},
		constInstr(1),
		{Op: bytecode.OpEq},
		{Op: bytecode.OpIf},
		constInstr(10),
		{Op: bytecode.OpElse},
		{Op: bytecode.OpLoadPush, Addr: 0},
		constInstr(2),
		{Op: bytecode.OpEq},
		{Op: bytecode.OpIf},
		constInstr(20),
		{Op: bytecode.OpElse},
		constInstr(0),
		{Op: bytecode.OpEndIf},
		{Op: bytecode.OpEndIf},
		{Op: bytecode.OpReturn, Size: 1},
	}
	prog := mainProgram(body, 1, 1)

	cases := []struct {
		in   int64
		want int64
	}{
		{2, 20},
		{5, 0},
	}
	for _, c := range cases {
		res := runProgram(t, prog, []*big.Int{big.NewInt(c.in)})
		if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(c.want)) {
			t.Errorf("input %d: got %v, want [%d]", c.in, res.Outputs, c.want)
		}
	}
}

func TestFunctionCall(t *testing.T) {
	// fn min(a, b) { if a < b { a } else { b } }; main() { min(5, 3) }
	const minFunc = 3
	main := []bytecode.Instruction{
		constInstr(5),
		constInstr(3),
		{Op: bytecode.OpCall, Addr: 6, Index: minFunc, Size: 2},
		{Op: bytecode.OpReturn, Size: 1},
	}
	minBody := []bytecode.Instruction{
		// non-commutative binary ops pop the left operand first (it was
		// pushed last), so push b (the right operand) before a.
		{Op: bytecode.OpLoadPush, Addr: 1},
		{Op: bytecode.OpLoadPush, Addr: 0},
		{Op: bytecode.OpLt},
		{Op: bytecode.OpIf},
		{Op: bytecode.OpLoadPush, Addr: 0},
		{Op: bytecode.OpElse},
		{Op: bytecode.OpLoadPush, Addr: 1},
		{Op: bytecode.OpEndIf},
		{Op: bytecode.OpReturn, Size: 1},
	}
	instrs := append([]bytecode.Instruction{
		{Op: bytecode.OpCall, Addr: 2, Index: bytecode.FuncMain, Size: 0},
		{Op: bytecode.OpExit, Size: 1},
	}, main...)
	instrs = append(instrs, minBody...)
	prog := &bytecode.Program{
		Instructions:   instrs,
		FunctionAddrs:  map[int]int{bytecode.FuncMain: 2, minFunc: 6},
		MainFunc:       bytecode.FuncMain,
		MainInputSize:  0,
		MainReturnSize: 1,
	}

	res := runProgram(t, prog, nil)
	if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(3)) {
		t.Fatalf("got %v, want [3]", res.Outputs)
	}
}

func TestSubtractionOperandOrder(t *testing.T) {
	// 5 - 2 == 3: a non-commutative op, pushed rhs-then-lhs (the real
	// analyzer convention), must not come out as 2 - 5.
	body := []bytecode.Instruction{
		constInstr(2),
		constInstr(5),
		{Op: bytecode.OpSub},
		{Op: bytecode.OpReturn, Size: 1},
	}
	prog := mainProgram(body, 0, 1)

	res := runProgram(t, prog, nil)
	if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(3)) {
		t.Fatalf("got %v, want [3]", res.Outputs)
	}
}

func TestShiftOperandOrder(t *testing.T) {
	// 1 << 3 == 8: the shift count is the rhs (pushed first), the value
	// being shifted is the lhs (pushed last, popped first).
	body := []bytecode.Instruction{
		constInstr(3),
		constInstr(1),
		{Op: bytecode.OpShiftLeft, Bits: 8},
		{Op: bytecode.OpReturn, Size: 1},
	}
	prog := mainProgram(body, 0, 1)

	res := runProgram(t, prog, nil)
	if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(8)) {
		t.Fatalf("got %v, want [8]", res.Outputs)
	}
}

func TestCastBindsResultToInput(t *testing.T) {
	// cast 257 down to u8 == 1, and the binding constraints (cast_bind,
	// cast_quotient_range) must actually be satisfied, not just the
	// range check on the truncated witness.
	body := []bytecode.Instruction{
		{Op: bytecode.OpPushConst, Const: field.FromInt64(257), ConstType: bytecode.ConstTypeUnsignedInt, Bits: 32},
		{Op: bytecode.OpCast, Bits: 8, Signed: false},
		{Op: bytecode.OpReturn, Size: 1},
	}
	prog := mainProgram(body, 0, 1)

	res := runProgram(t, prog, nil)
	if len(res.Outputs) != 1 || !res.Outputs[0].Equal(field.FromInt64(1)) {
		t.Fatalf("got %v, want [1]", res.Outputs)
	}
}

func TestAssertionFailure(t *testing.T) {
	// assert(0 == 1)
	body := []bytecode.Instruction{
		constInstr(0),
		constInstr(1),
		{Op: bytecode.OpEq},
		{Op: bytecode.OpAssert},
		{Op: bytecode.OpReturn, Size: 0},
	}
	prog := mainProgram(body, 0, 0)

	machine, err := New(prog, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := machine.Run(); err == nil {
		t.Fatalf("Run: expected an assertion-failure error, got nil")
	}
	if ok, _ := machine.ConstraintSystem().IsSatisfied(); ok {
		t.Fatalf("constraint system should be unsatisfiable after a failed assertion")
	}
}
