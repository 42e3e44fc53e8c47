package disasm

import (
	"strings"
	"testing"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/field"
)

func TestInstructionRendersOperands(t *testing.T) {
	line := Instruction(&bytecode.Instruction{Op: bytecode.OpLoadPush, Addr: 3})
	if !strings.Contains(line, "LoadPush") || !strings.Contains(line, "addr=3") {
		t.Fatalf("got %q", line)
	}
}

func TestInstructionRendersPushConst(t *testing.T) {
	line := Instruction(&bytecode.Instruction{Op: bytecode.OpPushConst, Const: field.FromInt64(14), ConstType: bytecode.ConstTypeUnsignedInt})
	if !strings.Contains(line, "14") || !strings.Contains(line, "uint") {
		t.Fatalf("got %q", line)
	}
}

func TestProgramLabelsFunctionEntries(t *testing.T) {
	prog := &bytecode.Program{
		FunctionAddrs: map[int]int{bytecode.FuncMain: 0},
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpPushConst, Const: field.FromInt64(1)},
			{Op: bytecode.OpReturn, Size: 1},
		},
	}
	out := Program(prog)
	if !strings.Contains(out, "main (#2)") {
		t.Fatalf("expected main label in output, got %q", out)
	}
}
