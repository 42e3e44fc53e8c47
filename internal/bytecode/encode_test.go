package bytecode

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/sentra-lang/zincvm/internal/field"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	prog := &Program{
		FunctionAddrs:  map[int]int{FuncDbg: 0, FuncAssert: 1, FuncMain: 2},
		MainFunc:       FuncMain,
		MainInputSize:  1,
		MainReturnSize: 1,
		Instructions: []Instruction{
			{Op: OpCall, Addr: 2, Size: 1, Debug: DebugInfo{File: "main.zk", Line: 1}},
			{Op: OpExit, Size: 1},
			{Op: OpPushConst, Const: field.FromInt64(14), ConstType: ConstTypeUnsignedInt, Bits: 8},
			{Op: OpAdd},
			{Op: OpCast, Signed: true, Bits: 32},
			{Op: OpLoopBegin, Count: 10},
			{Op: OpDbg, Format: "x = {}", Argc: 1},
			{Op: OpReturn, Size: 0},
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, prog); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.MainFunc != prog.MainFunc || got.MainInputSize != prog.MainInputSize || got.MainReturnSize != prog.MainReturnSize {
		t.Fatalf("main descriptor mismatch: got %+v", got)
	}
	if len(got.Instructions) != len(prog.Instructions) {
		t.Fatalf("got %d instructions, want %d", len(got.Instructions), len(prog.Instructions))
	}
	for i := range prog.Instructions {
		want := prog.Instructions[i]
		g := got.Instructions[i]
		if g.Op != want.Op || g.Addr != want.Addr || g.Size != want.Size || g.Signed != want.Signed ||
			g.Bits != want.Bits || g.Count != want.Count || g.Format != want.Format || g.Argc != want.Argc {
			t.Errorf("instruction %d: got %+v, want %+v", i, g, want)
		}
		if !g.Const.Equal(want.Const) {
			t.Errorf("instruction %d const: got %s, want %s", i, g.Const, want.Const)
		}
	}
	for idx, addr := range prog.FunctionAddrs {
		if got.FunctionAddrs[idx] != addr {
			t.Errorf("function %d: got addr %d, want %d", idx, got.FunctionAddrs[idx], addr)
		}
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	if _, err := Decode(bufio.NewReader(buf)); err == nil {
		t.Fatalf("expected error decoding bad magic")
	}
}

func TestEmitterPatchesBootstrap(t *testing.T) {
	e := New()
	e.FunctionEnter(FuncMain)
	e.Emit(Instruction{Op: OpPushConst, Const: field.FromInt64(14), ConstType: ConstTypeUnsignedInt, Bits: 8})
	e.FunctionExit(1)
	prog := e.Finalize(0, 1)

	if prog.Instructions[0].Op != OpCall {
		t.Fatalf("expected bootstrap[0] to be patched to Call, got %s", prog.Instructions[0].Op)
	}
	if prog.Instructions[1].Op != OpExit {
		t.Fatalf("expected bootstrap[1] to be patched to Exit, got %s", prog.Instructions[1].Op)
	}
	if prog.Instructions[0].Addr != prog.FunctionAddrs[FuncMain] {
		t.Fatalf("bootstrap Call addr %d does not match main's recorded address %d", prog.Instructions[0].Addr, prog.FunctionAddrs[FuncMain])
	}
}
