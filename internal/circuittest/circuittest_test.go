package circuittest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/field"
)

// arithmeticProgram builds the same "2 + 3*4 == 14" program
// internal/vm's own test suite exercises, so this package's fixture
// loader is checked against a known-good witness.
func arithmeticProgram() *bytecode.Program {
	c := func(v int64) bytecode.Instruction {
		return bytecode.Instruction{Op: bytecode.OpPushConst, Const: field.FromInt64(v), ConstType: bytecode.ConstTypeUnsignedInt, Bits: 32}
	}
	return &bytecode.Program{
		Instructions: []bytecode.Instruction{
			{Op: bytecode.OpCall, Addr: 2, Index: bytecode.FuncMain, Size: 0},
			{Op: bytecode.OpExit, Size: 1},
			c(2),
			c(3),
			c(4),
			{Op: bytecode.OpMul},
			{Op: bytecode.OpAdd},
			{Op: bytecode.OpReturn, Size: 1},
		},
		FunctionAddrs:  map[int]int{bytecode.FuncMain: 2},
		MainFunc:       bytecode.FuncMain,
		MainInputSize:  0,
		MainReturnSize: 1,
	}
}

func fixtureArchive(t *testing.T, prog *bytecode.Program, outputs string, satisfiable bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bytecode.Encode(&buf, prog); err != nil {
		t.Fatalf("encode: %v", err)
	}
	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())
	sat := "true"
	if !satisfiable {
		sat = "false"
	}
	return []byte(fmt.Sprintf("-- program.b64 --\n%s\n-- outputs --\n%s\n-- satisfiable --\n%s\n", b64, outputs, sat))
}

func TestLoadFixtureRoundTrip(t *testing.T) {
	data := fixtureArchive(t, arithmeticProgram(), "14", true)
	c, err := LoadFixture("arithmetic", data)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if c.Name != "arithmetic" || len(c.WantOutputs) != 1 || c.WantOutputs[0] != "14" {
		t.Fatalf("unexpected case: %+v", c)
	}
}

func TestRunPassesOnMatchingOutput(t *testing.T) {
	data := fixtureArchive(t, arithmeticProgram(), "14", true)
	c, err := LoadFixture("arithmetic", data)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	results, err := Run([]Case{c})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || !results[0].Passed {
		t.Fatalf("expected a passing result, got %+v", results)
	}
}

func TestRunFailsOnOutputMismatch(t *testing.T) {
	data := fixtureArchive(t, arithmeticProgram(), "99", true)
	c, err := LoadFixture("arithmetic", data)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	results, err := Run([]Case{c})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Passed {
		t.Fatalf("expected a failing result, got %+v", results)
	}
	if !strings.Contains(results[0].Message, "mismatch") {
		t.Fatalf("expected a mismatch message, got %q", results[0].Message)
	}
}

func TestSummarizeCountsPasses(t *testing.T) {
	results := []Result{
		{Case: Case{Name: "a"}, Passed: true},
		{Case: Case{Name: "b"}, Passed: false, Message: "boom"},
	}
	out := Summarize(results)
	if !strings.Contains(out, "1/2 passed") {
		t.Fatalf("summary missing pass count: %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Fatalf("summary missing failure message: %q", out)
	}
}
