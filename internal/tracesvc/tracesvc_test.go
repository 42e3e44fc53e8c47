package tracesvc

import (
	"testing"

	"github.com/sentra-lang/zincvm/internal/bytecode"
)

func TestOnInstructionIncrementsStep(t *testing.T) {
	s := New()
	instr := bytecode.Instruction{Op: bytecode.OpAdd}

	if ok := s.OnInstruction(nil, 3, &instr); !ok {
		t.Fatalf("OnInstruction returned false")
	}
	if s.step != 1 {
		t.Fatalf("step = %d, want 1", s.step)
	}
	if ok := s.OnInstruction(nil, 4, &instr); !ok {
		t.Fatalf("OnInstruction returned false")
	}
	if s.step != 2 {
		t.Fatalf("step = %d, want 2", s.step)
	}
}

func TestBroadcastNoClientsIsNoop(t *testing.T) {
	s := New()
	// With no connected clients, OnCall/OnReturn/OnError must not panic.
	s.OnCall(nil, 2, 0)
	s.OnReturn(nil, 5)
	s.OnError(nil, errTest{}, 6)
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
